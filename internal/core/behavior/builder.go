package behavior

import (
	"errors"
	"fmt"
)

// buildState is shared by every Builder of one tree under construction.
type buildState struct {
	nodes []Node
	errs  []error
}

func (s *buildState) reserve() NodeID {
	s.nodes = append(s.nodes, nil)
	return NodeID(len(s.nodes) - 1)
}

func (s *buildState) errorf(format string, args ...any) {
	s.errs = append(s.errs, fmt.Errorf(format, args...))
}

// Builder appends nodes to the child list of one composite. It is only valid
// inside the callback that received it.
type Builder struct {
	state    *buildState
	owner    NodeID
	children []NodeID
}

// NewTree builds a tree whose root is an ordered sequence over the nodes
// added by build. Any construction error is returned and no tree is produced.
func NewTree(name string, build func(b *Builder)) (*Tree, error) {
	if name == "" {
		return nil, ErrEmptyTreeName
	}
	state := &buildState{}
	root := state.reserve()
	b := &Builder{state: state, owner: root}
	if build != nil {
		build(b)
	}
	state.nodes[root] = newSequence(root, OrderOrdered, b.children)
	if len(state.errs) > 0 {
		return nil, fmt.Errorf("build tree %q: %w", name, errors.Join(state.errs...))
	}
	return newTree(name, state.nodes), nil
}

// MustTree is NewTree that panics on construction errors. Intended for
// package-level tree definitions.
func MustTree(name string, build func(b *Builder)) *Tree {
	t, err := NewTree(name, build)
	if err != nil {
		panic(err)
	}
	return t
}

// Owner returns the composite this builder appends to.
func (b *Builder) Owner() NodeID { return b.owner }

// Err records a construction error, failing the whole build.
func (b *Builder) Err(err error) {
	if err != nil {
		b.state.errs = append(b.state.errs, err)
	}
}

// Node adds a custom node. The factory receives the id the node must report.
func (b *Builder) Node(factory func(id NodeID) Node) NodeID {
	id := b.state.reserve()
	n := factory(id)
	if n == nil || n.ID() != id {
		b.state.errorf("custom node %d: factory returned a node with a different id", id)
		n = &fixedLeaf{baseNode: newBase(id, "invalid", ""), state: StateFailure}
	}
	b.state.nodes[id] = n
	b.children = append(b.children, id)
	return id
}

func (b *Builder) nested(build func(b *Builder)) (NodeID, []NodeID) {
	id := b.state.reserve()
	child := &Builder{state: b.state, owner: id}
	if build != nil {
		build(child)
	}
	b.children = append(b.children, id)
	return id, child.children
}

func (b *Builder) leaf(n Node) NodeID {
	b.state.nodes[n.ID()] = n
	b.children = append(b.children, n.ID())
	return n.ID()
}

// Sequence succeeds when every child succeeds and fails on the first failure.
func (b *Builder) Sequence(order Order, build func(b *Builder)) NodeID {
	id, children := b.nested(build)
	b.state.nodes[id] = newSequence(id, order, children)
	return id
}

// Selector succeeds on the first child success and fails when every child fails.
func (b *Builder) Selector(order Order, build func(b *Builder)) NodeID {
	id, children := b.nested(build)
	b.state.nodes[id] = newSelector(id, order, children)
	return id
}

func (b *Builder) decorator(kind, label string, build func(b *Builder)) (NodeID, decorator) {
	id, children := b.nested(build)
	d := decorator{baseNode: newBase(id, kind, label)}
	switch len(children) {
	case 0:
		b.Err(fmt.Errorf("%s node %d: %w", kind, id, ErrDecoratorWithoutChild))
		d.child = b.state.placeholder()
	case 1:
		d.child = children[0]
	default:
		b.Err(fmt.Errorf("%s node %d has %d children: %w", kind, id, len(children), ErrDecoratorChildCount))
		d.child = children[0]
	}
	return id, d
}

// placeholder keeps the arena consistent after a decorator error. The tree is
// never returned in that case.
func (s *buildState) placeholder() NodeID {
	id := s.reserve()
	s.nodes[id] = &fixedLeaf{baseNode: newBase(id, "missing", ""), state: StateFailure}
	return id
}

func (b *Builder) Inverter(build func(b *Builder)) NodeID {
	id, d := b.decorator("inverter", "", build)
	b.state.nodes[id] = &Inverter{decorator: d}
	return id
}

func (b *Builder) Succeeder(build func(b *Builder)) NodeID {
	id, d := b.decorator("succeeder", "", build)
	b.state.nodes[id] = &Succeeder{decorator: d}
	return id
}

// AlwaysFail reports failure once its child finished. It is an inverter over
// a succeeder.
func (b *Builder) AlwaysFail(build func(b *Builder)) NodeID {
	return b.Inverter(func(b *Builder) {
		b.Succeeder(build)
	})
}

func (b *Builder) Repeater(opts RepeatOptions, build func(b *Builder)) NodeID {
	label := fmt.Sprintf("iterations=%d untilFail=%t untilSucceed=%t", opts.Iterations, opts.UntilFail, opts.UntilSucceed)
	id, d := b.decorator("repeater", label, build)
	b.state.nodes[id] = &Repeater{decorator: d, opts: opts}
	return id
}

// Condition adds a leaf that finishes at init with the result of fn.
func (b *Builder) Condition(name string, fn func(tc *Context) (bool, error)) NodeID {
	id := b.state.reserve()
	return b.leaf(&DataLeaf{
		baseNode: newBase(id, "condition", name),
		run:      func(tc *Context, _ NodeID) (bool, error) { return fn(tc) },
	})
}

// Action adds a leaf that calls fn on every execute until fn returns a
// terminal state.
func (b *Builder) Action(name string, fn func(tc *Context) (State, error)) NodeID {
	id := b.state.reserve()
	return b.leaf(&ActionLeaf{
		baseNode: newBase(id, "action", name),
		do:       func(tc *Context, _ NodeID) (State, error) { return fn(tc) },
	})
}

func (b *Builder) Succeed() NodeID { return b.fixed("succeed", StateSuccess) }
func (b *Builder) Fail() NodeID    { return b.fixed("fail", StateFailure) }

// Stop adds a leaf that halts the enclosing tree run.
func (b *Builder) Stop() NodeID { return b.fixed("stop", StateStopped) }

func (b *Builder) fixed(kind string, st State) NodeID {
	id := b.state.reserve()
	return b.leaf(&fixedLeaf{baseNode: newBase(id, kind, ""), state: st})
}

// dataLeaf adds a leaf that finishes during init.
func (b *Builder) dataLeaf(kind, label string, run func(tc *Context, self NodeID) (bool, error)) NodeID {
	id := b.state.reserve()
	return b.leaf(&DataLeaf{baseNode: newBase(id, kind, label), run: run})
}
