package behavior

import "fmt"

// RunBehavior starts tree for the agent at priority. When an argument
// variable is given its current value is passed along.
func (b *Builder) RunBehavior(tree *Tree, priority int, argument ...Variable) NodeID {
	if tree == nil {
		b.Err(fmt.Errorf("runBehavior: %w: nil tree", ErrUnknownTree))
	}
	name := ""
	if tree != nil {
		name = tree.name
	}
	return b.runBehavior(tree, name, priority, argument)
}

// RunBehaviorNamed is RunBehavior with the tree resolved by name in the
// catalogue of the running tree, which allows forward references.
func (b *Builder) RunBehaviorNamed(name string, priority int, argument ...Variable) NodeID {
	return b.runBehavior(nil, name, priority, argument)
}

func (b *Builder) runBehavior(tree *Tree, name string, priority int, argument []Variable) NodeID {
	if len(argument) > 1 {
		b.Err(fmt.Errorf("runBehavior %q: at most one argument variable, got %d", name, len(argument)))
	}
	label := fmt.Sprintf("tree=%s priority=%d", name, priority)
	if len(argument) > 0 {
		label += " argument=" + argument[0].String()
	}
	return b.dataLeaf("runBehavior", label, func(tc *Context, self NodeID) (bool, error) {
		target := tree
		if target == nil {
			cat := tc.Tree().Catalogue()
			if cat == nil {
				return false, fmt.Errorf("%w: %q, tree is not registered", ErrUnknownTree, name)
			}
			var ok bool
			if target, ok = cat.ByName(name); !ok {
				return false, fmt.Errorf("%w: %q", ErrUnknownTree, name)
			}
		}
		if target == tc.Tree() {
			return false, fmt.Errorf("runBehavior: tree %q cannot restart itself", name)
		}
		var arg any
		if len(argument) > 0 {
			arg, _ = tc.Store().Load(tc.Key(self, argument[0]))
		}
		// Run logs a failing child and publishes it as EventTreeError (behavior.error).
		if err := tc.Agent().Behavior().Run(tc.Context(), target, priority, arg); err != nil {
			return false, nil
		}
		return true, nil
	})
}

// GetPriority stores the priority of the running tree in dest.
func (b *Builder) GetPriority(dest Variable) Variable {
	id := b.state.reserve()
	dest = dest.Bind(id)
	return bindLeaf(b, dest, &DataLeaf{
		baseNode: newBase(id, "getPriority", "dest="+dest.String()),
		run: func(tc *Context, self NodeID) (bool, error) {
			tc.Set(self, dest, tc.Agent().Behavior().Priority(tc.Tree()))
			return true, nil
		},
	})
}

// SetPriority changes the priority of the running tree for the agent.
func (b *Builder) SetPriority(priority int) NodeID {
	return b.dataLeaf("setPriority", fmt.Sprint(priority), func(tc *Context, _ NodeID) (bool, error) {
		tc.Agent().Behavior().SetPriority(tc.Tree(), priority)
		return true, nil
	})
}

// ClearVariable deletes v. Node-scoped variables must be bound to the node
// that wrote them.
func (b *Builder) ClearVariable(v Variable) NodeID {
	return b.dataLeaf("clearVariable", v.String(), func(tc *Context, self NodeID) (bool, error) {
		tc.Clear(self, v)
		return true, nil
	})
}

// resetLeaf restarts the composite that contains it for the agent, dropping
// every descendant's state.
type resetLeaf struct {
	baseNode
	target NodeID
}

func (r *resetLeaf) Init(*Context) (State, error)        { return StateRunning, nil }
func (r *resetLeaf) UpdateState(*Context) (State, error) { return StateRunning, nil }

func (r *resetLeaf) Execute(tc *Context) error {
	_, err := tc.ResetNode(r.target)
	return err
}

// Reset adds a leaf that restarts the enclosing composite when executed.
func (b *Builder) Reset() NodeID {
	id := b.state.reserve()
	return b.leaf(&resetLeaf{baseNode: newBase(id, "reset", fmt.Sprintf("target=%d", b.owner)), target: b.owner})
}
