package behavior

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeusync/behavior/internal/core/observability/log"
)

// nodeRecord is the per (node, agent) lifecycle state kept in the store.
type nodeRecord struct {
	state   State
	updated uint64 // tick of the last UpdateState, zero until the first update after init
}

// Context carries one tree run for one agent through the node graph.
// Nodes never keep per-agent data themselves; they go through the Context.
type Context struct {
	ctx   context.Context
	tree  *Tree
	agent Agent
	tick  uint64
}

func newContext(ctx context.Context, tree *Tree, agent Agent, tick uint64) *Context {
	return &Context{ctx: ctx, tree: tree, agent: agent, tick: tick}
}

func (tc *Context) Context() context.Context { return tc.ctx }
func (tc *Context) Tree() *Tree              { return tc.tree }
func (tc *Context) Agent() Agent             { return tc.agent }
func (tc *Context) Store() *Store            { return tc.tree.store }
func (tc *Context) Tick() uint64             { return tc.tick }
func (tc *Context) Logger() log.Log          { return tc.tree.logger }

// HasPriority reports whether this tree currently owns the agent's exclusive
// physical state.
func (tc *Context) HasPriority() bool {
	return tc.agent.Behavior().HasPriority(tc.tree)
}

// Actor returns the agent's world capabilities.
func (tc *Context) Actor() (Actor, error) {
	a, ok := tc.agent.(Actor)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an Actor", ErrMissingCapability, tc.agent)
	}
	return a, nil
}

// Init resets the record of node id for this agent and initializes it.
func (tc *Context) Init(id NodeID) (State, error) {
	rec := &nodeRecord{state: StateRunning}
	tc.Store().Set(stateVariable.Key(id, tc.agent.ID()), rec)
	st, err := tc.tree.node(id).Init(tc)
	if err != nil {
		rec.state = StateFailure
		return StateFailure, tc.wrap(id, "init", err)
	}
	rec.state = st
	return st, nil
}

// Update computes the state of node id for the current tick.
func (tc *Context) Update(id NodeID) (State, error) {
	rec, err := tc.record(id)
	if err != nil {
		return StateFailure, tc.wrap(id, "update", err)
	}
	st, err := tc.tree.node(id).UpdateState(tc)
	if err != nil {
		rec.state = StateFailure
		return StateFailure, tc.wrap(id, "update", err)
	}
	rec.state = st
	rec.updated = tc.tick
	return st, nil
}

// Execute runs node id if it was updated this tick and is still running.
func (tc *Context) Execute(id NodeID) error {
	rec, err := tc.record(id)
	if err != nil {
		return tc.wrap(id, "execute", err)
	}
	if rec.updated != tc.tick {
		return tc.wrap(id, "execute", ErrExecuteBeforeUpdate)
	}
	if rec.state != StateRunning {
		return nil
	}
	if err = tc.tree.node(id).Execute(tc); err != nil {
		return tc.wrap(id, "execute", err)
	}
	return nil
}

// State returns the last state of node id for this agent.
func (tc *Context) State(id NodeID) (State, bool) {
	rec, err := tc.record(id)
	if err != nil {
		return StateFailure, false
	}
	return rec.state, true
}

// ResetNode drops every agent-scoped entry of the subtree rooted at id and
// initializes it again.
func (tc *Context) ResetNode(id NodeID) (State, error) {
	tc.clearSubtree(id)
	return tc.Init(id)
}

func (tc *Context) clearSubtree(id NodeID) {
	tc.Store().DeleteNodes(tc.agent.ID(), tc.tree.subtree(id)...)
}

func (tc *Context) record(id NodeID) (*nodeRecord, error) {
	rec, ok, err := Get[*nodeRecord](tc.Store(), stateVariable.Key(id, tc.agent.ID()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNodeNotInitialized
	}
	return rec, nil
}

// Key returns the store key of v as seen from node.
func (tc *Context) Key(node NodeID, v Variable) Key {
	return v.Key(node, tc.agent.ID())
}

// Set writes value to v as seen from node. A nil value clears it.
func (tc *Context) Set(node NodeID, v Variable, value any) {
	tc.Store().Set(tc.Key(node, v), value)
}

// Clear deletes v as seen from node.
func (tc *Context) Clear(node NodeID, v Variable) {
	tc.Store().Delete(tc.Key(node, v))
}

func (tc *Context) Exists(node NodeID, v Variable) bool {
	return tc.Store().Exists(tc.Key(node, v))
}

// Load reads v as seen from node. See Get for the absent and mismatch cases.
func Load[T any](tc *Context, node NodeID, v Variable) (T, bool, error) {
	return Get[T](tc.Store(), tc.Key(node, v))
}

// Require is Load that treats an absent value as ErrMissingVariable.
func Require[T any](tc *Context, node NodeID, v Variable) (T, error) {
	val, ok, err := Load[T](tc, node, v)
	if err != nil {
		return val, err
	}
	if !ok {
		return val, fmt.Errorf("%w: %s", ErrMissingVariable, v)
	}
	return val, nil
}

// NodeError locates a failure inside a tree run.
type NodeError struct {
	Tree  string
	Node  NodeID
	Kind  string
	Agent AgentID
	Phase string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("tree %q node %d (%s) %s for agent %s: %v", e.Tree, e.Node, e.Kind, e.Phase, e.Agent, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// wrap annotates err with the innermost node it came from.
func (tc *Context) wrap(id NodeID, phase string, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{
		Tree:  tc.tree.name,
		Node:  id,
		Kind:  tc.tree.node(id).Kind(),
		Agent: tc.agent.ID(),
		Phase: phase,
		Err:   err,
	}
}
