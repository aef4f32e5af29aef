package behavior

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeRunToCompletion(t *testing.T) {
	var executed int
	tree := buildTree(t, func(b *Builder) {
		b.Succeed()
		b.Action("give up", func(*Context) (State, error) {
			executed++
			return StateFailure, nil
		})
	})
	agent := newTestAgent(1)
	startTree(t, tree, agent)
	assert.True(t, tree.Registered(agent.ID()))
	assert.Equal(t, 1, tree.Agents())

	assert.Equal(t, StateRunning, update1(t, tree, agent))
	assert.Equal(t, 1, executed)
	assert.NotZero(t, agentKeys(tree.Store(), agent.ID()))

	assert.Equal(t, StateFailure, update1(t, tree, agent))
	assert.Equal(t, 1, executed, "finished action is not executed again")
	assert.False(t, tree.Registered(agent.ID()))
	assert.Zero(t, agentKeys(tree.Store(), agent.ID()))
	assert.Equal(t, -1, agent.Behavior().Priority(tree))

	_, err := tree.Update(context.Background(), agent)
	assert.ErrorIs(t, err, ErrUnregisteredAgent)
}

func TestTreeInitIsIdempotent(t *testing.T) {
	cond := &counter{result: true}
	tree := buildTree(t, func(b *Builder) {
		cond.add(b)
		running(b)
	})
	agent := newTestAgent(1)
	require.NoError(t, tree.Init(context.Background(), agent))
	require.NoError(t, tree.Init(context.Background(), agent))
	assert.Equal(t, 1, cond.inits)
}

func TestTreeResetAndRestart(t *testing.T) {
	cond := &counter{result: true}
	tree := buildTree(t, func(b *Builder) {
		cond.add(b)
		running(b)
	})
	agent := newTestAgent(1)
	startTree(t, tree, agent)
	update1(t, tree, agent)
	update1(t, tree, agent)

	tree.Reset(agent)
	tree.Reset(agent)
	assert.False(t, tree.Registered(agent.ID()))
	assert.Zero(t, agentKeys(tree.Store(), agent.ID()))
	assert.Zero(t, agent.Behavior().Len())

	startTree(t, tree, agent)
	assert.Equal(t, 2, cond.inits)
	assert.Equal(t, StateRunning, update1(t, tree, agent))
}

func TestTreeAgentsAreIndependent(t *testing.T) {
	tree := buildTree(t, func(b *Builder) {
		b.Action("once", func(tc *Context) (State, error) { return StateSuccess, nil })
		running(b)
	})
	a, b := newTestAgent(1), newTestAgent(2)
	startTree(t, tree, a)
	update1(t, tree, a)
	startTree(t, tree, b)

	st, _ := newContext(context.Background(), tree, a, 0).State(1)
	assert.Equal(t, StateRunning, st)
	_, ok, err := Load[State](newContext(context.Background(), tree, b, 0), 1, actionResultVariable)
	require.NoError(t, err)
	assert.False(t, ok)

	tree.Reset(a)
	assert.True(t, tree.Registered(b.ID()))
	assert.NotZero(t, agentKeys(tree.Store(), b.ID()))
}

func TestExecuteBeforeUpdate(t *testing.T) {
	tree := buildTree(t, func(b *Builder) { running(b) })
	agent := newTestAgent(1)
	startTree(t, tree, agent)

	err := newContext(context.Background(), tree, agent, 1).Execute(rootID)
	assert.ErrorIs(t, err, ErrExecuteBeforeUpdate)

	err = newContext(context.Background(), tree, newTestAgent(2), 1).Execute(rootID)
	assert.ErrorIs(t, err, ErrNodeNotInitialized)
}

func TestExecuteOfFinishedNodeIsNoop(t *testing.T) {
	var executed int
	tree := buildTree(t, func(b *Builder) {
		b.Action("count", func(*Context) (State, error) {
			executed++
			return StateSuccess, nil
		})
	})
	agent := newTestAgent(1)
	startTree(t, tree, agent)
	update1(t, tree, agent)

	tc := newContext(context.Background(), tree, agent, 2)
	st, err := tc.Update(1)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st)
	require.NoError(t, tc.Execute(1))
	assert.Equal(t, 1, executed)
}

func TestNodeErrorLocatesFailure(t *testing.T) {
	boom := errors.New("boom")
	var leaf NodeID
	tree := buildTree(t, func(b *Builder) {
		b.Selector(OrderOrdered, func(b *Builder) {
			leaf = b.Action("explode", func(*Context) (State, error) { return StateFailure, boom })
		})
	})
	agent := newTestAgent(1)
	startTree(t, tree, agent)

	_, err := tree.Update(context.Background(), agent)
	require.ErrorIs(t, err, boom)
	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, leaf, ne.Node)
	assert.Equal(t, "action", ne.Kind)
	assert.Equal(t, "execute", ne.Phase)
	assert.Equal(t, agent.ID(), ne.Agent)
}

func TestFailingInitResetsAgent(t *testing.T) {
	boom := errors.New("boom")
	tree := buildTree(t, func(b *Builder) {
		b.Condition("broken", func(*Context) (bool, error) { return false, boom })
	})
	agent := newTestAgent(1)
	err := agent.Behavior().Run(context.Background(), tree, 0, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, tree.Registered(agent.ID()))
	assert.Zero(t, agent.Behavior().Len())
}

func TestTreeString(t *testing.T) {
	tree := buildTree(t, func(b *Builder) {
		b.Selector(OrderOrdered, func(b *Builder) {
			b.Succeed()
			b.Condition("ready", func(*Context) (bool, error) { return true, nil })
		})
		b.Repeater(RepeatOptions{Iterations: 2}, func(b *Builder) { b.Fail() })
	})
	want := `tree "TestTreeString" (id -1)
  sequence(ordered) #0
    selector(ordered) #1
      succeed #2
      condition(ready) #3
    repeater(iterations=2 untilFail=false untilSucceed=false) #4
      fail #5
`
	assert.Equal(t, want, tree.String())
	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, "sequence", tree.Root().Kind())
}

func TestEmptyTreeName(t *testing.T) {
	_, err := NewTree("", nil)
	assert.ErrorIs(t, err, ErrEmptyTreeName)
	assert.Panics(t, func() { MustTree("", nil) })
}

func TestCustomNodeWithWrongID(t *testing.T) {
	_, err := NewTree("custom", func(b *Builder) {
		b.Node(func(NodeID) Node { return &fixedLeaf{baseNode: newBase(42, "bogus", ""), state: StateSuccess} })
	})
	assert.Error(t, err)
}
