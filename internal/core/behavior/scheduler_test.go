package behavior

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bus "github.com/zeusync/behavior/internal/core/events/bus"
)

func TestSchedulerPriorities(t *testing.T) {
	low := buildTree(t, func(b *Builder) { running(b) })
	high, err := NewTree("high", func(b *Builder) { running(b) })
	require.NoError(t, err)
	agent := newTestAgent(1)
	s := agent.Behavior()
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, low, 2, nil))
	assert.True(t, s.HasPriority(low), "alone it has priority")
	require.NoError(t, s.Run(ctx, high, 5, nil))

	assert.False(t, s.HasPriority(low))
	assert.True(t, s.HasPriority(high))
	assert.Equal(t, 2, s.Priority(low))
	assert.Equal(t, 5, s.Priority(high))

	s.SetPriority(low, 5)
	assert.True(t, s.HasPriority(low), "ties share priority")
	assert.True(t, s.HasPriority(high))

	high.Reset(agent)
	assert.Equal(t, -1, s.Priority(high))
	assert.False(t, s.HasPriority(high))
	assert.Equal(t, []*Tree{low}, s.Running())
}

func TestSchedulerRunStoresArgumentAndRestarts(t *testing.T) {
	cond := &counter{result: true}
	var seen []string
	tree := buildTree(t, func(b *Builder) {
		cond.add(b)
		b.Action("read argument", func(tc *Context) (State, error) {
			arg, err := Require[string](tc, tc.Tree().Root().ID(), ArgumentVariable)
			if err != nil {
				return StateFailure, err
			}
			seen = append(seen, arg)
			return StateRunning, nil
		})
	})
	agent := newTestAgent(1)
	s := agent.Behavior()
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, tree, 1, "north"))
	require.NoError(t, s.Update(ctx))
	require.NoError(t, s.Run(ctx, tree, 3, "south"))
	require.NoError(t, s.Update(ctx))

	assert.Equal(t, []string{"north", "south"}, seen)
	assert.Equal(t, 2, cond.inits)
	assert.Equal(t, 3, s.Priority(tree))
	assert.Equal(t, 1, s.Len())
}

func TestSchedulerDefersChangesDuringUpdate(t *testing.T) {
	agent := newTestAgent(1)
	s := agent.Behavior()
	ctx := context.Background()

	spawned := buildTree(t, func(b *Builder) { running(b) })
	var lenDuring, priorityDuring int
	var reentrant, resetAll error
	var self *Tree
	self = buildTree(t, func(b *Builder) {
		b.Action("mutate", func(tc *Context) (State, error) {
			if err := s.Run(tc.Context(), spawned, 7, nil); err != nil {
				return StateFailure, err
			}
			s.SetPriority(self, 9)
			lenDuring = s.Len()
			priorityDuring = s.Priority(self)
			reentrant = s.Update(tc.Context())
			resetAll = s.ResetAll()
			return StateRunning, nil
		})
	})

	require.NoError(t, s.Run(ctx, self, 1, nil))
	require.NoError(t, s.Update(ctx))

	assert.Equal(t, 1, lenDuring)
	assert.Equal(t, 1, priorityDuring)
	assert.ErrorIs(t, reentrant, ErrConcurrentModification)
	assert.ErrorIs(t, resetAll, ErrConcurrentModification)

	assert.Equal(t, []*Tree{self, spawned}, s.Running())
	assert.Equal(t, 9, s.Priority(self))
	assert.Equal(t, 7, s.Priority(spawned))
	assert.True(t, spawned.Registered(agent.ID()))
}

func TestSchedulerRemovesFinishedTrees(t *testing.T) {
	agent := newTestAgent(1)
	s := agent.Behavior()
	ctx := context.Background()
	done := buildTree(t, func(b *Builder) { b.Succeed() })

	require.NoError(t, s.Run(ctx, done, 0, nil))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Update(ctx))
	assert.Zero(t, s.Len())
	assert.False(t, done.Registered(agent.ID()))
}

func TestSchedulerIsolatesFailingTrees(t *testing.T) {
	events := bus.New()
	var published []TreeError
	_, err := events.Subscribe(EventTreeError, func(e bus.Event) error {
		published = append(published, e.Data().(TreeError))
		return nil
	})
	require.NoError(t, err)

	agent := newTestAgent(1)
	agent.sched = NewScheduler(agent, events, nil)
	s := agent.Behavior()
	ctx := context.Background()

	boom := errors.New("boom")
	broken, err := NewTree("broken", func(b *Builder) {
		b.Action("explode", func(*Context) (State, error) { return StateFailure, boom })
	})
	require.NoError(t, err)
	var healthyTicks int
	healthy, err := NewTree("healthy", func(b *Builder) {
		b.Action("tick", func(*Context) (State, error) {
			healthyTicks++
			return StateRunning, nil
		})
	})
	require.NoError(t, err)

	require.NoError(t, s.Run(ctx, broken, 0, nil))
	require.NoError(t, s.Run(ctx, healthy, 0, nil))

	require.NoError(t, s.Update(ctx), "tree errors stay with the scheduler")
	assert.Equal(t, 1, healthyTicks)
	assert.False(t, broken.Registered(agent.ID()))
	assert.Zero(t, agentKeys(broken.Store(), agent.ID()))
	assert.True(t, healthy.Registered(agent.ID()))
	assert.Equal(t, []*Tree{healthy}, s.Running())

	require.Len(t, published, 1)
	assert.Equal(t, "broken", published[0].Tree)
	assert.Equal(t, agent.ID(), published[0].Agent)
	assert.ErrorIs(t, published[0].Err, boom)

	require.NoError(t, s.Update(ctx))
	assert.Equal(t, 2, healthyTicks)
}

func TestSchedulerResetAll(t *testing.T) {
	agent := newTestAgent(1)
	s := agent.Behavior()
	ctx := context.Background()
	a := buildTree(t, func(b *Builder) { running(b) })
	b, err := NewTree("other", func(b *Builder) { running(b) })
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx, a, 0, nil))
	require.NoError(t, s.Run(ctx, b, 1, nil))

	require.NoError(t, s.ResetAll())
	assert.Zero(t, s.Len())
	assert.Zero(t, a.Agents())
	assert.Zero(t, b.Agents())
}
