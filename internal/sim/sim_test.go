package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behavior/internal/config"
	"github.com/zeusync/behavior/internal/core/behavior"
	bus "github.com/zeusync/behavior/internal/core/events/bus"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
)

func catalogue(t *testing.T, async bool, extra ...*behavior.Tree) *behavior.Catalogue {
	t.Helper()
	cat := behavior.NewCatalogue(nil)
	cat.MustRegister(BuiltinTrees(async)...)
	cat.MustRegister(extra...)
	cat.Seal()
	return cat
}

func newSim(t *testing.T, cfg config.Config, async bool, extra ...*behavior.Tree) *Simulator {
	t.Helper()
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	paths := pathfind.NewService(cfg.Pathfind.PathOptions(), nil)
	s, err := New(context.Background(), cfg, catalogue(t, async, extra...), paths, bus.New(), nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func field(name string, entities ...config.EntitySpec) config.WorldSpec {
	return config.WorldSpec{Name: name, Seed: 3, Width: 20, Height: 20, TileSize: 16, Entities: entities}
}

func TestRunTickBudget(t *testing.T) {
	s := newSim(t, config.Config{
		Sim:    config.SimConfig{Ticks: 30},
		Worlds: []config.WorldSpec{field("a", config.EntitySpec{
			Name:     "walker",
			Position: config.Point{X: 20, Y: 40},
			Speed:    4,
			Trees:    []config.TreeSpec{{Tree: TreeGoto, Target: &config.Point{X: 100, Y: 40}}},
		})},
	}, false)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, uint64(30), s.Stats().Ticks)

	w, ok := s.World("a")
	require.True(t, ok)
	assert.Equal(t, uint64(30), w.CurrentTick())
	e := w.Entities()[0]
	assert.Zero(t, e.Behavior().Len(), "goto finished")
	assert.InDelta(t, 0, e.Position().Distance(physics.V(100, 40)), 1)
}

func TestWorldsStepTogether(t *testing.T) {
	wanderer := func(name string) config.EntitySpec {
		return config.EntitySpec{Name: name, Position: config.Point{X: 150, Y: 150}, Trees: []config.TreeSpec{{Tree: TreeWander}}}
	}
	s := newSim(t, config.Config{
		Sim:      config.SimConfig{Ticks: 50, Parallelism: 2},
		Pathfind: config.PathfindConfig{Diagonal: true},
		Worlds:   []config.WorldSpec{
			field("a", wanderer("a1"), wanderer("a2")),
			field("b", wanderer("b1")),
			field("c"),
		},
	}, false)

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, s.Worlds(), 3)
	for _, w := range s.Worlds() {
		assert.Equal(t, uint64(50), w.CurrentTick(), w.Name())
	}
	st := s.Stats()
	assert.Zero(t, st.TreeErrors)
	assert.NotZero(t, st.Modifications, "wanderers follow paths")
	for _, e := range s.Worlds()[0].Entities() {
		assert.Equal(t, 1, e.Behavior().Len(), "wander never ends")
	}
}

func TestTreeErrorDoesNotStopOtherWorlds(t *testing.T) {
	broken := behavior.MustTree("broken", func(b *behavior.Builder) {
		b.Action("explode", func(*behavior.Context) (behavior.State, error) { return behavior.StateFailure, errors.New("boom") })
	})
	s := newSim(t, config.Config{
		Sim:      config.SimConfig{Ticks: 10, Parallelism: 1},
		Pathfind: config.PathfindConfig{Diagonal: true},
		Worlds:   []config.WorldSpec{
			field("a", config.EntitySpec{Name: "bad", Position: config.Point{X: 40, Y: 40}, Trees: []config.TreeSpec{{Tree: "broken"}}}),
			field("b", config.EntitySpec{Name: "drifter", Position: config.Point{X: 150, Y: 150}, Trees: []config.TreeSpec{{Tree: TreeWander}}}),
		},
	}, false, broken)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, uint64(10), s.Stats().Ticks)
	for _, w := range s.Worlds() {
		assert.Equal(t, uint64(10), w.CurrentTick(), w.Name())
	}
	assert.Equal(t, uint64(1), s.Stats().TreeErrors)

	b, ok := s.World("b")
	require.True(t, ok)
	assert.Equal(t, 1, b.Entities()[0].Behavior().Len(), "wander keeps running")
}

func TestAsyncWander(t *testing.T) {
	s := newSim(t, config.Config{
		Sim:      config.SimConfig{Ticks: 40},
		Pathfind: config.PathfindConfig{Diagonal: true},
		Worlds:   []config.WorldSpec{field("a", config.EntitySpec{
			Name:     "drifter",
			Position: config.Point{X: 150, Y: 150},
			Trees:    []config.TreeSpec{{Tree: TreeWander}},
		})},
	}, true)

	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, s.Stats().TreeErrors)
}

func TestHuntTargetsNearest(t *testing.T) {
	s := newSim(t, config.Config{
		Sim:    config.SimConfig{Ticks: 5},
		Worlds: []config.WorldSpec{field("a",
			config.EntitySpec{Name: "prey", Position: config.Point{X: 100, Y: 100}},
			config.EntitySpec{Name: "hunter", Position: config.Point{X: 60, Y: 100}, Trees: []config.TreeSpec{{Tree: TreeHunt}}},
		)},
	}, false)

	require.NoError(t, s.Run(context.Background()))
	w := s.Worlds()[0]
	prey, hunter := w.Entities()[0], w.Entities()[1]
	target, ok := hunter.Target()
	require.True(t, ok)
	assert.Equal(t, prey.ID(), target)
	assert.Less(t, hunter.Position().Distance(prey.Position()), 40.0)

	require.NoError(t, w.Remove(prey.ID()))
	_, ok = hunter.Target()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), s.Stats().Removed)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSim(t, config.Config{
		Sim:    config.SimConfig{TickRateHz: 1000},
		Worlds: []config.WorldSpec{field("a")},
	}, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.NotZero(t, s.Stats().Ticks)
}

func TestCloseEmptiesEveryWorld(t *testing.T) {
	wanderer := func(name string) config.EntitySpec {
		return config.EntitySpec{Name: name, Position: config.Point{X: 150, Y: 150}, Trees: []config.TreeSpec{{Tree: TreeWander}}}
	}
	s := newSim(t, config.Config{
		Worlds: []config.WorldSpec{
			field("a", wanderer("a1"), wanderer("a2")),
			field("b", wanderer("b1")),
			field("c", wanderer("c1"), wanderer("c2"), wanderer("c3")),
		},
	}, true)
	require.NoError(t, s.Step(context.Background()))

	s.Close()
	for _, w := range s.Worlds() {
		assert.Zero(t, w.Len(), w.Name())
	}
	assert.Equal(t, uint64(6), s.Stats().Removed)
}

func TestNewRejectsUnknownTree(t *testing.T) {
	cfg := config.Config{
		Worlds: []config.WorldSpec{field("a", config.EntitySpec{
			Name:     "lost",
			Position: config.Point{X: 10, Y: 10},
			Trees:    []config.TreeSpec{{Tree: "nowhere"}},
		})},
	}
	cfg.Normalize()
	_, err := New(context.Background(), cfg, catalogue(t, false), pathfind.NewService(pathfind.Options{}, nil), nil, nil)
	assert.ErrorIs(t, err, behavior.ErrUnknownTree)
}

func TestBuiltinTreesOutline(t *testing.T) {
	names := make([]string, 0, 4)
	for _, tree := range BuiltinTrees(false) {
		names = append(names, tree.Name())
		assert.NotEmpty(t, tree.String())
	}
	assert.ElementsMatch(t, []string{TreeWander, TreeTravel, TreeHunt, TreeGoto}, names)
}
