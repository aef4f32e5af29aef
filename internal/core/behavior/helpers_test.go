package behavior

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/internal/core/update"
)

type testAgent struct {
	id        AgentID
	rng       *rand.Rand
	sched     *Scheduler
	pos       physics.Vec2
	vel       physics.Vec2
	speed     float64
	following bool
	path      pathfind.Path
	target    AgentID
	hasTarget bool
	env       *testEnv
}

var _ Actor = (*testAgent)(nil)

func newTestAgent(seed int64) *testAgent {
	a := &testAgent{id: uuid.New(), rng: rand.New(rand.NewSource(seed)), speed: 2}
	a.sched = NewScheduler(a, nil, nil)
	return a
}

func (a *testAgent) ID() AgentID                 { return a.id }
func (a *testAgent) Rand() *rand.Rand            { return a.rng }
func (a *testAgent) Behavior() *Scheduler        { return a.sched }
func (a *testAgent) Position() physics.Vec2      { return a.pos }
func (a *testAgent) Velocity() physics.Vec2      { return a.vel }
func (a *testAgent) SetVelocity(v physics.Vec2)  { a.vel = v }
func (a *testAgent) MoveSpeed() float64          { return a.speed }
func (a *testAgent) Blocked(t physics.Tile) bool { return a.env.grid.Blocked(t) }
func (a *testAgent) Target() (AgentID, bool)     { return a.target, a.hasTarget }
func (a *testAgent) FollowingPath() bool         { return a.following }
func (a *testAgent) Env() Environment            { return a.env }

// NextStep heads for the first path step; tests do not advance along paths.
func (a *testAgent) NextStep() (physics.Vec2, bool) {
	if !a.following || a.path.Empty() {
		return physics.Vec2{}, false
	}
	return a.path.Steps[0], true
}

// step integrates the velocity like a world tick would.
func (a *testAgent) step() {
	a.pos = a.pos.Add(a.vel)
	a.vel = physics.Vec2{}
}

type testEnv struct {
	grid   *pathfind.StaticGrid
	paths  *pathfind.Service
	agents map[AgentID]*testAgent
	mods   []update.Modification
}

var _ Environment = (*testEnv)(nil)

func newTestEnv(agents ...*testAgent) *testEnv {
	e := &testEnv{
		grid:   pathfind.NewGrid(20, 20, 16),
		paths:  pathfind.NewService(pathfind.Options{Diagonal: true}, nil),
		agents: make(map[AgentID]*testAgent),
	}
	for _, a := range agents {
		a.env = e
		e.agents[a.id] = a
	}
	return e
}

func (e *testEnv) Modify(m update.Modification) error {
	e.mods = append(e.mods, m)
	a := e.agents[m.Subject()]
	switch m := m.(type) {
	case update.SetPath:
		a.following, a.path = true, m.Path
	case update.ClearPath:
		a.following, a.path = false, pathfind.Path{}
	case update.SetTarget:
		a.target, a.hasTarget = m.Target, true
	}
	return nil
}

func (e *testEnv) Bounds() physics.Rect     { return physics.Rect{Max: physics.V(320, 320)} }
func (e *testEnv) TileSize() float64        { return 16 }
func (e *testEnv) Occupancy() pathfind.Grid { return e.grid }
func (e *testEnv) Paths() *pathfind.Service { return e.paths }

func (e *testEnv) Locate(id AgentID) (physics.Vec2, bool) {
	a, ok := e.agents[id]
	if !ok {
		return physics.Vec2{}, false
	}
	return a.pos, true
}

func (e *testEnv) Nearest(from AgentID, radius float64) (AgentID, bool) {
	self := e.agents[from]
	var best AgentID
	bestDist, found := radius, false
	for id, a := range e.agents {
		if id == from {
			continue
		}
		if d := a.pos.Distance(self.pos); d <= bestDist {
			best, bestDist, found = id, d, true
		}
	}
	return best, found
}

// counter is a condition that records how often it was initialized.
type counter struct {
	inits  int
	result bool
}

func (c *counter) add(b *Builder) NodeID {
	return b.Condition("counter", func(*Context) (bool, error) {
		c.inits++
		return c.result, nil
	})
}

// running adds an action that never finishes.
func running(b *Builder) NodeID {
	return b.Action("running", func(*Context) (State, error) { return StateRunning, nil })
}

func buildTree(t *testing.T, build func(b *Builder)) *Tree {
	t.Helper()
	tree, err := NewTree(t.Name(), build)
	require.NoError(t, err)
	return tree
}

func startTree(t *testing.T, tree *Tree, agent Agent) {
	t.Helper()
	require.NoError(t, agent.Behavior().Run(context.Background(), tree, 0, nil))
}

func update1(t *testing.T, tree *Tree, agent Agent) State {
	t.Helper()
	st, err := tree.Update(context.Background(), agent)
	require.NoError(t, err)
	return st
}

func agentKeys(s *Store, agent AgentID) int {
	n := 0
	for _, k := range s.Keys() {
		if id, ok := k.Agent(); ok && id == agent {
			n++
		}
	}
	return n
}
