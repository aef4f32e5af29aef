package behavior

import (
	"fmt"
	"math"

	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/internal/core/update"
)

// resolvePosition reads v as a world position. Positions, tiles, agent ids
// and paths (their goal) are accepted.
func resolvePosition(tc *Context, self NodeID, v Variable, env Environment) (physics.Vec2, bool, error) {
	raw, ok := tc.Store().Load(tc.Key(self, v))
	if !ok {
		return physics.Vec2{}, false, nil
	}
	switch val := raw.(type) {
	case physics.Vec2:
		return val, true, nil
	case physics.Tile:
		return val.Center(env.TileSize()), true, nil
	case AgentID:
		p, found := env.Locate(val)
		return p, found, nil
	case pathfind.Path:
		return val.Goal, true, nil
	default:
		return physics.Vec2{}, true, fmt.Errorf("%w: %s holds %T, want a position", ErrVariableTypeMismatch, v, raw)
	}
}

// MoveToOptions configures MoveTo. A zero Threshold means DefaultMoveThreshold
// and a zero FailAfter never gives up.
type MoveToOptions struct {
	Threshold float64
	FailAfter int
}

const DefaultMoveThreshold = 5

// MoveTo steers the agent towards a goal until it is within the threshold.
// Only the tree with priority changes the velocity.
type MoveTo struct {
	baseNode
	goal Variable
	opts MoveToOptions
}

func (m *MoveTo) Init(tc *Context) (State, error) {
	actor, err := tc.Actor()
	if err != nil {
		return StateFailure, err
	}
	if m.opts.FailAfter > 0 {
		tc.Set(m.id, ticksMovingVariable, 0)
	}
	_, ok, err := resolvePosition(tc, m.id, m.goal, actor.Env())
	if err != nil || !ok {
		return StateFailure, err
	}
	return StateRunning, nil
}

func (m *MoveTo) UpdateState(tc *Context) (State, error) {
	actor, err := tc.Actor()
	if err != nil {
		return StateFailure, err
	}
	goal, ok, err := resolvePosition(tc, m.id, m.goal, actor.Env())
	if err != nil || !ok {
		return StateFailure, err
	}
	if actor.Position().Distance(goal) <= m.opts.Threshold {
		return StateSuccess, nil
	}
	if m.opts.FailAfter > 0 {
		ticks, err := Require[int](tc, m.id, ticksMovingVariable)
		if err != nil {
			return StateFailure, err
		}
		if ticks >= m.opts.FailAfter {
			return StateFailure, nil
		}
	}
	return StateRunning, nil
}

func (m *MoveTo) Execute(tc *Context) error {
	if !tc.HasPriority() {
		return nil
	}
	actor, err := tc.Actor()
	if err != nil {
		return err
	}
	goal, ok, err := resolvePosition(tc, m.id, m.goal, actor.Env())
	if err != nil || !ok {
		return err
	}
	pos := actor.Position()
	speed := math.Min(actor.MoveSpeed(), pos.Distance(goal))
	actor.SetVelocity(actor.Velocity().Add(pos.Towards(goal, speed)))
	if m.opts.FailAfter > 0 {
		ticks, err := Require[int](tc, m.id, ticksMovingVariable)
		if err != nil {
			return err
		}
		tc.Set(m.id, ticksMovingVariable, ticks+1)
	}
	return nil
}

// MoveTo adds a leaf moving the agent to the position held by goal.
func (b *Builder) MoveTo(goal Variable, opts MoveToOptions) NodeID {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultMoveThreshold
	}
	id := b.state.reserve()
	label := fmt.Sprintf("goal=%s threshold=%g failAfter=%d", goal, opts.Threshold, opts.FailAfter)
	return b.leaf(&MoveTo{baseNode: newBase(id, "moveTo", label), goal: goal, opts: opts})
}

// RandomPositionOptions configures GetRandomPosition. Without a radius the
// position is drawn from the whole world; Center defaults to the agent.
type RandomPositionOptions struct {
	Center *physics.Vec2
	Radius float64
}

// GetRandomPosition stores a random reachable-looking position in dest and
// returns the variable bound to the new leaf.
func (b *Builder) GetRandomPosition(dest Variable, opts RandomPositionOptions) Variable {
	id := b.state.reserve()
	dest = dest.Bind(id)
	label := fmt.Sprintf("dest=%s radius=%g", dest, opts.Radius)
	return bindLeaf(b, dest, &DataLeaf{
		baseNode: newBase(id, "getRandomPosition", label),
		run: func(tc *Context, self NodeID) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			env, rng := actor.Env(), tc.Agent().Rand()
			bounds := env.Bounds()
			var p physics.Vec2
			if opts.Radius <= 0 {
				p = physics.V(bounds.Min.Xv+rng.Float64()*bounds.Width(), bounds.Min.Yv+rng.Float64()*bounds.Height())
			} else {
				center := actor.Position()
				if opts.Center != nil {
					center = *opts.Center
				}
				angle := rng.Float64() * 2 * math.Pi
				dist := opts.Radius * math.Sqrt(rng.Float64())
				p = bounds.Clamp(center.Add(physics.V(math.Cos(angle)*dist, math.Sin(angle)*dist)))
			}
			tc.Set(self, dest, p)
			return true, nil
		},
	})
}

// GetPosition resolves the position held by of and stores it in dest.
func (b *Builder) GetPosition(of, dest Variable) Variable {
	id := b.state.reserve()
	dest = dest.Bind(id)
	return bindLeaf(b, dest, &DataLeaf{
		baseNode: newBase(id, "getPosition", fmt.Sprintf("of=%s dest=%s", of, dest)),
		run: func(tc *Context, self NodeID) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			p, ok, err := resolvePosition(tc, self, of, actor.Env())
			if err != nil || !ok {
				return false, err
			}
			tc.Set(self, dest, p)
			return true, nil
		},
	})
}

// GetNearest stores the id of the closest other agent within radius in dest.
func (b *Builder) GetNearest(radius float64, dest Variable) Variable {
	id := b.state.reserve()
	dest = dest.Bind(id)
	return bindLeaf(b, dest, &DataLeaf{
		baseNode: newBase(id, "getNearest", fmt.Sprintf("radius=%g dest=%s", radius, dest)),
		run: func(tc *Context, self NodeID) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			other, ok := actor.Env().Nearest(actor.ID(), radius)
			if !ok {
				return false, nil
			}
			tc.Set(self, dest, other)
			return true, nil
		},
	})
}

// Target makes the agent held by v the attack target.
func (b *Builder) Target(v Variable) NodeID {
	return b.dataLeaf("target", "of="+v.String(), func(tc *Context, self NodeID) (bool, error) {
		actor, err := tc.Actor()
		if err != nil {
			return false, err
		}
		target, ok, err := Load[AgentID](tc, self, v)
		if err != nil || !ok {
			return false, err
		}
		if err = actor.Env().Modify(update.SetTarget{Agent: actor.ID(), Target: target}); err != nil {
			return false, err
		}
		return true, nil
	})
}

// FindPathOptions configures FindPath. Dest defaults to PathFoundVariable.
// Async runs the search in the background and polls it on later ticks.
type FindPathOptions struct {
	Dest  Variable
	Async bool
}

// FindPath searches a path to the position held by goal. The returned
// variable receives the path.
func (b *Builder) FindPath(goal Variable, opts FindPathOptions) Variable {
	if opts.Dest.name == "" {
		opts.Dest = PathFoundVariable
	}
	id := b.state.reserve()
	dest := opts.Dest.Bind(id)
	label := fmt.Sprintf("goal=%s dest=%s async=%t", goal, dest, opts.Async)
	if opts.Async {
		return bindLeaf(b, dest, &FindPathAsync{baseNode: newBase(id, "findPath", label), goal: goal, dest: dest})
	}
	return bindLeaf(b, dest, &DataLeaf{
		baseNode: newBase(id, "findPath", label),
		run: func(tc *Context, self NodeID) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			env := actor.Env()
			to, ok, err := resolvePosition(tc, self, goal, env)
			if err != nil || !ok {
				return false, err
			}
			path, found := env.Paths().Find(tc.Context(), env.Occupancy(), actor.Position(), to)
			if !found {
				return false, nil
			}
			tc.Set(self, dest, path)
			return true, nil
		},
	})
}

// FindPathAsync keeps a search handle per (node, agent). Resetting the agent
// deletes the handle, which cancels the search, so a late result is never
// written for a run that already ended.
type FindPathAsync struct {
	baseNode
	goal Variable
	dest Variable
}

func (f *FindPathAsync) Init(tc *Context) (State, error) {
	tc.Clear(f.id, pathJobVariable)
	actor, err := tc.Actor()
	if err != nil {
		return StateFailure, err
	}
	env := actor.Env()
	to, ok, err := resolvePosition(tc, f.id, f.goal, env)
	if err != nil || !ok {
		return StateFailure, err
	}
	tc.Set(f.id, pathJobVariable, env.Paths().Request(tc.Context(), env.Occupancy(), actor.Position(), to))
	return StateRunning, nil
}

func (f *FindPathAsync) UpdateState(tc *Context) (State, error) {
	h, ok, err := Load[*pathfind.Handle](tc, f.id, pathJobVariable)
	if err != nil || !ok {
		return StateFailure, err
	}
	path, status := h.Poll()
	switch status {
	case pathfind.StatusPending:
		return StateRunning, nil
	case pathfind.StatusFound:
		tc.Set(f.id, f.dest, path)
		return StateSuccess, nil
	default:
		return StateFailure, nil
	}
}

func (f *FindPathAsync) Execute(*Context) error { return nil }

// FollowPath hands the path held by v to the world and succeeds once the
// agent stopped following it. The world drops reached steps; the leaf steers
// toward the next one while its tree has priority.
type FollowPath struct {
	baseNode
	path Variable
}

func (f *FollowPath) Init(tc *Context) (State, error) {
	actor, err := tc.Actor()
	if err != nil {
		return StateFailure, err
	}
	path, ok, err := Load[pathfind.Path](tc, f.id, f.path)
	if err != nil || !ok {
		return StateFailure, err
	}
	if path.Empty() {
		return StateSuccess, nil
	}
	tc.Set(f.id, pathFollowedVariable, path)
	if err = actor.Env().Modify(update.SetPath{Agent: actor.ID(), Path: path}); err != nil {
		return StateFailure, err
	}
	return StateRunning, nil
}

func (f *FollowPath) UpdateState(tc *Context) (State, error) {
	if !tc.Exists(f.id, pathFollowedVariable) {
		st, _ := tc.State(f.id)
		return st, nil
	}
	actor, err := tc.Actor()
	if err != nil {
		return StateFailure, err
	}
	if actor.FollowingPath() {
		return StateRunning, nil
	}
	return StateSuccess, nil
}

func (f *FollowPath) Execute(tc *Context) error {
	if !tc.HasPriority() {
		return nil
	}
	actor, err := tc.Actor()
	if err != nil {
		return err
	}
	next, ok := actor.NextStep()
	if !ok {
		return nil
	}
	pos := actor.Position()
	speed := math.Min(actor.MoveSpeed(), pos.Distance(next))
	actor.SetVelocity(actor.Velocity().Add(pos.Towards(next, speed)))
	return nil
}

func (b *Builder) FollowPath(path Variable) NodeID {
	id := b.state.reserve()
	return b.leaf(&FollowPath{baseNode: newBase(id, "followPath", "path="+path.String()), path: path})
}

func bindLeaf(b *Builder, dest Variable, n Node) Variable {
	b.leaf(n)
	return dest
}
