package world

import (
	"encoding/binary"
	"math/rand"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/behavior/internal/core/behavior"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
)

// Entity is an agent living in a World. Behavior leaves see it as a
// behavior.Actor; every change they request goes through World.Modify.
type Entity struct {
	id    uuid.UUID
	name  string
	world *World
	rng   *rand.Rand
	sched *behavior.Scheduler

	pos   physics.Vec2
	vel   physics.Vec2
	speed float64

	path      pathfind.Path
	step      int
	following bool

	target    uuid.UUID
	hasTarget bool
}

var _ behavior.Actor = (*Entity)(nil)

func newEntity(w *World, id uuid.UUID, spec EntitySpec) *Entity {
	e := &Entity{
		id:    id,
		name:  spec.Name,
		world: w,
		rng:   rand.New(rand.NewSource(entitySeed(w.seed, id))),
		pos:   spec.Position,
		speed: spec.Speed,
	}
	e.sched = behavior.NewScheduler(e, w.events, w.logger)
	return e
}

// worldSeed mixes the world name into its seed. Worlds sharing a catalogue
// share tree stores, so two worlds must never draw the same entity ids.
func worldSeed(seed int64, name string) int64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(name)
	return int64(d.Sum64())
}

// entitySeed mixes the world seed with the entity id so every entity gets
// its own reproducible random stream.
func entitySeed(worldSeed int64, id uuid.UUID) int64 {
	var buf [8 + 16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(worldSeed))
	copy(buf[8:], id[:])
	return int64(xxhash.Sum64(buf[:]))
}

func (e *Entity) ID() uuid.UUID                 { return e.id }
func (e *Entity) Name() string                  { return e.name }
func (e *Entity) Rand() *rand.Rand              { return e.rng }
func (e *Entity) Behavior() *behavior.Scheduler { return e.sched }
func (e *Entity) Position() physics.Vec2        { return e.pos }
func (e *Entity) Velocity() physics.Vec2        { return e.vel }
func (e *Entity) SetVelocity(v physics.Vec2)    { e.vel = v }
func (e *Entity) MoveSpeed() float64            { return e.speed }
func (e *Entity) FollowingPath() bool           { return e.following }
func (e *Entity) Env() behavior.Environment     { return e.world }

func (e *Entity) Blocked(t physics.Tile) bool { return e.world.grid.Blocked(t) }

func (e *Entity) Target() (uuid.UUID, bool) { return e.target, e.hasTarget }

// Path returns the path being followed and the index of the next step.
func (e *Entity) Path() (pathfind.Path, int) { return e.path, e.step }

// NextStep returns the path step the entity is heading for.
func (e *Entity) NextStep() (physics.Vec2, bool) {
	if !e.following || e.step >= e.path.Len() {
		return physics.Vec2{}, false
	}
	return e.path.Steps[e.step], true
}

// advance skips the path steps already reached. A step counts as reached
// within one unit; reaching the last one ends path following. Steering
// toward the next step is left to the tree that set the path.
func (e *Entity) advance() {
	if !e.following {
		return
	}
	for e.step < e.path.Len() && e.pos.Distance(e.path.Steps[e.step]) <= 1 {
		e.step++
	}
	if e.step >= e.path.Len() {
		e.clearPath()
	}
}

// integrate applies the velocity of this tick. Moves into blocked tiles are
// dropped and positions stay inside bounds.
func (e *Entity) integrate() {
	if e.vel == (physics.Vec2{}) {
		return
	}
	next := e.world.bounds.Clamp(e.pos.Add(e.vel))
	if !e.world.grid.Blocked(physics.TileOf(next, e.world.grid.TileSize())) {
		e.pos = next
	}
	e.vel = physics.Vec2{}
}

func (e *Entity) clearPath() {
	e.path, e.step, e.following = pathfind.Path{}, 0, false
}
