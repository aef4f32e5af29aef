package behavior

import (
	"math/rand"

	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/internal/core/update"
)

// Agent is the subject trees run for.
type Agent interface {
	ID() AgentID
	// Rand is the agent's deterministic random stream. It is only used from
	// the agent's own tick.
	Rand() *rand.Rand
	// Behavior returns the scheduler holding the trees the agent runs.
	Behavior() *Scheduler
}

// Actor is an agent living in a world. World leaves require it.
type Actor interface {
	Agent
	Position() physics.Vec2
	Velocity() physics.Vec2
	SetVelocity(v physics.Vec2)
	// MoveSpeed is the distance covered per tick at full speed.
	MoveSpeed() float64
	Blocked(t physics.Tile) bool
	Target() (AgentID, bool)
	FollowingPath() bool
	// NextStep is the path step the actor is heading for while it follows a
	// path.
	NextStep() (physics.Vec2, bool)
	Env() Environment
}

// Environment is the world as seen by leaves. Every change goes through Modify.
type Environment interface {
	Modify(m update.Modification) error
	Bounds() physics.Rect
	TileSize() float64
	Occupancy() pathfind.Grid
	Paths() *pathfind.Service
	Locate(id AgentID) (physics.Vec2, bool)
	// Nearest returns the closest other agent within radius of from.
	Nearest(from AgentID, radius float64) (AgentID, bool)
}
