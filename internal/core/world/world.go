// Package world hosts entities on a tile grid and drives their behavior
// trees one tick at a time.
package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/zeusync/behavior/internal/core/behavior"
	bus "github.com/zeusync/behavior/internal/core/events/bus"
	"github.com/zeusync/behavior/internal/core/observability/log"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/internal/core/update"
	"github.com/zeusync/behavior/pkg/sequence"
)

const (
	// EventModification is published for every modification World.Modify applied.
	EventModification = "world.modification"
	// EventEntityRemoved is published with the removed entity id as payload.
	EventEntityRemoved = "world.entity.removed"
)

var (
	ErrUnknownEntity       = errors.New("unknown entity")
	ErrUnknownModification = errors.New("unknown modification")
)

// Config describes the static layout of a world.
type Config struct {
	Name     string
	Seed     int64
	Width    int
	Height   int
	TileSize float64
	Blocked  []physics.Tile
}

// EntitySpec describes an entity to spawn and the trees it starts with.
type EntitySpec struct {
	Name     string
	Position physics.Vec2
	Speed    float64
	Trees    []TreeRun
}

// TreeRun names a catalogue tree, its priority and an optional argument.
type TreeRun struct {
	Tree     string
	Priority int
	Argument any
}

// World is single threaded: Spawn, Remove, Modify and Tick must be called
// from the goroutine stepping the world.
type World struct {
	name      string
	seed      int64
	rng       *rand.Rand
	grid      *pathfind.StaticGrid
	bounds    physics.Rect
	paths     *pathfind.Service
	catalogue *behavior.Catalogue
	events    bus.EventBus
	logger    log.Log

	tick     uint64
	entities map[uuid.UUID]*Entity
	order    []*Entity
}

var _ behavior.Environment = (*World)(nil)

// New creates an empty world. events may be nil.
func New(cfg Config, cat *behavior.Catalogue, paths *pathfind.Service, events bus.EventBus, logger log.Log) (*World, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.TileSize <= 0 {
		return nil, fmt.Errorf("world %q: invalid size %dx%d tile %g", cfg.Name, cfg.Width, cfg.Height, cfg.TileSize)
	}
	if cat == nil {
		return nil, fmt.Errorf("world %q: nil catalogue", cfg.Name)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if paths == nil {
		paths = pathfind.NewService(pathfind.Options{}, logger)
	}
	w := &World{
		name:      cfg.Name,
		seed:      cfg.Seed,
		rng:       rand.New(rand.NewSource(worldSeed(cfg.Seed, cfg.Name))),
		grid:      pathfind.NewGrid(cfg.Width, cfg.Height, cfg.TileSize, cfg.Blocked...),
		paths:     paths,
		catalogue: cat,
		events:    events,
		logger:    logger.Named("world").With(log.String("world", cfg.Name)),
		entities:  make(map[uuid.UUID]*Entity),
	}
	w.bounds = physics.Rect{Max: physics.V(float64(cfg.Width)*cfg.TileSize, float64(cfg.Height)*cfg.TileSize)}
	return w, nil
}

func (w *World) Name() string                   { return w.name }
func (w *World) CurrentTick() uint64            { return w.tick }
func (w *World) Len() int                       { return len(w.order) }
func (w *World) Bounds() physics.Rect           { return w.bounds }
func (w *World) TileSize() float64              { return w.grid.TileSize() }
func (w *World) Occupancy() pathfind.Grid       { return w.grid }
func (w *World) Paths() *pathfind.Service       { return w.paths }
func (w *World) Catalogue() *behavior.Catalogue { return w.catalogue }

// Spawn adds an entity and starts its trees. Entity ids are drawn from the
// world seed, so a world replays identically.
func (w *World) Spawn(ctx context.Context, spec EntitySpec) (*Entity, error) {
	if !w.bounds.Contains(spec.Position) {
		return nil, fmt.Errorf("spawn %q: position %v outside world %q", spec.Name, spec.Position, w.name)
	}
	id, err := uuid.NewRandomFromReader(w.rng)
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", spec.Name, err)
	}
	e := newEntity(w, id, spec)
	w.entities[id] = e
	w.order = append(w.order, e)

	for _, run := range spec.Trees {
		tree, ok := w.catalogue.ByName(run.Tree)
		if !ok {
			_ = w.Remove(id)
			return nil, fmt.Errorf("spawn %q: %w: %q", spec.Name, behavior.ErrUnknownTree, run.Tree)
		}
		if err = e.sched.Run(ctx, tree, run.Priority, run.Argument); err != nil {
			_ = w.Remove(id)
			return nil, fmt.Errorf("spawn %q: %w", spec.Name, err)
		}
	}
	w.logger.Info("entity spawned",
		log.String("entity", spec.Name),
		log.Stringer("id", id),
		log.Int("trees", len(spec.Trees)),
	)
	return e, nil
}

// Remove ends every tree of the entity and drops it. Entities targeting it
// lose their target.
func (w *World) Remove(id uuid.UUID) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if err := e.sched.ResetAll(); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	delete(w.entities, id)
	for i, other := range w.order {
		if other == e {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	for _, other := range w.order {
		if target, ok := other.Target(); ok && target == id {
			if err := w.Modify(update.ClearTarget{Agent: other.id}); err != nil {
				return err
			}
		}
	}
	w.publish(EventEntityRemoved, id)
	w.logger.Info("entity removed", log.String("entity", e.name), log.Stringer("id", id))
	return nil
}

func (w *World) Entity(id uuid.UUID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Entities returns the entities in spawn order.
func (w *World) Entities() []*Entity {
	return sequence.From(w.order).Collect()
}

// Tick advances the world by one step: entities drop the path steps they
// reached, every entity updates its trees, then all entities move. Tree
// errors are reported by each entity's scheduler and never fail the tick.
func (w *World) Tick(ctx context.Context) error {
	w.tick++
	for _, e := range w.order {
		e.advance()
	}
	var errs []error
	for _, e := range w.Entities() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.sched.Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("entity %q: %w", e.name, err))
		}
	}
	for _, e := range w.order {
		e.integrate()
	}
	return errors.Join(errs...)
}

// Modify applies m on behalf of its subject and publishes it.
func (w *World) Modify(m update.Modification) error {
	e, ok := w.entities[m.Subject()]
	if !ok {
		return fmt.Errorf("modify %s: %w: %s", m.Kind(), ErrUnknownEntity, m.Subject())
	}
	switch m := m.(type) {
	case update.SetPath:
		e.path, e.step, e.following = m.Path, 0, !m.Path.Empty()
	case update.ClearPath:
		e.clearPath()
	case update.SetTarget:
		if _, ok := w.entities[m.Target]; !ok {
			return fmt.Errorf("modify %s: %w: target %s", m.Kind(), ErrUnknownEntity, m.Target)
		}
		e.target, e.hasTarget = m.Target, true
	case update.ClearTarget:
		e.target, e.hasTarget = uuid.Nil, false
	default:
		return fmt.Errorf("%w: %T", ErrUnknownModification, m)
	}
	w.publish(EventModification, update.Applied{World: w.name, Tick: w.tick, Modification: m})
	return nil
}

func (w *World) publish(typ string, payload any) {
	if w.events == nil {
		return
	}
	if err := w.events.Publish(bus.NewEvent(typ, w.name, payload, 0, nil)); err != nil {
		w.logger.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}

func (w *World) Locate(id uuid.UUID) (physics.Vec2, bool) {
	e, ok := w.entities[id]
	if !ok {
		return physics.Vec2{}, false
	}
	return e.pos, true
}

// Nearest returns the closest other entity within radius. Ties go to the
// entity spawned first.
func (w *World) Nearest(from uuid.UUID, radius float64) (uuid.UUID, bool) {
	self, ok := w.entities[from]
	if !ok {
		return uuid.Nil, false
	}
	best, ok := sequence.MinBy(
		sequence.From(w.order).Filter(func(e *Entity) bool {
			return e != self && e.pos.Distance(self.pos) <= radius
		}),
		func(e *Entity) float64 { return e.pos.Distance(self.pos) },
	)
	if !ok {
		return uuid.Nil, false
	}
	return best.id, true
}
