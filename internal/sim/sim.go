package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zeusync/behavior/internal/config"
	"github.com/zeusync/behavior/internal/core/behavior"
	bus "github.com/zeusync/behavior/internal/core/events/bus"
	"github.com/zeusync/behavior/internal/core/observability/log"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/world"
	"github.com/zeusync/behavior/pkg/concurrent"
	"github.com/zeusync/behavior/pkg/sequence"
)

// Stats counts what happened across all worlds since the simulator started.
type Stats struct {
	Ticks         uint64
	Modifications uint64
	TreeErrors    uint64
	Removed       uint64
}

// Simulator steps a set of worlds in lock step. Worlds share the catalogue
// and the path service but nothing else, so each tick steps them
// concurrently.
type Simulator struct {
	cfg       config.SimConfig
	catalogue *behavior.Catalogue
	worlds    []*world.World
	events    bus.EventBus
	logger    log.Log
	subs      []bus.Subscription

	ticks         atomic.Uint64
	modifications atomic.Uint64
	treeErrors    atomic.Uint64
	removed       atomic.Uint64
}

// New creates every configured world and spawns its entities.
func New(ctx context.Context, cfg config.Config, cat *behavior.Catalogue, paths *pathfind.Service, events bus.EventBus, logger log.Log) (*Simulator, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if events == nil {
		events = bus.New()
	}
	s := &Simulator{
		cfg:       cfg.Sim,
		catalogue: cat,
		events:    events,
		logger:    logger.Named("sim"),
	}
	if err := s.subscribe(); err != nil {
		return nil, err
	}

	for _, spec := range cfg.Worlds {
		w, err := world.New(spec.World(), cat, paths, events, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.worlds = append(s.worlds, w)
		for _, e := range spec.Entities {
			if _, err = w.Spawn(ctx, e.Spawn()); err != nil {
				s.Close()
				return nil, fmt.Errorf("world %q: %w", spec.Name, err)
			}
		}
		s.logger.Info("world ready",
			log.String("world", w.Name()),
			log.Int("entities", w.Len()),
		)
	}
	return s, nil
}

func (s *Simulator) subscribe() error {
	counters := map[string]*atomic.Uint64{
		world.EventModification:  &s.modifications,
		world.EventEntityRemoved: &s.removed,
		behavior.EventTreeError:  &s.treeErrors,
	}
	for typ, counter := range counters {
		sub, err := s.events.Subscribe(typ, func(bus.Event) error {
			counter.Add(1)
			return nil
		})
		if err != nil {
			s.Close()
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

func (s *Simulator) Worlds() []*world.World         { return s.worlds }
func (s *Simulator) Catalogue() *behavior.Catalogue { return s.catalogue }

// World returns the world with the given name.
func (s *Simulator) World(name string) (*world.World, bool) {
	for _, w := range s.worlds {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

func (s *Simulator) Stats() Stats {
	return Stats{
		Ticks:         s.ticks.Load(),
		Modifications: s.modifications.Load(),
		TreeErrors:    s.treeErrors.Load(),
		Removed:       s.removed.Load(),
	}
}

// Step advances every world by one tick. Tree errors stay inside their world
// and only show up in Stats; the first world error, such as cancellation,
// cancels the others and is returned.
func (s *Simulator) Step(ctx context.Context) error {
	// Worlds tick with ctx, not the group context: background path searches
	// started during a tick must outlive it.
	err := concurrent.Concurrent(ctx, sequence.From(s.worlds), s.cfg.Parallelism, func(group context.Context, w *world.World) error {
		if err := group.Err(); err != nil {
			return err
		}
		if err := w.Tick(ctx); err != nil {
			return fmt.Errorf("world %q tick %d: %w", w.Name(), w.CurrentTick(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ticks.Add(1)
	return nil
}

// Run steps the worlds at the configured rate until the tick budget is spent
// or ctx is cancelled. Cancellation is a normal shutdown and returns nil.
func (s *Simulator) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if s.cfg.TickRateHz > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.cfg.TickRateHz))
		defer ticker.Stop()
		pace = ticker.C
	}

	s.logger.Info("simulation started",
		log.Int("worlds", len(s.worlds)),
		log.Float64("tick_rate_hz", s.cfg.TickRateHz),
		log.Uint64("ticks", s.cfg.Ticks),
	)
	defer func() {
		st := s.Stats()
		s.logger.Info("simulation stopped",
			log.Uint64("ticks", st.Ticks),
			log.Uint64("modifications", st.Modifications),
			log.Uint64("tree_errors", st.TreeErrors),
		)
	}()

	for s.cfg.Ticks == 0 || s.ticks.Load() < s.cfg.Ticks {
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		} else if ctx.Err() != nil {
			return nil
		}
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		s.logger.Debug("tick", log.Uint64("tick", s.ticks.Load()))
	}
	return nil
}

// Close removes every entity so their trees release background work, then
// drops the bus subscriptions. Worlds are emptied in parallel.
func (s *Simulator) Close() {
	concurrent.ParallelMust(sequence.From(s.worlds), func(w *world.World) {
		for _, e := range w.Entities() {
			if err := w.Remove(e.ID()); err != nil {
				s.logger.Warn("remove on close failed", log.String("world", w.Name()), log.Error(err))
			}
		}
	})
	for _, sub := range s.subs {
		_ = s.events.Unsubscribe(sub)
	}
	s.subs = nil
}
