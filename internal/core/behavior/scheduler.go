package behavior

import (
	"context"
	"fmt"

	bus "github.com/zeusync/behavior/internal/core/events/bus"
	"github.com/zeusync/behavior/internal/core/observability/log"
)

// EventTreeError is published when a tree run fails and is reset.
const EventTreeError = "behavior.error"

// TreeError is the payload of EventTreeError events.
type TreeError struct {
	Tree   string
	TreeID TreeID
	Agent  AgentID
	Err    error
}

type opKind uint8

const (
	opAdd opKind = iota
	opRemove
	opPriority
)

type pendingOp struct {
	kind     opKind
	tree     *Tree
	priority int
}

// Scheduler holds the trees one agent runs and their priorities. Changes made
// while Update iterates are queued and applied in order once it is done.
type Scheduler struct {
	agent  Agent
	events bus.EventBus
	logger log.Log

	running    map[*Tree]int
	order      []*Tree
	pending    []pendingOp
	traversing bool
}

// NewScheduler creates the scheduler of agent. events and logger may be nil.
func NewScheduler(agent Agent, events bus.EventBus, logger log.Log) *Scheduler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scheduler{
		agent:   agent,
		events:  events,
		logger:  logger,
		running: make(map[*Tree]int),
	}
}

// Run starts tree for the agent at priority. A tree that is already running
// is reset first. A non-nil argument is stored under ArgumentVariable before
// the tree is initialized.
func (s *Scheduler) Run(ctx context.Context, tree *Tree, priority int, argument any) error {
	id := s.agent.ID()
	if tree.Registered(id) {
		tree.Reset(s.agent)
	}
	s.apply(pendingOp{kind: opAdd, tree: tree, priority: priority})
	if argument != nil {
		tree.store.Set(ArgumentVariable.Key(rootID, id), argument)
	}
	if err := tree.Init(ctx, s.agent); err != nil {
		s.report(tree, err)
		return err
	}
	return nil
}

// Finish removes tree from the running set. Trees call it from Reset.
func (s *Scheduler) Finish(tree *Tree) {
	s.apply(pendingOp{kind: opRemove, tree: tree})
}

// SetPriority changes the priority of a running tree.
func (s *Scheduler) SetPriority(tree *Tree, priority int) {
	s.apply(pendingOp{kind: opPriority, tree: tree, priority: priority})
}

// Priority returns the priority of tree, or -1 when it is not running.
func (s *Scheduler) Priority(tree *Tree) int {
	if p, ok := s.running[tree]; ok {
		return p
	}
	return -1
}

// HasPriority reports whether tree runs at the highest priority of all
// running trees. Leaves changing exclusive state such as velocity check it.
func (s *Scheduler) HasPriority(tree *Tree) bool {
	p, ok := s.running[tree]
	if !ok {
		return false
	}
	for _, other := range s.running {
		if other > p {
			return false
		}
	}
	return true
}

// Running returns the running trees in the order they were started.
func (s *Scheduler) Running() []*Tree {
	out := make([]*Tree, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scheduler) Len() int { return len(s.order) }

// Update ticks every running tree once. A failing tree is reset, logged and
// published as EventTreeError without stopping the others. Tree errors never
// reach the caller: the only error is ErrConcurrentModification for a
// re-entrant call.
func (s *Scheduler) Update(ctx context.Context) error {
	if s.traversing {
		return ErrConcurrentModification
	}
	s.traversing = true
	defer func() {
		s.traversing = false
		s.flush()
	}()

	for _, tree := range s.Running() {
		if !tree.Registered(s.agent.ID()) {
			continue
		}
		if _, err := tree.Update(ctx, s.agent); err != nil {
			tree.Reset(s.agent)
			s.report(tree, err)
		}
	}
	return nil
}

// ResetAll ends every running tree, e.g. when the agent leaves the world.
func (s *Scheduler) ResetAll() error {
	if s.traversing {
		return ErrConcurrentModification
	}
	for _, tree := range s.Running() {
		tree.Reset(s.agent)
	}
	return nil
}

func (s *Scheduler) apply(op pendingOp) {
	if s.traversing {
		s.pending = append(s.pending, op)
		return
	}
	switch op.kind {
	case opAdd:
		if _, ok := s.running[op.tree]; !ok {
			s.order = append(s.order, op.tree)
		}
		s.running[op.tree] = op.priority
	case opRemove:
		if _, ok := s.running[op.tree]; !ok {
			return
		}
		delete(s.running, op.tree)
		for i, t := range s.order {
			if t == op.tree {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	case opPriority:
		if _, ok := s.running[op.tree]; ok {
			s.running[op.tree] = op.priority
		}
	}
}

func (s *Scheduler) flush() {
	for len(s.pending) > 0 {
		op := s.pending[0]
		s.pending = s.pending[1:]
		s.apply(op)
	}
	s.pending = nil
}

func (s *Scheduler) report(tree *Tree, err error) {
	s.logger.Warn("behavior tree failed, run reset",
		log.String("tree", tree.name),
		log.Int("tree_id", int(tree.id)),
		log.Stringer("agent", s.agent.ID()),
		log.Error(err),
	)
	if s.events == nil {
		return
	}
	payload := TreeError{Tree: tree.name, TreeID: tree.id, Agent: s.agent.ID(), Err: err}
	if perr := s.events.Publish(bus.NewEvent(EventTreeError, s.agent.ID().String(), payload, 0, nil)); perr != nil {
		s.logger.Error("publish tree error", log.Error(fmt.Errorf("tree %q: %w", tree.name, perr)))
	}
}
