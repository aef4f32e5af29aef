package behavior

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zeusync/behavior/internal/core/observability/log"
)

// TreeID is assigned by a Catalogue on registration.
type TreeID int

// UnregisteredTree is the id of a tree no catalogue has accepted yet.
const UnregisteredTree TreeID = -1

// Tree owns an immutable node graph, its store and the set of agents
// currently running it.
type Tree struct {
	id        TreeID
	name      string
	nodes     []Node
	subtrees  [][]NodeID
	store     *Store
	catalogue *Catalogue
	logger    log.Log

	mu     sync.Mutex
	agents map[AgentID]struct{}
}

const rootID NodeID = 0

func newTree(name string, nodes []Node) *Tree {
	t := &Tree{
		id:     UnregisteredTree,
		name:   name,
		nodes:  nodes,
		store:  NewStore(),
		logger: log.NewNop(),
		agents: make(map[AgentID]struct{}),
	}
	t.subtrees = make([][]NodeID, len(nodes))
	// children always have larger ids than their parent
	for id := len(nodes) - 1; id >= 0; id-- {
		sub := []NodeID{NodeID(id)}
		for _, child := range nodes[id].Children() {
			sub = append(sub, t.subtrees[child]...)
		}
		t.subtrees[id] = sub
	}
	return t
}

func (t *Tree) ID() TreeID    { return t.id }
func (t *Tree) Name() string  { return t.name }
func (t *Tree) Store() *Store { return t.store }
func (t *Tree) Len() int      { return len(t.nodes) }
func (t *Tree) Root() Node    { return t.nodes[rootID] }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

func (t *Tree) node(id NodeID) Node { return t.nodes[id] }

func (t *Tree) subtree(id NodeID) []NodeID { return t.subtrees[id] }

// Registered reports whether Init was called for agent without a Reset since.
func (t *Tree) Registered(agent AgentID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.agents[agent]
	return ok
}

// Agents returns the number of agents currently running the tree.
func (t *Tree) Agents() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.agents)
}

// Init starts a run of the tree for agent. It does nothing when the agent is
// already registered. A failing init resets the agent.
func (t *Tree) Init(ctx context.Context, agent Agent) error {
	t.mu.Lock()
	if _, ok := t.agents[agent.ID()]; ok {
		t.mu.Unlock()
		return nil
	}
	t.agents[agent.ID()] = struct{}{}
	t.mu.Unlock()

	tc := newContext(ctx, t, agent, t.currentTick(agent.ID()))
	if _, err := tc.Init(rootID); err != nil {
		t.Reset(agent)
		return err
	}
	return nil
}

// Update advances the run of agent by one tick. A running root is executed;
// any other root state ends the run with Reset.
func (t *Tree) Update(ctx context.Context, agent Agent) (State, error) {
	if !t.Registered(agent.ID()) {
		return StateFailure, fmt.Errorf("%w: tree %q agent %s", ErrUnregisteredAgent, t.name, agent.ID())
	}
	tick := t.currentTick(agent.ID()) + 1
	t.store.Set(tickVariable.Key(rootID, agent.ID()), tick)

	tc := newContext(ctx, t, agent, tick)
	st, err := tc.Update(rootID)
	if err != nil {
		return StateFailure, err
	}
	if st != StateRunning {
		t.logger.Debug("tree run finished",
			log.Stringer("agent", agent.ID()),
			log.Stringer("state", st),
			log.Uint64("ticks", tick),
		)
		t.Reset(agent)
		return st, nil
	}
	if err = tc.Execute(rootID); err != nil {
		return StateFailure, err
	}
	return st, nil
}

// Reset ends the run for agent: the scheduler is told the tree finished, the
// agent is unregistered and every store entry scoped to it is removed.
func (t *Tree) Reset(agent Agent) {
	agent.Behavior().Finish(t)
	t.mu.Lock()
	delete(t.agents, agent.ID())
	t.mu.Unlock()
	t.store.DeleteAgent(agent.ID())
}

// HasPriority reports whether this tree has the highest priority among the
// trees agent runs.
func (t *Tree) HasPriority(agent Agent) bool {
	return agent.Behavior().HasPriority(t)
}

// Catalogue returns the catalogue the tree was registered with, if any.
func (t *Tree) Catalogue() *Catalogue { return t.catalogue }

func (t *Tree) currentTick(agent AgentID) uint64 {
	tick, _, _ := Get[uint64](t.store, tickVariable.Key(rootID, agent))
	return tick
}

// String renders the graph as an indented outline.
func (t *Tree) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tree %q (id %d)\n", t.name, t.id)
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n := t.nodes[id]
		sb.WriteString(strings.Repeat("  ", depth+1))
		if s, ok := n.(fmt.Stringer); ok {
			sb.WriteString(s.String())
		} else {
			sb.WriteString(n.Kind())
		}
		fmt.Fprintf(&sb, " #%d\n", id)
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
	}
	walk(rootID, 0)
	return sb.String()
}
