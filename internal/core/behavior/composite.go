package behavior

import "fmt"

// policy captures the only difference between a sequence and a selector:
// which child outcome lets traversal move on and which ends it early.
type policy struct {
	advance State
	stop    State
}

var (
	sequencePolicy = policy{advance: StateSuccess, stop: StateFailure}
	selectorPolicy = policy{advance: StateFailure, stop: StateSuccess}
)

// runData is the traversal state of a composite for one agent.
type runData struct {
	order       []int
	finished    []bool
	initialized []bool
}

// Composite is a sequence or selector over its children.
type Composite struct {
	baseNode
	children []NodeID
	order    Order
	policy   policy
}

func newSequence(id NodeID, order Order, children []NodeID) *Composite {
	return &Composite{
		baseNode: newBase(id, "sequence", order.String()),
		children: children,
		order:    order,
		policy:   sequencePolicy,
	}
}

func newSelector(id NodeID, order Order, children []NodeID) *Composite {
	return &Composite{
		baseNode: newBase(id, "selector", order.String()),
		children: children,
		order:    order,
		policy:   selectorPolicy,
	}
}

func (c *Composite) Children() []NodeID { return c.children }
func (c *Composite) Order() Order       { return c.order }

func (c *Composite) Init(tc *Context) (State, error) {
	n := len(c.children)
	rd := &runData{
		order:       make([]int, n),
		finished:    make([]bool, n),
		initialized: make([]bool, n),
	}
	if c.order == OrderRandom {
		copy(rd.order, tc.Agent().Rand().Perm(n))
	} else {
		for i := range rd.order {
			rd.order[i] = i
		}
	}
	tc.Set(c.id, compositeVariable, rd)
	if n == 0 {
		return StateRunning, nil
	}

	if c.order == OrderParallel {
		for i, child := range c.children {
			if _, err := tc.Init(child); err != nil {
				return StateFailure, err
			}
			rd.initialized[i] = true
		}
		return StateRunning, nil
	}

	first := rd.order[0]
	if _, err := tc.Init(c.children[first]); err != nil {
		return StateFailure, err
	}
	rd.initialized[first] = true
	return StateRunning, nil
}

func (c *Composite) UpdateState(tc *Context) (State, error) {
	rd, err := c.runData(tc)
	if err != nil {
		return StateFailure, err
	}
	if c.order == OrderParallel {
		return c.updateParallel(tc)
	}

	for _, idx := range rd.order {
		if rd.finished[idx] {
			continue
		}
		child := c.children[idx]
		if !rd.initialized[idx] {
			if _, err = tc.Init(child); err != nil {
				return StateFailure, err
			}
			rd.initialized[idx] = true
		}
		st, err := tc.Update(child)
		if err != nil {
			return StateFailure, err
		}
		switch st {
		case c.policy.advance:
			rd.finished[idx] = true
		case StateRunning:
			return StateRunning, nil
		default:
			return st, nil
		}
	}
	return c.policy.advance, nil
}

func (c *Composite) updateParallel(tc *Context) (State, error) {
	var stopped, early bool
	advanced := 0
	for _, child := range c.children {
		st, err := tc.Update(child)
		if err != nil {
			return StateFailure, err
		}
		switch st {
		case StateStopped:
			stopped = true
		case c.policy.stop:
			early = true
		case c.policy.advance:
			advanced++
		}
	}
	switch {
	case stopped:
		return StateStopped, nil
	case early:
		return c.policy.stop, nil
	case advanced == len(c.children):
		return c.policy.advance, nil
	default:
		return StateRunning, nil
	}
}

func (c *Composite) Execute(tc *Context) error {
	if c.order == OrderParallel {
		return c.executeParallel(tc)
	}
	rd, err := c.runData(tc)
	if err != nil {
		return err
	}
	for _, idx := range rd.order {
		if rd.finished[idx] || !rd.initialized[idx] {
			continue
		}
		child := c.children[idx]
		if st, _ := tc.State(child); st == StateRunning {
			return tc.Execute(child)
		}
	}
	return nil
}

func (c *Composite) executeParallel(tc *Context) error {
	self, err := tc.record(c.id)
	if err != nil {
		return err
	}
	for _, child := range c.children {
		if st, _ := tc.State(child); st != StateRunning {
			continue
		}
		if err = tc.Execute(child); err != nil {
			return err
		}
		// a child reset this composite; the remaining children belong to the new run
		if current, err := tc.record(c.id); err != nil || current != self {
			return nil
		}
	}
	return nil
}

func (c *Composite) runData(tc *Context) (*runData, error) {
	rd, ok, err := Load[*runData](tc, c.id, compositeVariable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: composite run data missing", ErrNodeNotInitialized)
	}
	return rd, nil
}

// VisitOrder returns the child order chosen at the last init for the agent.
func (c *Composite) VisitOrder(tc *Context) ([]NodeID, error) {
	rd, err := c.runData(tc)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(rd.order))
	for i, idx := range rd.order {
		out[i] = c.children[idx]
	}
	return out, nil
}
