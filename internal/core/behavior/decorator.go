package behavior

// decorator is a composite with exactly one child. The builder guarantees the
// child exists.
type decorator struct {
	baseNode
	child NodeID
}

func (d *decorator) Children() []NodeID { return []NodeID{d.child} }

func (d *decorator) Init(tc *Context) (State, error) {
	if _, err := tc.Init(d.child); err != nil {
		return StateFailure, err
	}
	return StateRunning, nil
}

func (d *decorator) Execute(tc *Context) error {
	return tc.Execute(d.child)
}

// Inverter swaps success and failure of its child.
type Inverter struct{ decorator }

func (i *Inverter) UpdateState(tc *Context) (State, error) {
	st, err := tc.Update(i.child)
	if err != nil {
		return StateFailure, err
	}
	switch st {
	case StateSuccess:
		return StateFailure, nil
	case StateFailure:
		return StateSuccess, nil
	default:
		return st, nil
	}
}

// Succeeder reports success once its child finished, whatever the outcome.
// A stopped child still stops the run.
type Succeeder struct{ decorator }

func (s *Succeeder) UpdateState(tc *Context) (State, error) {
	st, err := tc.Update(s.child)
	if err != nil {
		return StateFailure, err
	}
	if st == StateSuccess || st == StateFailure {
		return StateSuccess, nil
	}
	return st, nil
}

// RepeatOptions configures a Repeater. A negative Iterations repeats forever.
type RepeatOptions struct {
	Iterations   int
	UntilFail    bool
	UntilSucceed bool
}

// Repeater runs its child again each time it finishes. The iteration counter
// lives in the store, keyed by the repeater and the agent.
type Repeater struct {
	decorator
	opts RepeatOptions
}

func (r *Repeater) Init(tc *Context) (State, error) {
	if r.opts.Iterations == 0 {
		return StateSuccess, nil
	}
	tc.Set(r.id, iterationVariable, 1)
	return r.decorator.Init(tc)
}

func (r *Repeater) UpdateState(tc *Context) (State, error) {
	if r.opts.Iterations == 0 {
		return StateSuccess, nil
	}
	st, err := tc.Update(r.child)
	if err != nil {
		return StateFailure, err
	}
	switch {
	case st == StateRunning || st == StateStopped:
		return st, nil
	case r.opts.UntilFail && st == StateFailure:
		return StateSuccess, nil
	case r.opts.UntilSucceed && st == StateSuccess:
		return StateSuccess, nil
	}
	n, err := Require[int](tc, r.id, iterationVariable)
	if err != nil {
		return StateFailure, err
	}
	if r.opts.Iterations > 0 && n >= r.opts.Iterations {
		return st, nil
	}
	return StateRunning, nil
}

// Execute drives a running child, or starts the next iteration once the child
// finished. A restarted child is first updated on the next tick.
func (r *Repeater) Execute(tc *Context) error {
	if st, _ := tc.State(r.child); st == StateRunning {
		return tc.Execute(r.child)
	}
	n, err := Require[int](tc, r.id, iterationVariable)
	if err != nil {
		return err
	}
	tc.clearSubtree(r.child)
	if _, err = tc.Init(r.child); err != nil {
		return err
	}
	tc.Set(r.id, iterationVariable, n+1)
	return nil
}
