package behavior

// DataLeaf finishes during init: run decides between success and failure and
// the leaf never enters the running state.
type DataLeaf struct {
	baseNode
	run func(tc *Context, self NodeID) (bool, error)
}

func (l *DataLeaf) Init(tc *Context) (State, error) {
	ok, err := l.run(tc, l.id)
	if err != nil {
		return StateFailure, err
	}
	if ok {
		return StateSuccess, nil
	}
	return StateFailure, nil
}

func (l *DataLeaf) UpdateState(tc *Context) (State, error) {
	st, _ := tc.State(l.id)
	return st, nil
}

func (l *DataLeaf) Execute(*Context) error { return nil }

// ActionLeaf stays running after init and calls do once per execute until
// do returns a terminal state, which is reported on the following update.
type ActionLeaf struct {
	baseNode
	do func(tc *Context, self NodeID) (State, error)
}

func (l *ActionLeaf) Init(tc *Context) (State, error) {
	tc.Clear(l.id, actionResultVariable)
	return StateRunning, nil
}

func (l *ActionLeaf) UpdateState(tc *Context) (State, error) {
	st, ok, err := Load[State](tc, l.id, actionResultVariable)
	if err != nil || !ok {
		return StateRunning, err
	}
	return st, nil
}

func (l *ActionLeaf) Execute(tc *Context) error {
	st, err := l.do(tc, l.id)
	if err != nil {
		return err
	}
	tc.Set(l.id, actionResultVariable, st)
	return nil
}

// fixedLeaf always reports the same state.
type fixedLeaf struct {
	baseNode
	state State
}

func (l *fixedLeaf) Init(*Context) (State, error)        { return l.state, nil }
func (l *fixedLeaf) UpdateState(*Context) (State, error) { return l.state, nil }
func (l *fixedLeaf) Execute(*Context) error              { return nil }
