package behavior

// Node is one vertex of an immutable tree graph. Implementations must not
// keep per-agent fields: everything that varies between agents goes through
// the Context into the tree store.
type Node interface {
	ID() NodeID
	// Kind names the node type, e.g. "sequence" or "moveTo".
	Kind() string
	Children() []NodeID

	// Init prepares the node for a new run and returns its initial state.
	Init(tc *Context) (State, error)
	// UpdateState computes the node state for this tick. It may read and
	// write the store but must not change the world.
	UpdateState(tc *Context) (State, error)
	// Execute performs the node's side effects. Only called while running.
	Execute(tc *Context) error
}

type baseNode struct {
	id    NodeID
	kind  string
	label string
}

func (b *baseNode) ID() NodeID         { return b.id }
func (b *baseNode) Kind() string       { return b.kind }
func (b *baseNode) Children() []NodeID { return nil }

func (b *baseNode) String() string {
	if b.label == "" {
		return b.kind
	}
	return b.kind + "(" + b.label + ")"
}

func newBase(id NodeID, kind, label string) baseNode {
	return baseNode{id: id, kind: kind, label: label}
}
