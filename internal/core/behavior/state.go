package behavior

import "fmt"

// State is the outcome of a node for one agent at the current tick.
type State uint8

const (
	StateRunning State = iota
	StateSuccess
	StateFailure
	// StateStopped halts the enclosing tree run for the agent.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateSuccess:
		return "SUCCESS"
	case StateFailure:
		return "FAILURE"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether the node finished its task.
func (s State) Terminal() bool { return s != StateRunning }

// Order selects how a composite visits its children.
type Order uint8

const (
	// OrderOrdered visits children in declaration order.
	OrderOrdered Order = iota
	// OrderRandom shuffles children once per init for each agent.
	OrderRandom
	// OrderParallel initializes, updates and executes every child on every tick.
	OrderParallel
)

func (o Order) String() string {
	switch o {
	case OrderOrdered:
		return "ordered"
	case OrderRandom:
		return "random"
	case OrderParallel:
		return "parallel"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// ParseOrder accepts the names printed by Order.String.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "ordered":
		return OrderOrdered, nil
	case "random":
		return OrderRandom, nil
	case "parallel":
		return OrderParallel, nil
	default:
		return OrderOrdered, fmt.Errorf("unknown composite order %q", s)
	}
}
