package loader

import (
	"fmt"
	"sync"

	"github.com/zeusync/behavior/internal/core/behavior"
	"github.com/zeusync/behavior/internal/core/update"
)

type (
	ConditionFunc    = func(tc *behavior.Context) (bool, error)
	ActionFunc       = func(tc *behavior.Context) (behavior.State, error)
	ConditionFactory func(params map[string]any) (ConditionFunc, error)
	ActionFactory    func(params map[string]any) (ActionFunc, error)
)

// Registry resolves the named conditions and actions a definition refers to.
type Registry struct {
	mu    sync.RWMutex
	conds map[string]ConditionFactory
	acts  map[string]ActionFactory
}

// NewRegistry returns a registry holding the built-in conditions and actions.
func NewRegistry() *Registry {
	r := &Registry{
		conds: make(map[string]ConditionFactory),
		acts:  make(map[string]ActionFactory),
	}
	registerBuiltins(r)
	return r
}

func (r *Registry) RegisterCondition(name string, factory ConditionFactory) {
	r.mu.Lock()
	r.conds[name] = factory
	r.mu.Unlock()
}

func (r *Registry) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	r.acts[name] = factory
	r.mu.Unlock()
}

func (r *Registry) condition(name string, params map[string]any) (ConditionFunc, error) {
	r.mu.RLock()
	f := r.conds[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: condition %q", ErrUnknownNodeType, name)
	}
	return f(params)
}

func (r *Registry) action(name string, params map[string]any) (ActionFunc, error) {
	r.mu.RLock()
	f := r.acts[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: action %q", ErrUnknownNodeType, name)
	}
	return f(params)
}

func registerBuiltins(r *Registry) {
	r.RegisterCondition("hasTarget", func(map[string]any) (ConditionFunc, error) {
		return func(tc *behavior.Context) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			_, ok := actor.Target()
			return ok, nil
		}, nil
	})
	r.RegisterCondition("followingPath", func(map[string]any) (ConditionFunc, error) {
		return func(tc *behavior.Context) (bool, error) {
			actor, err := tc.Actor()
			if err != nil {
				return false, err
			}
			return actor.FollowingPath(), nil
		}, nil
	})
	// chance succeeds with probability p drawn from the agent's random stream.
	r.RegisterCondition("chance", func(params map[string]any) (ConditionFunc, error) {
		p, ok := number(params["p"])
		if !ok || p < 0 || p > 1 {
			return nil, fmt.Errorf("chance requires 'p' in [0, 1]")
		}
		return func(tc *behavior.Context) (bool, error) {
			return tc.Agent().Rand().Float64() < p, nil
		}, nil
	})
	r.RegisterCondition("isSet", func(params map[string]any) (ConditionFunc, error) {
		ref, _ := params["var"].(string)
		c := &compiler{}
		v, err := c.resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("isSet: %w", err)
		}
		if v.NodeScoped() {
			return nil, fmt.Errorf("isSet: %s is node scoped", v)
		}
		return func(tc *behavior.Context) (bool, error) {
			return tc.Exists(0, v), nil
		}, nil
	})

	r.RegisterAction("idle", func(map[string]any) (ActionFunc, error) {
		return func(*behavior.Context) (behavior.State, error) { return behavior.StateSuccess, nil }, nil
	})
	r.RegisterAction("clearTarget", func(map[string]any) (ActionFunc, error) {
		return modify(func(a behavior.Actor) update.Modification { return update.ClearTarget{Agent: a.ID()} }), nil
	})
	r.RegisterAction("clearPath", func(map[string]any) (ActionFunc, error) {
		return modify(func(a behavior.Actor) update.Modification { return update.ClearPath{Agent: a.ID()} }), nil
	})
}

func modify(build func(a behavior.Actor) update.Modification) ActionFunc {
	return func(tc *behavior.Context) (behavior.State, error) {
		actor, err := tc.Actor()
		if err != nil {
			return behavior.StateFailure, err
		}
		if err = actor.Env().Modify(build(actor)); err != nil {
			return behavior.StateFailure, err
		}
		return behavior.StateSuccess, nil
	}
}

// number accepts the numeric types YAML and JSON decoding produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
