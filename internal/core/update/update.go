// Package update describes the world modifications behavior leaves may
// request. Modifications are plain values; the world applies them through a
// single gate so every change can be observed.
package update

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/behavior/internal/core/pathfind"
)

type Kind uint8

const (
	KindSetPath Kind = iota + 1
	KindClearPath
	KindSetTarget
	KindClearTarget
)

func (k Kind) String() string {
	switch k {
	case KindSetPath:
		return "set_path"
	case KindClearPath:
		return "clear_path"
	case KindSetTarget:
		return "set_target"
	case KindClearTarget:
		return "clear_target"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Modification is one requested change to world state on behalf of an agent.
type Modification interface {
	Kind() Kind
	Subject() uuid.UUID
}

// SetPath makes the subject follow Path from its first step.
type SetPath struct {
	Agent uuid.UUID
	Path  pathfind.Path
}

func (m SetPath) Kind() Kind         { return KindSetPath }
func (m SetPath) Subject() uuid.UUID { return m.Agent }

// ClearPath stops any path following of the subject.
type ClearPath struct {
	Agent uuid.UUID
}

func (m ClearPath) Kind() Kind         { return KindClearPath }
func (m ClearPath) Subject() uuid.UUID { return m.Agent }

// SetTarget makes Target the attack target of the subject.
type SetTarget struct {
	Agent  uuid.UUID
	Target uuid.UUID
}

func (m SetTarget) Kind() Kind         { return KindSetTarget }
func (m SetTarget) Subject() uuid.UUID { return m.Agent }

type ClearTarget struct {
	Agent uuid.UUID
}

func (m ClearTarget) Kind() Kind         { return KindClearTarget }
func (m ClearTarget) Subject() uuid.UUID { return m.Agent }

// Applied is the event payload published after a modification took effect.
type Applied struct {
	World        string
	Tick         uint64
	Modification Modification
}
