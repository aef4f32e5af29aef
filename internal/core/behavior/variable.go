package behavior

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeID identifies a node inside its tree. It is the node's index in the tree arena.
type NodeID int

// AgentID identifies an agent across every tree it runs.
type AgentID = uuid.UUID

// Variable is an immutable key template for the tree store. Its flags decide
// which identities take part in the key: Local uses node and agent, NodeOnly
// the node, AgentOnly the agent and Global neither.
type Variable struct {
	name        string
	nodeScoped  bool
	agentScoped bool
	internal    bool
	owner       NodeID
	bound       bool
}

func Local(name string) Variable     { return Variable{name: name, nodeScoped: true, agentScoped: true} }
func NodeOnly(name string) Variable  { return Variable{name: name, nodeScoped: true} }
func AgentOnly(name string) Variable { return Variable{name: name, agentScoped: true} }
func Global(name string) Variable    { return Variable{name: name} }

func internalVariable(name string, node, agent bool) Variable {
	return Variable{name: name, nodeScoped: node, agentScoped: agent, internal: true}
}

var (
	// ReturnVariable is the conventional destination for values produced by leaves.
	ReturnVariable = Global("return")

	// ArgumentVariable receives the argument passed to Scheduler.Run. It is keyed
	// by agent so concurrent runs of one tree never see each other's argument.
	ArgumentVariable = AgentOnly("argument")

	RandomPositionVariable = Local("randomPosition")
	PositionVariable       = Local("position")
	PathFoundVariable      = AgentOnly("pathFound")
	NearestVariable        = AgentOnly("nearest")
	PriorityVariable       = AgentOnly("priority")
)

var (
	stateVariable        = internalVariable("state", true, true)
	compositeVariable    = internalVariable("composite", true, true)
	iterationVariable    = internalVariable("iteration", true, true)
	actionResultVariable = internalVariable("result", true, true)
	pathJobVariable      = internalVariable("pathJob", true, true)
	pathFollowedVariable = internalVariable("pathFollowed", true, true)
	ticksMovingVariable  = internalVariable("ticksMoving", true, true)
	tickVariable         = internalVariable("tick", false, true)
)

func (v Variable) Name() string      { return v.name }
func (v Variable) NodeScoped() bool  { return v.nodeScoped }
func (v Variable) AgentScoped() bool { return v.agentScoped }

// Bind pins the node part of a node-scoped variable so that any node can
// address the value written by the owner. Variables without node scope are
// returned unchanged.
func (v Variable) Bind(owner NodeID) Variable {
	if !v.nodeScoped {
		return v
	}
	v.owner = owner
	v.bound = true
	return v
}

// Bound reports the node a variable was pinned to with Bind.
func (v Variable) Bound() (NodeID, bool) { return v.owner, v.bound }

// Key builds the store key for v as seen from node for agent.
func (v Variable) Key(node NodeID, agent AgentID) Key {
	k := Key{name: v.name, internal: v.internal}
	if v.nodeScoped {
		k.hasNode = true
		k.node = node
		if v.bound {
			k.node = v.owner
		}
	}
	if v.agentScoped {
		k.hasAgent = true
		k.agent = agent
	}
	return k
}

func (v Variable) String() string {
	var kind string
	switch {
	case v.nodeScoped && v.agentScoped:
		kind = "local"
	case v.nodeScoped:
		kind = "node"
	case v.agentScoped:
		kind = "agent"
	default:
		kind = "global"
	}
	if v.bound {
		return fmt.Sprintf("%s(%s@%d)", kind, v.name, v.owner)
	}
	return fmt.Sprintf("%s(%s)", kind, v.name)
}

// Key is a structured store key. Two keys are equal only when every scoped
// identity and the name match, so identities can never collide with names.
type Key struct {
	node     NodeID
	agent    AgentID
	name     string
	hasNode  bool
	hasAgent bool
	internal bool
}

func (k Key) Node() (NodeID, bool)   { return k.node, k.hasNode }
func (k Key) Agent() (AgentID, bool) { return k.agent, k.hasAgent }
func (k Key) Name() string           { return k.name }
