package loader

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behavior/internal/core/behavior"
)

const wanderYAML = `
trees:
  - name: wander
    nodes:
      - type: getRandomPosition
        radius: 64
        as: spot
      - type: findPath
        goal: spot
        async: true
        as: route
      - type: followPath
        path: route
  - name: guard
    nodes:
      - type: selector
        order: parallel
        children:
          - type: condition
            name: hasTarget
          - type: runBehavior
            tree: wander
            priority: 1
            argument: global:home
      - type: repeater
        iterations: -1
        until_fail: true
        children:
          - type: condition
            name: chance
            params:
              p: 0.5
`

func TestLoadYAMLBuildsTrees(t *testing.T) {
	f, err := LoadYAML(strings.NewReader(wanderYAML))
	require.NoError(t, err)
	require.Len(t, f.Trees, 2)

	cat := behavior.NewCatalogue(nil)
	trees, err := f.Register(cat, nil)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, 2, cat.Len())

	wander, ok := cat.ByName("wander")
	require.True(t, ok)
	assert.Equal(t, behavior.TreeID(0), wander.ID())
	out := wander.String()
	assert.Contains(t, out, "getRandomPosition(dest=local(randomPosition@1) radius=64) #1")
	assert.Contains(t, out, "findPath(goal=local(randomPosition@1) dest=agent(pathFound) async=true) #2")
	assert.Contains(t, out, "followPath(path=agent(pathFound)) #3")

	guard, ok := cat.ByName("guard")
	require.True(t, ok)
	assert.Contains(t, guard.String(), "runBehavior(tree=wander priority=1 argument=global(home))")
	assert.Contains(t, guard.String(), "repeater(iterations=-1 untilFail=true untilSucceed=false)")
}

func TestLoadJSON(t *testing.T) {
	doc := `{"trees": [{"name": "idle", "nodes": [
		{"type": "sequence", "order": "random", "children": [
			{"type": "action", "name": "idle"},
			{"type": "condition", "name": "chance", "params": {"p": 1}}
		]}
	]}]}`
	f, err := LoadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	trees, err := f.Build(nil)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	agent := newAgent()
	ctx := context.Background()
	require.NoError(t, agent.sched.Run(ctx, trees[0], 0, nil))
	var st behavior.State
	for i := 0; i < 5 && (i == 0 || st == behavior.StateRunning); i++ {
		st, err = trees[0].Update(ctx, agent)
		require.NoError(t, err)
	}
	assert.Equal(t, behavior.StateSuccess, st)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("trees:\n  - name: x\n    nodez: []\n"))
	assert.Error(t, err)
	_, err = LoadJSON(strings.NewReader(`{"trees": [{"name": "x", "nodez": []}]}`))
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		node NodeDef
		want error
	}{
		{"unknown type", NodeDef{Type: "teleport"}, ErrUnknownNodeType},
		{"unknown condition", NodeDef{Type: "condition", Name: "isHungry"}, ErrUnknownNodeType},
		{"unknown output", NodeDef{Type: "moveTo", Goal: "somewhere"}, ErrUnknownVariable},
		{"bad scope", NodeDef{Type: "target", Var: "team:leader"}, ErrUnknownVariable},
		{"missing goal", NodeDef{Type: "findPath"}, ErrMissingAttribute},
		{"missing tree", NodeDef{Type: "runBehavior"}, ErrMissingAttribute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TreeDef{Name: "broken", Nodes: []NodeDef{tc.node}}.Build(NewRegistry())
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "nodes[0]")
		})
	}

	_, err := TreeDef{Name: "empty", Nodes: []NodeDef{{Type: "inverter"}}}.Build(NewRegistry())
	assert.ErrorIs(t, err, behavior.ErrDecoratorWithoutChild)
	_, err = TreeDef{Name: "order", Nodes: []NodeDef{{Type: "sequence", Order: "sideways"}}}.Build(NewRegistry())
	assert.Error(t, err)
	_, err = TreeDef{Name: "chance", Nodes: []NodeDef{{Type: "condition", Name: "chance", Params: map[string]any{"p": 3}}}}.Build(NewRegistry())
	assert.Error(t, err)
}

func TestRegisterIsAllOrNothing(t *testing.T) {
	f := &File{Trees: []TreeDef{
		{Name: "fine", Nodes: []NodeDef{{Type: "succeed"}}},
		{Name: "broken", Nodes: []NodeDef{{Type: "teleport"}}},
	}}
	cat := behavior.NewCatalogue(nil)
	_, err := f.Register(cat, nil)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
	assert.Zero(t, cat.Len())
}

func TestCustomRegistryEntries(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.RegisterAction("count", func(map[string]any) (ActionFunc, error) {
		return func(*behavior.Context) (behavior.State, error) {
			calls++
			return behavior.StateSuccess, nil
		}, nil
	})
	tree, err := TreeDef{Name: "custom", Nodes: []NodeDef{{Type: "action", Name: "count"}}}.Build(reg)
	require.NoError(t, err)

	agent := newAgent()
	ctx := context.Background()
	require.NoError(t, agent.sched.Run(ctx, tree, 0, nil))
	_, err = tree.Update(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsSetCondition(t *testing.T) {
	tree, err := TreeDef{Name: "flag", Nodes: []NodeDef{
		{Type: "condition", Name: "isSet", Params: map[string]any{"var": "agent:argument"}},
	}}.Build(nil)
	require.NoError(t, err)

	agent := newAgent()
	ctx := context.Background()
	require.NoError(t, agent.sched.Run(ctx, tree, 0, "go"))
	st, err := tree.Update(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, behavior.StateSuccess, st)

	require.NoError(t, agent.sched.Run(ctx, tree, 0, nil))
	st, err = tree.Update(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, behavior.StateFailure, st)

	_, err = TreeDef{Name: "local", Nodes: []NodeDef{
		{Type: "condition", Name: "isSet", Params: map[string]any{"var": "local:x"}},
	}}.Build(nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trees.yml")
	require.NoError(t, os.WriteFile(path, []byte(wanderYAML), 0o600))
	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Trees, 2)

	_, err = LoadFile(filepath.Join(dir, "trees.toml"))
	assert.Error(t, err)
}

type agent struct {
	id    uuid.UUID
	rng   *rand.Rand
	sched *behavior.Scheduler
}

func newAgent() *agent {
	a := &agent{id: uuid.New(), rng: rand.New(rand.NewSource(7))}
	a.sched = behavior.NewScheduler(a, nil, nil)
	return a
}

func (a *agent) ID() behavior.AgentID          { return a.id }
func (a *agent) Rand() *rand.Rand              { return a.rng }
func (a *agent) Behavior() *behavior.Scheduler { return a.sched }
