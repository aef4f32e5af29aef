// Package loader builds behavior trees from YAML or JSON definitions and
// registers them into a catalogue.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/behavior/internal/core/behavior"
	"github.com/zeusync/behavior/internal/core/systems/physics"
)

// File is a set of tree definitions.
type File struct {
	Trees []TreeDef `json:"trees" yaml:"trees"`
}

// TreeDef describes one tree. Nodes become the children of the root sequence.
type TreeDef struct {
	Name  string    `json:"name" yaml:"name"`
	Nodes []NodeDef `json:"nodes" yaml:"nodes"`
}

// NodeDef describes one node. Only the fields relevant to Type are read.
//
// Variable references use a scope prefix: "local:x", "node:x", "agent:x" or
// "global:x". A bare name refers to the output of an earlier leaf of the same
// tree that declared it with As.
type NodeDef struct {
	Type     string    `json:"type" yaml:"type"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Order    string    `json:"order,omitempty" yaml:"order,omitempty"`
	Children []NodeDef `json:"children,omitempty" yaml:"children,omitempty"`

	// leaf outputs
	Dest string `json:"dest,omitempty" yaml:"dest,omitempty"`
	As   string `json:"as,omitempty" yaml:"as,omitempty"`

	// leaf inputs
	Goal     string    `json:"goal,omitempty" yaml:"goal,omitempty"`
	Of       string    `json:"of,omitempty" yaml:"of,omitempty"`
	Path     string    `json:"path,omitempty" yaml:"path,omitempty"`
	Var      string    `json:"var,omitempty" yaml:"var,omitempty"`
	Argument string    `json:"argument,omitempty" yaml:"argument,omitempty"`
	Tree     string    `json:"tree,omitempty" yaml:"tree,omitempty"`
	Center   []float64 `json:"center,omitempty" yaml:"center,omitempty"`

	Radius    float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	FailAfter int     `json:"fail_after,omitempty" yaml:"fail_after,omitempty"`
	Async     bool    `json:"async,omitempty" yaml:"async,omitempty"`
	Priority  int     `json:"priority,omitempty" yaml:"priority,omitempty"`

	Iterations   int  `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	UntilFail    bool `json:"until_fail,omitempty" yaml:"until_fail,omitempty"`
	UntilSucceed bool `json:"until_succeed,omitempty" yaml:"until_succeed,omitempty"`

	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

var (
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrUnknownVariable  = errors.New("unknown variable reference")
	ErrMissingAttribute = errors.New("missing attribute")
)

// LoadYAML decodes a definition file from YAML.
func LoadYAML(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &f, nil
}

// LoadJSON decodes a definition file from JSON.
func LoadJSON(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &f, nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(fh)
	case ".yaml", ".yml":
		return LoadYAML(fh)
	default:
		return nil, fmt.Errorf("tree file %s: unsupported extension", path)
	}
}

// Build constructs every tree of the file. Errors of all trees are joined.
func (f *File) Build(reg *Registry) ([]*behavior.Tree, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	var (
		trees []*behavior.Tree
		errs  []error
	)
	for _, def := range f.Trees {
		t, err := def.Build(reg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		trees = append(trees, t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return trees, nil
}

// Register builds the file and registers its trees into cat. Nothing is
// registered when any tree fails to build.
func (f *File) Register(cat *behavior.Catalogue, reg *Registry) ([]*behavior.Tree, error) {
	trees, err := f.Build(reg)
	if err != nil {
		return nil, err
	}
	for _, t := range trees {
		if _, err = cat.Register(t); err != nil {
			return nil, err
		}
	}
	return trees, nil
}

// Build constructs the tree described by def.
func (def TreeDef) Build(reg *Registry) (*behavior.Tree, error) {
	c := &compiler{reg: reg, outputs: make(map[string]behavior.Variable)}
	return behavior.NewTree(def.Name, func(b *behavior.Builder) {
		c.nodes(b, def.Nodes, "nodes")
	})
}

type compiler struct {
	reg     *Registry
	outputs map[string]behavior.Variable
}

func (c *compiler) nodes(b *behavior.Builder, defs []NodeDef, at string) {
	for i, def := range defs {
		c.node(b, def, fmt.Sprintf("%s[%d]", at, i))
	}
}

func (c *compiler) node(b *behavior.Builder, def NodeDef, at string) {
	fail := func(err error) { b.Err(fmt.Errorf("%s (%s): %w", at, def.Type, err)) }
	children := func(b *behavior.Builder) { c.nodes(b, def.Children, at+".children") }
	ref := func(field, value string) (behavior.Variable, bool) {
		v, err := c.resolve(value)
		if err != nil {
			fail(fmt.Errorf("%s: %w", field, err))
			return behavior.Variable{}, false
		}
		return v, true
	}
	output := func(v behavior.Variable) {
		if def.As != "" {
			c.outputs[def.As] = v
		}
	}
	dest := func(fallback behavior.Variable) (behavior.Variable, bool) {
		if def.Dest == "" {
			return fallback, true
		}
		return ref("dest", def.Dest)
	}

	switch def.Type {
	case "sequence", "selector":
		order, err := behavior.ParseOrder(def.Order)
		if err != nil {
			fail(err)
			return
		}
		if def.Type == "sequence" {
			b.Sequence(order, children)
		} else {
			b.Selector(order, children)
		}
	case "inverter":
		b.Inverter(children)
	case "succeeder":
		b.Succeeder(children)
	case "alwaysFail":
		b.AlwaysFail(children)
	case "repeater":
		b.Repeater(behavior.RepeatOptions{
			Iterations:   def.Iterations,
			UntilFail:    def.UntilFail,
			UntilSucceed: def.UntilSucceed,
		}, children)

	case "succeed":
		b.Succeed()
	case "fail":
		b.Fail()
	case "stop":
		b.Stop()
	case "reset":
		b.Reset()

	case "condition":
		fn, err := c.reg.condition(def.Name, def.Params)
		if err != nil {
			fail(err)
			return
		}
		b.Condition(def.Name, fn)
	case "action":
		fn, err := c.reg.action(def.Name, def.Params)
		if err != nil {
			fail(err)
			return
		}
		b.Action(def.Name, fn)

	case "moveTo":
		goal, ok := ref("goal", def.Goal)
		if ok {
			b.MoveTo(goal, behavior.MoveToOptions{Threshold: def.Threshold, FailAfter: def.FailAfter})
		}
	case "getRandomPosition":
		d, ok := dest(behavior.RandomPositionVariable)
		if !ok {
			return
		}
		opts := behavior.RandomPositionOptions{Radius: def.Radius}
		if def.Center != nil {
			if len(def.Center) != 2 {
				fail(fmt.Errorf("center: want [x, y], got %d values", len(def.Center)))
				return
			}
			center := physics.V(def.Center[0], def.Center[1])
			opts.Center = &center
		}
		output(b.GetRandomPosition(d, opts))
	case "getPosition":
		of, ok := ref("of", def.Of)
		if !ok {
			return
		}
		if d, ok := dest(behavior.PositionVariable); ok {
			output(b.GetPosition(of, d))
		}
	case "getNearest":
		if d, ok := dest(behavior.NearestVariable); ok {
			output(b.GetNearest(def.Radius, d))
		}
	case "target":
		if v, ok := ref("var", def.Var); ok {
			b.Target(v)
		}
	case "findPath":
		goal, ok := ref("goal", def.Goal)
		if !ok {
			return
		}
		if d, ok := dest(behavior.PathFoundVariable); ok {
			output(b.FindPath(goal, behavior.FindPathOptions{Dest: d, Async: def.Async}))
		}
	case "followPath":
		if p, ok := ref("path", def.Path); ok {
			b.FollowPath(p)
		}

	case "runBehavior":
		if def.Tree == "" {
			fail(fmt.Errorf("%w: tree", ErrMissingAttribute))
			return
		}
		var args []behavior.Variable
		if def.Argument != "" {
			arg, ok := ref("argument", def.Argument)
			if !ok {
				return
			}
			args = append(args, arg)
		}
		b.RunBehaviorNamed(def.Tree, def.Priority, args...)
	case "getPriority":
		if d, ok := dest(behavior.PriorityVariable); ok {
			output(b.GetPriority(d))
		}
	case "setPriority":
		b.SetPriority(def.Priority)
	case "clearVariable":
		if v, ok := ref("var", def.Var); ok {
			b.ClearVariable(v)
		}

	default:
		fail(ErrUnknownNodeType)
	}
}

// resolve turns a reference into a variable.
func (c *compiler) resolve(ref string) (behavior.Variable, error) {
	if ref == "" {
		return behavior.Variable{}, ErrMissingAttribute
	}
	scope, name, scoped := strings.Cut(ref, ":")
	if !scoped {
		if v, ok := c.outputs[ref]; ok {
			return v, nil
		}
		return behavior.Variable{}, fmt.Errorf("%w: %q", ErrUnknownVariable, ref)
	}
	if name == "" {
		return behavior.Variable{}, fmt.Errorf("%w: %q has no name", ErrUnknownVariable, ref)
	}
	switch scope {
	case "local":
		return behavior.Local(name), nil
	case "node":
		return behavior.NodeOnly(name), nil
	case "agent":
		return behavior.AgentOnly(name), nil
	case "global":
		return behavior.Global(name), nil
	default:
		return behavior.Variable{}, fmt.Errorf("%w: scope %q", ErrUnknownVariable, scope)
	}
}
