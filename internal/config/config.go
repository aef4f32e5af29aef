package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/behavior/internal/core/observability/log"
	"github.com/zeusync/behavior/internal/core/pathfind"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/internal/core/world"
)

const (
	DefaultTickRateHz = 20
	DefaultTileSize   = 16
	DefaultSpeed      = 2
)

// Config is the simulator configuration file.
type Config struct {
	Log       log.Config     `yaml:"log"`
	Sim       SimConfig      `yaml:"sim"`
	Pathfind  PathfindConfig `yaml:"pathfind"`
	TreesFile string         `yaml:"trees_file,omitempty"`
	Worlds    []WorldSpec    `yaml:"worlds"`
}

type SimConfig struct {
	// TickRateHz of zero steps as fast as possible.
	TickRateHz float64 `yaml:"tick_rate_hz"`
	// Ticks of zero runs until the context is cancelled.
	Ticks uint64 `yaml:"ticks"`
	// Parallelism bounds how many worlds step at once. Zero means all of them.
	Parallelism int `yaml:"parallelism"`
}

type PathfindConfig struct {
	MaxExpansions int  `yaml:"max_expansions"`
	Diagonal      bool `yaml:"diagonal"`
	// Async makes the built-in trees search paths in the background.
	Async bool `yaml:"async"`
}

type WorldSpec struct {
	Name     string       `yaml:"name"`
	Seed     int64        `yaml:"seed"`
	Width    int          `yaml:"width"`
	Height   int          `yaml:"height"`
	TileSize float64      `yaml:"tile_size"`
	Blocked  []Tile       `yaml:"blocked,omitempty"`
	Walls    []Wall       `yaml:"walls,omitempty"`
	Entities []EntitySpec `yaml:"entities,omitempty"`
}

type Tile struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Wall blocks every tile of the rectangle spanned by From and To.
type Wall struct {
	From Tile `yaml:"from"`
	To   Tile `yaml:"to"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type EntitySpec struct {
	Name     string     `yaml:"name"`
	Position Point      `yaml:"position"`
	Speed    float64    `yaml:"speed"`
	Trees    []TreeSpec `yaml:"trees"`
}

// TreeSpec starts a catalogue tree. Target, when set, is passed as the tree
// argument.
type TreeSpec struct {
	Tree     string `yaml:"tree"`
	Priority int    `yaml:"priority"`
	Target   *Point `yaml:"target,omitempty"`
}

// Load reads the file at path. An empty path yields the defaults. A relative
// trees_file is resolved against the directory of the configuration file.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := defaults()
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if cfg.TreesFile != "" && !filepath.IsAbs(cfg.TreesFile) {
		cfg.TreesFile = filepath.Join(filepath.Dir(path), cfg.TreesFile)
	}
	return cfg, nil
}

// Parse decodes, normalizes and validates a YAML document. Unknown keys are
// rejected.
func Parse(b []byte) (Config, error) {
	cfg := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Log: log.Config{Level: "info", Encoding: "console"},
		Sim: SimConfig{TickRateHz: DefaultTickRateHz},
		Pathfind: PathfindConfig{
			MaxExpansions: pathfind.DefaultMaxExpansions,
			Diagonal:      true,
		},
	}
}

// Normalize fills in zero values that have a sensible default.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if c.Pathfind.MaxExpansions == 0 {
		c.Pathfind.MaxExpansions = pathfind.DefaultMaxExpansions
	}
	for i := range c.Worlds {
		w := &c.Worlds[i]
		w.Name = strings.TrimSpace(w.Name)
		if w.Name == "" {
			w.Name = fmt.Sprintf("world-%d", i)
		}
		if w.TileSize == 0 {
			w.TileSize = DefaultTileSize
		}
		for j := range w.Entities {
			e := &w.Entities[j]
			if e.Name == "" {
				e.Name = fmt.Sprintf("%s-%d", w.Name, j)
			}
			if e.Speed == 0 {
				e.Speed = DefaultSpeed
			}
		}
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.encoding: unknown encoding %q", c.Log.Encoding))
	}
	if c.Sim.TickRateHz < 0 {
		errs = append(errs, fmt.Errorf("sim.tick_rate_hz: must not be negative, got %g", c.Sim.TickRateHz))
	}
	if c.Sim.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("sim.parallelism: must not be negative, got %d", c.Sim.Parallelism))
	}
	if c.Pathfind.MaxExpansions < 0 {
		errs = append(errs, fmt.Errorf("pathfind.max_expansions: must not be negative, got %d", c.Pathfind.MaxExpansions))
	}

	seen := make(map[string]struct{}, len(c.Worlds))
	for i, w := range c.Worlds {
		prefix := fmt.Sprintf("worlds[%d] (%s)", i, w.Name)
		if _, dup := seen[w.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate world name", prefix))
		}
		seen[w.Name] = struct{}{}
		if w.Width <= 0 || w.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid size %dx%d", prefix, w.Width, w.Height))
			continue
		}
		if w.TileSize <= 0 {
			errs = append(errs, fmt.Errorf("%s: tile_size must be positive", prefix))
			continue
		}
		for _, t := range w.Blocked {
			if !w.inside(t) {
				errs = append(errs, fmt.Errorf("%s: blocked tile %d,%d outside grid", prefix, t.X, t.Y))
			}
		}
		for _, wall := range w.Walls {
			if !w.inside(wall.From) || !w.inside(wall.To) {
				errs = append(errs, fmt.Errorf("%s: wall %d,%d-%d,%d outside grid", prefix, wall.From.X, wall.From.Y, wall.To.X, wall.To.Y))
			}
		}
		bounds := physics.Rect{Max: physics.V(float64(w.Width)*w.TileSize, float64(w.Height)*w.TileSize)}
		for j, e := range w.Entities {
			if !bounds.Contains(e.Position.Vec2()) {
				errs = append(errs, fmt.Errorf("%s: entities[%d] (%s): position outside world", prefix, j, e.Name))
			}
			if e.Speed < 0 {
				errs = append(errs, fmt.Errorf("%s: entities[%d] (%s): negative speed", prefix, j, e.Name))
			}
			for k, t := range e.Trees {
				if strings.TrimSpace(t.Tree) == "" {
					errs = append(errs, fmt.Errorf("%s: entities[%d] (%s): trees[%d]: missing tree name", prefix, j, e.Name, k))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (w WorldSpec) inside(t Tile) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < w.Width && t.Y < w.Height
}

// World returns the layout a world is created from.
func (w WorldSpec) World() world.Config {
	blocked := make([]physics.Tile, 0, len(w.Blocked))
	for _, t := range w.Blocked {
		blocked = append(blocked, physics.Tile{X: t.X, Y: t.Y})
	}
	for _, wall := range w.Walls {
		x0, x1 := min(wall.From.X, wall.To.X), max(wall.From.X, wall.To.X)
		y0, y1 := min(wall.From.Y, wall.To.Y), max(wall.From.Y, wall.To.Y)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				blocked = append(blocked, physics.Tile{X: x, Y: y})
			}
		}
	}
	return world.Config{
		Name:     w.Name,
		Seed:     w.Seed,
		Width:    w.Width,
		Height:   w.Height,
		TileSize: w.TileSize,
		Blocked:  blocked,
	}
}

// Spawn returns the spawn request for e.
func (e EntitySpec) Spawn() world.EntitySpec {
	runs := make([]world.TreeRun, 0, len(e.Trees))
	for _, t := range e.Trees {
		run := world.TreeRun{Tree: t.Tree, Priority: t.Priority}
		if t.Target != nil {
			run.Argument = t.Target.Vec2()
		}
		runs = append(runs, run)
	}
	return world.EntitySpec{
		Name:     e.Name,
		Position: e.Position.Vec2(),
		Speed:    e.Speed,
		Trees:    runs,
	}
}

func (p Point) Vec2() physics.Vec2 { return physics.V(p.X, p.Y) }

// PathOptions returns the search options for the shared path service.
func (p PathfindConfig) PathOptions() pathfind.Options {
	return pathfind.Options{MaxExpansions: p.MaxExpansions, Diagonal: p.Diagonal}
}
