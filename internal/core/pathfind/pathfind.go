package pathfind

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zeusync/behavior/internal/core/observability/log"
	"github.com/zeusync/behavior/internal/core/systems/physics"
	"github.com/zeusync/behavior/pkg/generic"
	"github.com/zeusync/behavior/pkg/sequence"
)

const (
	straightCost = 10
	diagonalCost = 14

	// DefaultMaxExpansions bounds a single search.
	DefaultMaxExpansions = 4096
)

// Path is an ordered list of waypoints in world units. The last step is the
// goal itself.
type Path struct {
	Steps []physics.Vec2
	Goal  physics.Vec2
}

func (p Path) Len() int    { return len(p.Steps) }
func (p Path) Empty() bool { return len(p.Steps) == 0 }

type Options struct {
	MaxExpansions int
	Diagonal      bool
}

// Service runs A* searches over occupancy grids, either inline with Find or
// in the background with Request.
type Service struct {
	opts    Options
	logger  log.Log
	running atomic.Int64
	scratch *generic.Pool[*scratch]
}

// scratch holds the per-search bookkeeping maps so concurrent searches can
// reuse them.
type scratch struct {
	cost   map[physics.Tile]int
	parent map[physics.Tile]physics.Tile
	closed map[physics.Tile]struct{}
}

func newScratch() *scratch {
	return &scratch{
		cost:   make(map[physics.Tile]int),
		parent: make(map[physics.Tile]physics.Tile),
		closed: make(map[physics.Tile]struct{}),
	}
}

func (sc *scratch) reset() {
	clear(sc.cost)
	clear(sc.parent)
	clear(sc.closed)
}

func NewService(opts Options, logger log.Log) *Service {
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultMaxExpansions
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		opts:    opts,
		logger:  logger.Named("pathfind"),
		scratch: generic.NewPool(newScratch, (*scratch).reset),
	}
}

// Running returns the number of background searches in flight.
func (s *Service) Running() int64 { return s.running.Load() }

// Find searches a path from one world position to another. It returns false
// when the goal is blocked, unreachable within the expansion budget, or ctx ends.
func (s *Service) Find(ctx context.Context, grid Grid, from, goal physics.Vec2) (Path, bool) {
	size := grid.TileSize()
	start, end := physics.TileOf(from, size), physics.TileOf(goal, size)
	if grid.Blocked(end) {
		return Path{}, false
	}
	if start == end {
		return Path{Steps: []physics.Vec2{goal}, Goal: goal}, true
	}

	sc := s.scratch.Get()
	defer s.scratch.Put(sc)
	cost, parent, closed := sc.cost, sc.parent, sc.closed
	cost[start] = 0
	queue := sequence.NewPriorityQueue[physics.Tile]()
	queue.Enqueue(start, -heuristic(start, end))

	for expanded := 0; !queue.IsEmpty(); expanded++ {
		if expanded >= s.opts.MaxExpansions {
			s.logger.Debug("search budget exhausted", log.Int("expansions", expanded))
			return Path{}, false
		}
		if expanded%64 == 0 && ctx.Err() != nil {
			return Path{}, false
		}
		current, _ := queue.Dequeue()
		if _, done := closed[current]; done {
			continue
		}
		if current == end {
			return Path{Steps: smooth(reconstruct(parent, start, end, size, goal)), Goal: goal}, true
		}
		closed[current] = struct{}{}

		for _, step := range s.neighbours(grid, current) {
			if _, done := closed[step.tile]; done {
				continue
			}
			next := cost[current] + step.cost
			if known, ok := cost[step.tile]; ok && known <= next {
				continue
			}
			cost[step.tile] = next
			parent[step.tile] = current
			queue.Enqueue(step.tile, -(next + heuristic(step.tile, end)))
		}
	}
	return Path{}, false
}

type neighbour struct {
	tile physics.Tile
	cost int
}

var (
	orthogonal = [...]physics.Tile{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	diagonal   = [...]physics.Tile{{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
)

func (s *Service) neighbours(grid Grid, t physics.Tile) []neighbour {
	out := make([]neighbour, 0, 8)
	for _, d := range orthogonal {
		n := physics.Tile{X: t.X + d.X, Y: t.Y + d.Y}
		if !grid.Blocked(n) {
			out = append(out, neighbour{tile: n, cost: straightCost})
		}
	}
	if !s.opts.Diagonal {
		return out
	}
	for _, d := range diagonal {
		n := physics.Tile{X: t.X + d.X, Y: t.Y + d.Y}
		// no corner cutting
		if grid.Blocked(n) || grid.Blocked(physics.Tile{X: t.X + d.X, Y: t.Y}) || grid.Blocked(physics.Tile{X: t.X, Y: t.Y + d.Y}) {
			continue
		}
		out = append(out, neighbour{tile: n, cost: diagonalCost})
	}
	return out
}

func heuristic(a, b physics.Tile) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx < dy {
		dx, dy = dy, dx
	}
	return straightCost*(dx-dy) + diagonalCost*dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func reconstruct(parent map[physics.Tile]physics.Tile, start, end physics.Tile, size float64, goal physics.Vec2) []physics.Vec2 {
	var tiles []physics.Tile
	for t := end; t != start; t = parent[t] {
		tiles = append(tiles, t)
	}
	steps := make([]physics.Vec2, len(tiles))
	for i, t := range tiles {
		steps[len(tiles)-1-i] = t.Center(size)
	}
	steps[len(steps)-1] = goal
	return steps
}

// smooth drops waypoints that lie on a straight run between their neighbours.
func smooth(steps []physics.Vec2) []physics.Vec2 {
	if len(steps) < 3 {
		return steps
	}
	out := []physics.Vec2{steps[0]}
	for i := 1; i < len(steps)-1; i++ {
		prev, cur, next := out[len(out)-1], steps[i], steps[i+1]
		d1, d2 := cur.Sub(prev), next.Sub(cur)
		if d1.Xv*d2.Yv-d1.Yv*d2.Xv == 0 && d1.Xv*d2.Xv+d1.Yv*d2.Yv > 0 {
			continue
		}
		out = append(out, cur)
	}
	return append(out, steps[len(steps)-1])
}

// Status is the poll result of a background search.
type Status uint8

const (
	StatusPending Status = iota
	StatusFound
	StatusNotFound
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle tracks one background search. Dropping interest is done with Cancel;
// a cancelled handle never reports a path.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
	path   Path
}

// Request starts a search on its own goroutine and returns immediately.
func (s *Service) Request(ctx context.Context, grid Grid, from, goal physics.Vec2) *Handle {
	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	s.running.Add(1)
	go func() {
		defer s.running.Add(-1)
		defer close(h.done)
		defer cancel()
		path, ok := s.Find(hctx, grid, from, goal)

		h.mu.Lock()
		defer h.mu.Unlock()
		switch {
		case h.status == StatusCancelled || hctx.Err() != nil:
			h.status = StatusCancelled
		case ok:
			h.status, h.path = StatusFound, path
		default:
			h.status = StatusNotFound
		}
	}()
	return h
}

// Poll reports the current status without blocking.
func (h *Handle) Poll() (Path, Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path, h.status
}

// Cancel stops the search if it is still running. A finished result is discarded.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.status = StatusCancelled
	h.path = Path{}
	h.mu.Unlock()
	h.cancel()
}

// Done is closed once the search goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the search completes or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Path, Status) {
	select {
	case <-h.done:
	case <-ctx.Done():
	}
	return h.Poll()
}
