package pathfind

import "github.com/zeusync/behavior/internal/core/systems/physics"

// Grid is a read-only occupancy view. Implementations must be safe to read
// from search goroutines while the world keeps ticking.
type Grid interface {
	Blocked(t physics.Tile) bool
	Size() (width, height int)
	TileSize() float64
}

// StaticGrid is an immutable occupancy snapshot.
type StaticGrid struct {
	width, height int
	tileSize      float64
	blocked       map[physics.Tile]struct{}
}

var _ Grid = (*StaticGrid)(nil)

// NewGrid copies blocked so later changes by the caller never reach running searches.
func NewGrid(width, height int, tileSize float64, blocked ...physics.Tile) *StaticGrid {
	g := &StaticGrid{
		width:    width,
		height:   height,
		tileSize: tileSize,
		blocked:  make(map[physics.Tile]struct{}, len(blocked)),
	}
	for _, t := range blocked {
		g.blocked[t] = struct{}{}
	}
	return g
}

// With returns a new grid with extra tiles blocked.
func (g *StaticGrid) With(blocked ...physics.Tile) *StaticGrid {
	all := make([]physics.Tile, 0, len(g.blocked)+len(blocked))
	for t := range g.blocked {
		all = append(all, t)
	}
	return NewGrid(g.width, g.height, g.tileSize, append(all, blocked...)...)
}

// Blocked reports true for blocked tiles and for tiles outside the grid.
func (g *StaticGrid) Blocked(t physics.Tile) bool {
	if t.X < 0 || t.Y < 0 || t.X >= g.width || t.Y >= g.height {
		return true
	}
	_, ok := g.blocked[t]
	return ok
}

func (g *StaticGrid) Size() (int, int) { return g.width, g.height }

func (g *StaticGrid) TileSize() float64 { return g.tileSize }
