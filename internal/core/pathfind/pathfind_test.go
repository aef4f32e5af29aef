package pathfind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behavior/internal/core/systems/physics"
)

const tile = 16.0

func wallGrid() *StaticGrid {
	// vertical wall at x=5 with a gap at y=9
	var blocked []physics.Tile
	for y := 0; y < 9; y++ {
		blocked = append(blocked, physics.Tile{X: 5, Y: y})
	}
	return NewGrid(10, 10, tile, blocked...)
}

func TestFindRoutesAroundWall(t *testing.T) {
	s := NewService(Options{Diagonal: true}, nil)
	from := physics.Tile{X: 1, Y: 1}.Center(tile)
	goal := physics.Tile{X: 8, Y: 1}.Center(tile)

	path, ok := s.Find(context.Background(), wallGrid(), from, goal)
	require.True(t, ok)
	assert.Equal(t, goal, path.Goal)
	assert.Equal(t, goal, path.Steps[len(path.Steps)-1])

	grid := wallGrid()
	for _, step := range path.Steps {
		assert.False(t, grid.Blocked(physics.TileOf(step, tile)), "step %v crosses a wall", step)
	}
	// the only way through is the gap in the last row
	dipped := false
	for _, step := range path.Steps {
		if physics.TileOf(step, tile).Y == 9 {
			dipped = true
		}
	}
	assert.True(t, dipped)
}

func TestFindStraightLineIsSmoothed(t *testing.T) {
	s := NewService(Options{}, nil)
	grid := NewGrid(10, 1, tile)
	goal := physics.Tile{X: 9}.Center(tile)

	path, ok := s.Find(context.Background(), grid, physics.Tile{}.Center(tile), goal)
	require.True(t, ok)
	assert.Len(t, path.Steps, 2)
	assert.Equal(t, goal, path.Steps[1])
}

func TestFindSameTile(t *testing.T) {
	s := NewService(Options{}, nil)
	goal := physics.V(20, 20)
	path, ok := s.Find(context.Background(), NewGrid(4, 4, tile), physics.V(17, 17), goal)
	require.True(t, ok)
	assert.Equal(t, []physics.Vec2{goal}, path.Steps)
}

func TestFindFailures(t *testing.T) {
	s := NewService(Options{}, nil)
	grid := wallGrid().With(physics.Tile{X: 5, Y: 9})
	from := physics.Tile{X: 1, Y: 1}.Center(tile)

	_, ok := s.Find(context.Background(), grid, from, physics.Tile{X: 8, Y: 1}.Center(tile))
	assert.False(t, ok, "sealed wall")

	_, ok = s.Find(context.Background(), grid, from, physics.Tile{X: 5, Y: 3}.Center(tile))
	assert.False(t, ok, "blocked goal")

	_, ok = s.Find(context.Background(), grid, from, physics.V(-10, 5))
	assert.False(t, ok, "outside grid")

	tight := NewService(Options{MaxExpansions: 3}, nil)
	_, ok = tight.Find(context.Background(), NewGrid(50, 50, tile), from, physics.Tile{X: 40, Y: 40}.Center(tile))
	assert.False(t, ok, "expansion budget")
}

func TestRequestCompletes(t *testing.T) {
	s := NewService(Options{Diagonal: true}, nil)
	h := s.Request(context.Background(), wallGrid(), physics.Tile{X: 1, Y: 1}.Center(tile), physics.Tile{X: 8, Y: 8}.Center(tile))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	path, status := h.Wait(ctx)
	require.Equal(t, StatusFound, status)
	assert.False(t, path.Empty())
	assert.Eventually(t, func() bool { return s.Running() == 0 }, time.Second, time.Millisecond)
}

func TestCancelDiscardsResult(t *testing.T) {
	s := NewService(Options{}, nil)
	h := s.Request(context.Background(), NewGrid(4, 4, tile), physics.V(1, 1), physics.V(60, 60))
	<-h.Done()
	h.Cancel()

	path, status := h.Poll()
	assert.Equal(t, StatusCancelled, status)
	assert.True(t, path.Empty())
}

func TestParentContextCancelsRequest(t *testing.T) {
	s := NewService(Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := s.Request(ctx, NewGrid(200, 200, tile), physics.V(1, 1), physics.Tile{X: 199, Y: 199}.Center(tile))
	<-h.Done()

	_, status := h.Poll()
	assert.Equal(t, StatusCancelled, status)
}
