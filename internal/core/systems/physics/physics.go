package physics

import "math"

type Vec2 struct{ Xv, Yv float64 }

func V(x, y float64) Vec2 { return Vec2{Xv: x, Yv: y} }

func (v Vec2) X() float64 { return v.Xv }
func (v Vec2) Y() float64 { return v.Yv }

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v.Xv + o.Xv, v.Yv + o.Yv} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{v.Xv - o.Xv, v.Yv - o.Yv} }
func (v Vec2) Scale(f float64) Vec2    { return Vec2{v.Xv * f, v.Yv * f} }
func (v Vec2) Len() float64            { return math.Hypot(v.Xv, v.Yv) }
func (v Vec2) Distance(o Vec2) float64 { return Distance2(v.Xv, v.Yv, o.Xv, o.Yv) }

// Normalize returns the unit vector in the direction of v, or the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.Xv / l, v.Yv / l}
}

// Towards returns a vector of length speed pointing from v to target.
func (v Vec2) Towards(target Vec2, speed float64) Vec2 {
	return target.Sub(v).Normalize().Scale(speed)
}

// Tile is an integer cell coordinate on the occupancy grid.
type Tile struct{ X, Y int }

// TileOf converts a world position into the tile containing it.
func TileOf(p Vec2, size float64) Tile {
	return Tile{X: int(math.Floor(p.Xv / size)), Y: int(math.Floor(p.Yv / size))}
}

// Center returns the world position of the tile center.
func (t Tile) Center(size float64) Vec2 {
	return Vec2{(float64(t.X) + 0.5) * size, (float64(t.Y) + 0.5) * size}
}

// Rect is an axis-aligned box, Min inclusive and Max exclusive.
type Rect struct{ Min, Max Vec2 }

func (r Rect) Contains(p Vec2) bool {
	return p.Xv >= r.Min.Xv && p.Yv >= r.Min.Yv && p.Xv < r.Max.Xv && p.Yv < r.Max.Yv
}

func (r Rect) Width() float64  { return r.Max.Xv - r.Min.Xv }
func (r Rect) Height() float64 { return r.Max.Yv - r.Min.Yv }

// Clamp moves p to the closest point inside r.
func (r Rect) Clamp(p Vec2) Vec2 {
	return Vec2{
		Xv: math.Max(r.Min.Xv, math.Min(p.Xv, math.Nextafter(r.Max.Xv, r.Min.Xv))),
		Yv: math.Max(r.Min.Yv, math.Min(p.Yv, math.Nextafter(r.Max.Yv, r.Min.Yv))),
	}
}

// Distance2 computes Euclidean distance between two 2D points.
func Distance2(x1, y1, x2, y2 float64) float64 { return math.Hypot(x2-x1, y2-y1) }

// Distance2V computes distance from two Vector2.
func Distance2V(a, b Vector2) float64 { return math.Hypot(b.X()-a.X(), b.Y()-a.Y()) }
