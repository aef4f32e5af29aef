package physics

// Lightweight 2D geometry shared by the world and behavior leaves.

// Vector2 is anything with a planar position.
type Vector2 interface {
	X() float64
	Y() float64
}

// Positioned exposes a position in world units.
type Positioned interface {
	Position() Vec2
}
