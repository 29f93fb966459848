// Package geometry provides basic geometric types used throughout the resizer.
//
// All placement coordinates are integers in database units (DBU). Conversion
// to physical units happens at the point where per-length electrical
// quantities are applied.
package geometry

// Point represents a placement location in integer database units.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// NewPoint creates a new Point.
func NewPoint(x, y int64) Point {
	return Point{X: x, Y: y}
}

// ManhattanDistance returns the rectilinear distance |dx|+|dy| to another
// point, in database units. This is the wire length model used everywhere.
func (p Point) ManhattanDistance(other Point) int64 {
	return absInt64(p.X-other.X) + absInt64(p.Y-other.Y)
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Rect represents an axis-aligned rectangle in database units.
type Rect struct {
	X      int64 `json:"x"`
	Y      int64 `json:"y"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
