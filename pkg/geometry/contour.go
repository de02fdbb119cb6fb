package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Contour is a closed polygon in pixel coordinates, stored as an ordered
// vertex sequence. The closing edge from the last vertex back to the first
// is implicit.
//
// The JSON encoding matches the OpenCV contour layout used by the project
// file format: each vertex is wrapped in a single-element array, so a
// contour serializes as [[[x, y]], [[x, y]], ...].
type Contour []PointInt

// Area returns the enclosed area in square pixels using the shoelace formula.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	n := len(c)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += float64(c[i].X)*float64(c[j].Y) - float64(c[j].X)*float64(c[i].Y)
	}
	return math.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding box of the contour.
func (c Contour) Bounds() RectInt {
	if len(c) == 0 {
		return RectInt{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
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
	return RectInt{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// BoundingRect returns the bounding box with inclusive pixel-count
// extents: a contour spanning columns 3..7 is 5 pixels wide, not 4.
// This is OpenCV's boundingRect convention, which the stored
// measurement values in existing project files were derived with.
func (c Contour) BoundingRect() RectInt {
	if len(c) == 0 {
		return RectInt{}
	}
	r := c.Bounds()
	r.Width++
	r.Height++
	return r
}

// Centroid returns the average position of the contour vertices.
func (c Contour) Centroid() Point2D {
	if len(c) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range c {
		sumX += float64(p.X)
		sumY += float64(p.Y)
	}
	n := float64(len(c))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// Contains tests whether the point lies inside the contour. Points exactly
// on an edge or vertex count as inside, matching OpenCV's
// pointPolygonTest(..) >= 0 convention.
func (c Contour) Contains(p PointInt) bool {
	if len(c) < 3 {
		return false
	}

	n := len(c)
	for i := 0; i < n; i++ {
		if onSegment(c[i], c[(i+1)%n], p) {
			return true
		}
	}

	// Ray cast to the right
	inside := false
	px, py := float64(p.X), float64(p.Y)
	for i := 0; i < n; i++ {
		a, b := c[i], c[(i+1)%n]
		ay, by := float64(a.Y), float64(b.Y)
		if (ay > py) != (by > py) {
			ax, bx := float64(a.X), float64(b.X)
			if px < (bx-ax)*(py-ay)/(by-ay)+ax {
				inside = !inside
			}
		}
	}
	return inside
}

// Clone returns a deep copy of the contour.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// MarshalJSON encodes the contour as [[[x, y]], ...].
func (c Contour) MarshalJSON() ([]byte, error) {
	wire := make([][][2]int, len(c))
	for i, p := range c {
		wire[i] = [][2]int{{p.X, p.Y}}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes both the wrapped [[[x, y]], ...] layout and the
// flat [[x, y], ...] layout.
func (c *Contour) UnmarshalJSON(data []byte) error {
	var wire [][]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("contour: %w", err)
	}

	out := make(Contour, 0, len(wire))
	for i, entry := range wire {
		var coords []int
		switch len(entry) {
		case 1:
			// Wrapped vertex: [[x, y]]
			if err := json.Unmarshal(entry[0], &coords); err != nil {
				return fmt.Errorf("contour vertex %d: %w", i, err)
			}
		case 2:
			// Flat vertex: [x, y]
			coords = make([]int, 2)
			if err := json.Unmarshal(entry[0], &coords[0]); err != nil {
				return fmt.Errorf("contour vertex %d: %w", i, err)
			}
			if err := json.Unmarshal(entry[1], &coords[1]); err != nil {
				return fmt.Errorf("contour vertex %d: %w", i, err)
			}
		default:
			return fmt.Errorf("contour vertex %d: unexpected shape", i)
		}
		if len(coords) != 2 {
			return fmt.Errorf("contour vertex %d: expected 2 coordinates, got %d", i, len(coords))
		}
		out = append(out, PointInt{X: coords[0], Y: coords[1]})
	}

	*c = out
	return nil
}

// onSegment reports whether p lies on the segment a-b.
func onSegment(a, b, p PointInt) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}
	return p.X >= minInt(a.X, b.X) && p.X <= maxInt(a.X, b.X) &&
		p.Y >= minInt(a.Y, b.Y) && p.Y <= maxInt(a.Y, b.Y)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
