// Package canvas provides the micrograph canvas with zoom, overlays, and
// measurement interaction.
package canvas

import (
	"image/color"

	"cell-analyzer/pkg/geometry"
)

// Overlay represents a set of drawable shapes on the canvas, in image
// coordinates.
type Overlay struct {
	Polygons []OverlayPolygon
	Lines    []OverlayLine
}

// OverlayPolygon is a closed outline to draw, typically a measured cell
// boundary.
type OverlayPolygon struct {
	Points    geometry.Contour
	Color     color.RGBA
	Thickness int
}

// OverlayLine is a straight line segment to draw, typically a length
// measurement.
type OverlayLine struct {
	P0, P1    geometry.Point2D
	Color     color.RGBA
	Thickness int
}

// Standard overlay colors. A measured cell outline is red; the selected
// one is green; in-progress lines are yellow.
var (
	ColorOutline   = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	ColorHighlight = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	ColorLine      = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	ColorTempLine  = color.RGBA{R: 240, G: 220, B: 40, A: 255}
)
