package measure

import (
	"cell-analyzer/internal/calibrate"
	"cell-analyzer/pkg/geometry"
)

// Line returns the physical length in µm of a straight line between two
// image-space points. Line measurements are display-only: no record is
// created and nothing is persisted.
func Line(p0, p1 geometry.Point2D, cal calibrate.Calibration) float64 {
	return cal.LineLengthUM(p0, p1)
}
