// Package measure owns the per-image collection of confirmed cell
// measurements and the conversion of detected contours into physical-unit
// records.
package measure

import (
	"cell-analyzer/internal/calibrate"
	"cell-analyzer/pkg/geometry"
)

// DisplayErrorFraction is the uniform relative uncertainty shown next to
// every measurement (±5%). Display-only; never persisted per record.
const DisplayErrorFraction = 0.05

// Record is one user-confirmed cell measurement. The contour is a frozen
// copy of the detected boundary at creation time; the µm fields are always
// re-derivable from the contour and the current calibration.
type Record struct {
	ID       int              `json:"id"`
	AreaUM2  float64          `json:"area_um2"`
	WidthUM  float64          `json:"width_um"`
	HeightUM float64          `json:"height_um"`
	Contour  geometry.Contour `json:"contour_data"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Contour = r.Contour.Clone()
	return &out
}

// recalculate rederives the µm fields from the stored contour. Width and
// height use the inclusive pixel-count bounding box, matching the
// convention the file format's stored values were recorded with.
func (r *Record) recalculate(cal calibrate.Calibration) {
	bounds := r.Contour.BoundingRect()
	r.AreaUM2 = cal.AreaUM2(r.Contour.Area())
	r.WidthUM = cal.WidthUM(bounds.Width)
	r.HeightUM = cal.HeightUM(bounds.Height)
}
