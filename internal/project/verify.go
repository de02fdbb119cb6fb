package project

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// verifyTol is the relative/absolute tolerance for comparing stored µm
// values against recomputation. Loose enough to absorb float formatting
// differences between writers, tight enough to catch edited or truncated
// files.
const verifyTol = 1e-6

// Verify checks that a snapshot's stored measurement values agree with
// recomputation from their contours and the restored calibration. The
// default load path trusts the file and does not call this; it is a
// conformance check used by tooling.
func Verify(t TabSnapshot) error {
	img, _, err := t.DecodeImage()
	if err != nil {
		return err
	}
	cal, err := t.Calibration(img)
	if err != nil {
		return err
	}

	for _, rec := range t.CellMeasurements {
		bounds := rec.Contour.BoundingRect()
		wantArea := cal.AreaUM2(rec.Contour.Area())
		wantWidth := cal.WidthUM(bounds.Width)
		wantHeight := cal.HeightUM(bounds.Height)

		if !scalar.EqualWithinAbsOrRel(rec.AreaUM2, wantArea, verifyTol, verifyTol) {
			return fmt.Errorf("%w: cell %d area %g µm², recomputed %g", ErrCorruptProjectData, rec.ID, rec.AreaUM2, wantArea)
		}
		if !scalar.EqualWithinAbsOrRel(rec.WidthUM, wantWidth, verifyTol, verifyTol) {
			return fmt.Errorf("%w: cell %d width %g µm, recomputed %g", ErrCorruptProjectData, rec.ID, rec.WidthUM, wantWidth)
		}
		if !scalar.EqualWithinAbsOrRel(rec.HeightUM, wantHeight, verifyTol, verifyTol) {
			return fmt.Errorf("%w: cell %d height %g µm, recomputed %g", ErrCorruptProjectData, rec.ID, rec.HeightUM, wantHeight)
		}
	}
	return nil
}
