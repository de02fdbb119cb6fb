// Package session composes one loaded micrograph with its calibration,
// measurement store, and interaction mode, and exposes the operations the
// UI shell drives.
package session

import (
	"errors"
	"fmt"
	"image"

	"cell-analyzer/internal/calibrate"
	"cell-analyzer/internal/imaging"
	"cell-analyzer/internal/measure"
	"cell-analyzer/internal/project"
	"cell-analyzer/pkg/geometry"
)

// Default physical dimensions for a freshly created tab, before the user
// calibrates. Matches the historical project files' default; preferences
// can override it through Workspace.SetDefaultDimensions.
const (
	DefaultWidthUM  = 100.0
	DefaultHeightUM = 100.0
)

// ErrNoImage is returned by operations that require a loaded image.
var ErrNoImage = errors.New("no image loaded")

// Mode is the active interaction mode for a tab.
type Mode int

const (
	ModeMeasure Mode = iota // Left click adds an area measurement
	ModeLine                // Click and drag measures a straight line
)

// RegionDetector finds candidate cell boundaries in an image.
type RegionDetector interface {
	Detect(img image.Image) ([]geometry.Contour, error)
}

// Session binds one image, its calibration, its measurement store, and the
// regions the detector found in it. The selected record is tracked here as
// an explicit ID rather than in view state, so the overlay and table can
// both derive the highlight from one place.
type Session struct {
	Title      string
	Mode       Mode
	SelectedID int // 0 = nothing selected

	detector RegionDetector
	status   func(string)

	img     image.Image
	cal     calibrate.Calibration
	store   *measure.Store
	regions []geometry.Contour
}

// New creates an empty session. status receives user-facing messages and
// may be nil.
func New(title string, detector RegionDetector, status func(string)) *Session {
	s := &Session{
		Title:    title,
		detector: detector,
		status:   status,
		store:    measure.NewStore(),
	}
	s.cal = calibrate.Calibration{
		ImageWidthUM:  DefaultWidthUM,
		ImageHeightUM: DefaultHeightUM,
	}
	return s
}

// SetDefaultDimensions replaces the physical dimensions a not-yet-loaded
// tab will calibrate its first image with. Ignored once an image is
// loaded, and for non-positive values.
func (s *Session) SetDefaultDimensions(widthUM, heightUM float64) {
	if s.HasImage() || widthUM <= 0 || heightUM <= 0 {
		return
	}
	s.cal.ImageWidthUM = widthUM
	s.cal.ImageHeightUM = heightUM
}

// HasImage reports whether an image is loaded.
func (s *Session) HasImage() bool {
	return s.img != nil
}

// Image returns the loaded image, or nil.
func (s *Session) Image() image.Image {
	return s.img
}

// Calibration returns the current calibration.
func (s *Session) Calibration() calibrate.Calibration {
	return s.cal
}

// Store returns the measurement store.
func (s *Session) Store() *measure.Store {
	return s.store
}

// Regions returns the regions detected in the current image.
func (s *Session) Regions() []geometry.Contour {
	return s.regions
}

// SetStatusFunc replaces the status message sink.
func (s *Session) SetStatusFunc(fn func(string)) {
	s.status = fn
}

// LoadImage replaces the session's image: regions are re-detected, the
// store is cleared, and a fresh calibration is built from the new pixel
// dimensions and the tab's current physical dimensions. On failure the
// previous image, store, and calibration are left untouched.
func (s *Session) LoadImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("load image: %w", ErrNoImage)
	}
	bounds := img.Bounds()

	cal, err := calibrate.New(s.cal.ImageWidthUM, s.cal.ImageHeightUM, bounds.Dx(), bounds.Dy())
	if err != nil {
		return err
	}

	regions, err := s.detector.Detect(img)
	if err != nil {
		return fmt.Errorf("detect regions: %w", err)
	}

	s.img = img
	s.cal = cal
	s.regions = regions
	s.store.Clear()
	s.SelectedID = 0

	s.reportf("Image loaded: %dx%d px, %d candidate regions.", bounds.Dx(), bounds.Dy(), len(regions))
	return nil
}

// LoadImageBytes decodes raw image bytes and loads the result.
func (s *Session) LoadImageBytes(data []byte) error {
	img, err := imaging.Decode(data)
	if err != nil {
		return err
	}
	return s.LoadImage(img)
}

// ClickAt handles an area-analysis click at a point in image space. The
// first detected region containing the point becomes a measurement record;
// a click outside every region is a normal negative result reported only
// as a status message.
func (s *Session) ClickAt(pt geometry.PointInt) *measure.Record {
	if !s.HasImage() {
		s.report("No image loaded. Please import an image first.")
		return nil
	}

	rec := s.store.TryCreateAt(pt, s.regions, s.cal)
	if rec == nil {
		s.report("No cell found at that point.")
		return nil
	}

	s.SelectedID = rec.ID
	s.reportf("Cell %d added. Area: %.2f µm²", rec.ID, rec.AreaUM2)
	return rec
}

// Recalibrate replaces the physical dimensions and recomputes every
// record from its stored contour. Invalid dimensions leave calibration and
// store unchanged.
func (s *Session) Recalibrate(widthUM, heightUM float64) error {
	if !s.HasImage() {
		s.report("No image loaded. Please load an image first.")
		return ErrNoImage
	}
	if err := s.cal.Recalibrate(widthUM, heightUM); err != nil {
		return err
	}
	s.store.RecalculateAll(s.cal)
	s.report("Image dimensions updated. All measurements recalculated.")
	return nil
}

// DeleteRecord removes the record with the given ID. Passing 0 (nothing
// selected) or an absent ID is a no-op reported via status.
func (s *Session) DeleteRecord(id int) bool {
	if id == 0 || !s.store.Delete(id) {
		s.report("No measurement selected to delete.")
		return false
	}
	if s.SelectedID == id {
		s.SelectedID = 0
	}
	s.reportf("Deleted cell %d.", id)
	return true
}

// DeleteSelected removes the currently selected record, if any.
func (s *Session) DeleteSelected() bool {
	return s.DeleteRecord(s.SelectedID)
}

// Select marks the record with the given ID as selected. Unknown IDs clear
// the selection.
func (s *Session) Select(id int) {
	if s.store.Get(id) == nil {
		s.SelectedID = 0
		return
	}
	s.SelectedID = id
	s.reportf("Highlighted cell %d.", id)
}

// MeasureLine returns the physical length of a line between two image
// points. Returns false when no image (and hence no calibration) is
// loaded.
func (s *Session) MeasureLine(p0, p1 geometry.Point2D) (float64, bool) {
	if !s.HasImage() {
		s.report("No image loaded.")
		return 0, false
	}
	length := measure.Line(p0, p1, s.cal)
	s.reportf("Line drawn. Length: %.2f µm", length)
	return length, true
}

// Snapshot captures the session for persistence. Fails with ErrNoImage for
// an empty tab; callers skip such tabs.
func (s *Session) Snapshot() (project.TabSnapshot, error) {
	if !s.HasImage() {
		return project.TabSnapshot{}, ErrNoImage
	}
	return project.Snapshot(s.Title, s.img, s.cal, s.store)
}

// Restore replaces the session's contents from a saved snapshot. The image
// is decoded, pixel dimensions re-derived from it, regions re-detected,
// and the store restored verbatim (records and counter). All pieces are
// built before any session state is touched: a failed restore leaves a
// previously valid tab intact.
func (s *Session) Restore(snap project.TabSnapshot) error {
	img, _, err := snap.DecodeImage()
	if err != nil {
		return err
	}

	cal, err := snap.Calibration(img)
	if err != nil {
		return err
	}

	regions, err := s.detector.Detect(img)
	if err != nil {
		return fmt.Errorf("detect regions: %w", err)
	}

	store := measure.NewStore()
	store.Restore(snap.CellMeasurements, snap.NextCellID)

	s.Title = snap.Title
	s.img = img
	s.cal = cal
	s.regions = regions
	s.store = store
	s.SelectedID = 0

	s.reportf("Loaded %q with %d measurements.", snap.Title, store.Len())
	return nil
}

func (s *Session) report(msg string) {
	if s.status != nil {
		s.status(msg)
	}
}

func (s *Session) reportf(format string, args ...interface{}) {
	s.report(fmt.Sprintf(format, args...))
}
