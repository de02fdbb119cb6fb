package measure

import (
	"math"
	"testing"

	"cell-analyzer/internal/calibrate"
	"cell-analyzer/pkg/geometry"
)

const tol = 1e-9

// testCal builds a 0.1 µm/px calibration in both axes.
func testCal(t *testing.T) calibrate.Calibration {
	t.Helper()
	cal, err := calibrate.New(100, 80, 1000, 800)
	if err != nil {
		t.Fatal(err)
	}
	return cal
}

func square(x, y, size int) geometry.Contour {
	return geometry.Contour{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	}
}

func TestTryCreateAt(t *testing.T) {
	cal := testCal(t)
	regions := []geometry.Contour{
		square(0, 0, 10),
		square(100, 100, 20),
	}

	tests := []struct {
		name   string
		point  geometry.PointInt
		wantID int // 0 = no record expected
	}{
		{"inside first region", geometry.PointInt{X: 5, Y: 5}, 1},
		{"inside second region", geometry.PointInt{X: 110, Y: 110}, 2},
		{"outside all regions", geometry.PointInt{X: 500, Y: 500}, 0},
		{"on region boundary", geometry.PointInt{X: 10, Y: 5}, 3},
	}

	store := NewStore()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := store.TryCreateAt(tt.point, regions, cal)
			if tt.wantID == 0 {
				if rec != nil {
					t.Fatalf("TryCreateAt(%v) = %+v, want nil", tt.point, rec)
				}
				return
			}
			if rec == nil {
				t.Fatalf("TryCreateAt(%v) = nil, want record", tt.point)
			}
			if rec.ID != tt.wantID {
				t.Errorf("record ID = %d, want %d", rec.ID, tt.wantID)
			}
		})
	}
}

func TestTryCreateAtValues(t *testing.T) {
	cal := testCal(t)
	store := NewStore()

	// Square with vertices 0..10: the shoelace area is 100 px² (1 µm² at
	// 0.01 µm²/px²), but the bounding box covers 11 pixel rows and
	// columns, so width and height are 1.1 µm at 0.1 µm/px.
	rec := store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, []geometry.Contour{square(0, 0, 10)}, cal)
	if rec == nil {
		t.Fatal("expected a record")
	}
	if math.Abs(rec.AreaUM2-1.0) > tol {
		t.Errorf("AreaUM2 = %v, want 1.0", rec.AreaUM2)
	}
	if math.Abs(rec.WidthUM-1.1) > tol {
		t.Errorf("WidthUM = %v, want 1.1", rec.WidthUM)
	}
	if math.Abs(rec.HeightUM-1.1) > tol {
		t.Errorf("HeightUM = %v, want 1.1", rec.HeightUM)
	}
}

// Width and height must count pixels inclusively, the way files written
// against OpenCV's boundingRect recorded them. Recomputing with the
// exclusive max-minus-min extent would shrink every stored value by one
// pixel-unit on each axis.
func TestRecalculateAllKeepsInclusiveExtents(t *testing.T) {
	cal := testCal(t)
	store := NewStore()
	store.Restore([]*Record{
		{ID: 1, AreaUM2: 1.0, WidthUM: 1.1, HeightUM: 1.1, Contour: square(0, 0, 10)},
	}, 2)

	store.RecalculateAll(cal)

	rec := store.Get(1)
	if math.Abs(rec.WidthUM-1.1) > tol {
		t.Errorf("WidthUM = %v, want 1.1 (stored value must survive recomputation)", rec.WidthUM)
	}
	if math.Abs(rec.HeightUM-1.1) > tol {
		t.Errorf("HeightUM = %v, want 1.1 (stored value must survive recomputation)", rec.HeightUM)
	}
	if math.Abs(rec.AreaUM2-1.0) > tol {
		t.Errorf("AreaUM2 = %v, want 1.0", rec.AreaUM2)
	}
}

func TestTryCreateAtFirstMatchWins(t *testing.T) {
	cal := testCal(t)
	// Two overlapping regions both containing (5, 5)
	regions := []geometry.Contour{
		square(0, 0, 10),
		square(0, 0, 20),
	}

	store := NewStore()
	rec := store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, regions, cal)
	if rec == nil {
		t.Fatal("expected a record")
	}
	if got := rec.Contour.Bounds().Width; got != 10 {
		t.Errorf("bound to region with width %d, want first region (10)", got)
	}
}

func TestTryCreateAtCopiesContour(t *testing.T) {
	cal := testCal(t)
	region := square(0, 0, 10)
	store := NewStore()

	rec := store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, []geometry.Contour{region}, cal)
	if rec == nil {
		t.Fatal("expected a record")
	}
	region[0].X = 999
	if rec.Contour[0].X == 999 {
		t.Error("record contour shares storage with detected region")
	}
}

func TestDeleteKeepsIDs(t *testing.T) {
	cal := testCal(t)
	regions := []geometry.Contour{square(0, 0, 10), square(50, 50, 10), square(200, 200, 10)}
	store := NewStore()

	store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, regions, cal)
	store.TryCreateAt(geometry.PointInt{X: 55, Y: 55}, regions, cal)
	store.TryCreateAt(geometry.PointInt{X: 205, Y: 205}, regions, cal)

	if !store.Delete(2) {
		t.Fatal("Delete(2) = false, want true")
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}

	// Survivors keep their IDs, no renumbering
	if store.Get(1) == nil || store.Get(3) == nil {
		t.Error("surviving records lost their IDs")
	}

	// Deleted ID is never reused
	rec := store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, regions, cal)
	if rec.ID != 4 {
		t.Errorf("new record ID = %d, want 4 (counter not decremented by delete)", rec.ID)
	}
}

func TestDeleteMissing(t *testing.T) {
	store := NewStore()
	if store.Delete(7) {
		t.Error("Delete of absent ID should return false")
	}
	if store.NextID() != 1 {
		t.Errorf("NextID() = %d, want 1", store.NextID())
	}
}

func TestRecalculateAll(t *testing.T) {
	cal := testCal(t)
	store := NewStore()
	store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, []geometry.Contour{square(0, 0, 10)}, cal)

	rec := store.Records()[0]
	origArea, origWidth := rec.AreaUM2, rec.WidthUM

	// Doubling both physical dimensions doubles lengths and quadruples
	// areas.
	if err := cal.Recalibrate(200, 160); err != nil {
		t.Fatal(err)
	}
	store.RecalculateAll(cal)

	if math.Abs(rec.AreaUM2-4*origArea) > tol {
		t.Errorf("AreaUM2 = %v, want %v", rec.AreaUM2, 4*origArea)
	}
	if math.Abs(rec.WidthUM-2*origWidth) > tol {
		t.Errorf("WidthUM = %v, want %v", rec.WidthUM, 2*origWidth)
	}

	// Idempotent for a fixed calibration
	area := rec.AreaUM2
	store.RecalculateAll(cal)
	if rec.AreaUM2 != area {
		t.Error("RecalculateAll is not idempotent")
	}
}

func TestRestore(t *testing.T) {
	records := []*Record{
		{ID: 3, AreaUM2: 12.5, WidthUM: 4, HeightUM: 5, Contour: square(0, 0, 10)},
		{ID: 7, AreaUM2: 99, WidthUM: 9, HeightUM: 11, Contour: square(5, 5, 3)},
	}

	store := NewStore()
	store.Restore(records, 8)

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	if store.NextID() != 8 {
		t.Errorf("NextID() = %d, want 8", store.NextID())
	}

	// Stored values are trusted verbatim, not recomputed
	got := store.Get(3)
	if got == nil || got.AreaUM2 != 12.5 {
		t.Errorf("Get(3) = %+v, want stored AreaUM2 12.5", got)
	}

	// Restore deep-copies
	records[0].Contour[0].X = 999
	if store.Get(3).Contour[0].X == 999 {
		t.Error("Restore shares contour storage with input")
	}
}

func TestRestoreClampsCounter(t *testing.T) {
	store := NewStore()
	store.Restore(nil, 0)
	if store.NextID() != 1 {
		t.Errorf("NextID() = %d, want 1", store.NextID())
	}
}

func TestClear(t *testing.T) {
	cal := testCal(t)
	store := NewStore()
	store.TryCreateAt(geometry.PointInt{X: 5, Y: 5}, []geometry.Contour{square(0, 0, 10)}, cal)

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
	if store.NextID() != 1 {
		t.Errorf("NextID() = %d, want 1 after Clear", store.NextID())
	}
}

func TestLine(t *testing.T) {
	cal := testCal(t)
	got := Line(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 30, Y: 40}, cal)
	if math.Abs(got-5.0) > tol {
		t.Errorf("Line() = %v, want 5.0", got)
	}
}
