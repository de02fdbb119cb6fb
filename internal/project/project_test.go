package project

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"cell-analyzer/internal/calibrate"
	"cell-analyzer/internal/measure"
	"cell-analyzer/pkg/geometry"
)

// testImage builds a white image with one dark filled square, enough to
// round-trip through PNG.
func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func testStore(t *testing.T, cal calibrate.Calibration) *measure.Store {
	t.Helper()
	store := measure.NewStore()
	region := geometry.Contour{
		{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 30}, {X: 10, Y: 30},
	}
	if store.TryCreateAt(geometry.PointInt{X: 15, Y: 15}, []geometry.Contour{region}, cal) == nil {
		t.Fatal("failed to create test record")
	}
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := testImage(100, 80)
	cal, err := calibrate.New(50, 40, 100, 80)
	if err != nil {
		t.Fatal(err)
	}
	store := testStore(t, cal)

	snap, err := Snapshot("Tab 1", img, cal, store)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.Title != "Tab 1" {
		t.Errorf("Title = %q", snap.Title)
	}
	if snap.ImageWidthUM != 50 || snap.ImageHeightUM != 40 {
		t.Errorf("physical size = %gx%g, want 50x40", snap.ImageWidthUM, snap.ImageHeightUM)
	}
	if snap.NextCellID != 2 {
		t.Errorf("NextCellID = %d, want 2", snap.NextCellID)
	}

	decoded, raw, err := snap.DecodeImage()
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if len(raw) == 0 {
		t.Error("DecodeImage returned no raw bytes")
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 80 {
		t.Errorf("decoded size = %dx%d, want 100x80", bounds.Dx(), bounds.Dy())
	}

	restored, err := snap.Calibration(decoded)
	if err != nil {
		t.Fatalf("Calibration: %v", err)
	}
	if restored.PixelWidth != 100 || restored.PixelHeight != 80 {
		t.Errorf("restored pixel size = %dx%d", restored.PixelWidth, restored.PixelHeight)
	}
}

func TestSnapshotDeepCopiesRecords(t *testing.T) {
	img := testImage(100, 80)
	cal, err := calibrate.New(50, 40, 100, 80)
	if err != nil {
		t.Fatal(err)
	}
	store := testStore(t, cal)

	snap, err := Snapshot("t", img, cal, store)
	if err != nil {
		t.Fatal(err)
	}

	store.Records()[0].AreaUM2 = -1
	if snap.CellMeasurements[0].AreaUM2 == -1 {
		t.Error("snapshot shares record storage with the store")
	}
}

func TestSnapshotNilImage(t *testing.T) {
	cal, _ := calibrate.New(50, 40, 100, 80)
	if _, err := Snapshot("t", nil, cal, measure.NewStore()); err == nil {
		t.Error("Snapshot with nil image should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	img := testImage(100, 80)
	cal, err := calibrate.New(50, 40, 100, 80)
	if err != nil {
		t.Fatal(err)
	}
	store := testStore(t, cal)

	snap, err := Snapshot("Culture A", img, cal, store)
	if err != nil {
		t.Fatal(err)
	}
	doc := NewDocument()
	doc.Tabs = append(doc.Tabs, snap)

	path := filepath.Join(t.TempDir(), "test.cellproj")
	if err := doc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != Version {
		t.Errorf("Version = %q, want %q", loaded.Version, Version)
	}
	if len(loaded.Tabs) != 1 {
		t.Fatalf("Tabs = %d, want 1", len(loaded.Tabs))
	}

	got := loaded.Tabs[0]
	if got.Title != "Culture A" || got.NextCellID != 2 {
		t.Errorf("loaded tab = %q next %d", got.Title, got.NextCellID)
	}
	if len(got.CellMeasurements) != 1 {
		t.Fatalf("measurements = %d, want 1", len(got.CellMeasurements))
	}

	orig := snap.CellMeasurements[0]
	rec := got.CellMeasurements[0]
	if rec.ID != orig.ID || math.Abs(rec.AreaUM2-orig.AreaUM2) > 1e-9 {
		t.Errorf("record round trip: got %+v, want %+v", rec, orig)
	}
	if len(rec.Contour) != len(orig.Contour) {
		t.Errorf("contour length = %d, want %d", len(rec.Contour), len(orig.Contour))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		tabs    int
	}{
		{"empty tabs is valid", `{"version": "1.0", "tabs": []}`, nil, 0},
		{"missing tabs key", `{"version": "1.0"}`, ErrMalformedDocument, 0},
		{"null tabs", `{"version": "1.0", "tabs": null}`, nil, 0},
		{"not json", `{{{`, ErrMalformedDocument, 0},
		{"wrong type for tabs", `{"tabs": "nope"}`, ErrMalformedDocument, 0},
		{"missing version tolerated", `{"tabs": []}`, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if doc.Tabs == nil {
				t.Fatal("Parse returned nil Tabs for valid document")
			}
			if len(doc.Tabs) != tt.tabs {
				t.Errorf("tabs = %d, want %d", len(doc.Tabs), tt.tabs)
			}
		})
	}
}

func TestDecodeImageCorrupt(t *testing.T) {
	tests := []struct {
		name string
		b64  string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"base64 but not an image", base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := TabSnapshot{ImageB64: tt.b64}
			if _, _, err := snap.DecodeImage(); !errors.Is(err, ErrCorruptImageData) {
				t.Errorf("DecodeImage error = %v, want ErrCorruptImageData", err)
			}
		})
	}
}

func TestCalibrationInvalidDimensions(t *testing.T) {
	img := testImage(100, 80)
	snap := TabSnapshot{ImageWidthUM: 0, ImageHeightUM: 40}
	if _, err := snap.Calibration(img); !errors.Is(err, calibrate.ErrInvalidDimension) {
		t.Errorf("Calibration error = %v, want ErrInvalidDimension", err)
	}
}

func TestVerify(t *testing.T) {
	img := testImage(100, 80)
	cal, err := calibrate.New(50, 40, 100, 80)
	if err != nil {
		t.Fatal(err)
	}
	store := testStore(t, cal)

	snap, err := Snapshot("t", img, cal, store)
	if err != nil {
		t.Fatal(err)
	}

	if err := Verify(snap); err != nil {
		t.Errorf("Verify on consistent snapshot: %v", err)
	}

	// Tamper with a stored value
	snap.CellMeasurements[0].AreaUM2 *= 3
	if err := Verify(snap); !errors.Is(err, ErrCorruptProjectData) {
		t.Errorf("Verify on tampered snapshot = %v, want ErrCorruptProjectData", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cellproj"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load of missing file = %v, want os.ErrNotExist", err)
	}
}
