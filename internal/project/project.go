// Package project provides project file handling and persistence.
//
// A project file is a versioned JSON document holding one snapshot per
// open tab: the tab title, the micrograph re-encoded as lossless PNG and
// embedded base64, the declared physical dimensions, and the tab's
// measurement records with their ID counter. Pixel dimensions are never
// stored; they are re-derived from the decoded image on load.
package project

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"

	"cell-analyzer/internal/calibrate"
	"cell-analyzer/internal/imaging"
	"cell-analyzer/internal/measure"
)

// Version is the current project file format version.
const Version = "1.0"

var (
	// ErrMalformedDocument is returned when a loaded document is missing
	// required structural fields.
	ErrMalformedDocument = errors.New("malformed project document")

	// ErrCorruptImageData is returned when an embedded image cannot be
	// decoded.
	ErrCorruptImageData = errors.New("corrupt image data")

	// ErrCorruptProjectData is returned by Verify when stored measurement
	// values disagree with recomputation from their contours.
	ErrCorruptProjectData = errors.New("corrupt project data")
)

// Document is the top-level project file structure.
type Document struct {
	Version string        `json:"version"`
	Tabs    []TabSnapshot `json:"tabs"`
}

// TabSnapshot is the serializable unit of one tab: image, calibration, and
// measurements.
type TabSnapshot struct {
	Title            string            `json:"title"`
	ImageB64         string            `json:"image_b64"`
	ImageWidthUM     float64           `json:"image_width_um"`
	ImageHeightUM    float64           `json:"image_height_um"`
	CellMeasurements []*measure.Record `json:"cell_measurements"`
	NextCellID       int               `json:"next_cell_id"`
}

// NewDocument creates an empty document at the current format version.
func NewDocument() *Document {
	return &Document{
		Version: Version,
		Tabs:    make([]TabSnapshot, 0),
	}
}

// Snapshot captures one tab. The image is re-encoded as PNG so that the
// persisted bytes are the canonical decoded pixels, not whatever working
// copy or source format the tab happened to load. Records are deep-copied;
// later store mutations do not leak into the snapshot.
func Snapshot(title string, img image.Image, cal calibrate.Calibration, store *measure.Store) (TabSnapshot, error) {
	if img == nil {
		return TabSnapshot{}, fmt.Errorf("snapshot %q: no image", title)
	}

	pngBytes, err := imaging.EncodePNG(img)
	if err != nil {
		return TabSnapshot{}, fmt.Errorf("snapshot %q: %w", title, err)
	}

	records := make([]*measure.Record, store.Len())
	for i, r := range store.Records() {
		records[i] = r.Clone()
	}

	return TabSnapshot{
		Title:            title,
		ImageB64:         base64.StdEncoding.EncodeToString(pngBytes),
		ImageWidthUM:     cal.ImageWidthUM,
		ImageHeightUM:    cal.ImageHeightUM,
		CellMeasurements: records,
		NextCellID:       store.NextID(),
	}, nil
}

// DecodeImage decodes the embedded image and returns it together with the
// raw (PNG) bytes.
func (t TabSnapshot) DecodeImage() (image.Image, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(t.ImageB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptImageData, err)
	}
	img, err := imaging.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptImageData, err)
	}
	return img, raw, nil
}

// Calibration rebuilds the tab's calibration from the stored physical
// dimensions and the decoded image's pixel dimensions.
func (t TabSnapshot) Calibration(img image.Image) (calibrate.Calibration, error) {
	bounds := img.Bounds()
	return calibrate.New(t.ImageWidthUM, t.ImageHeightUM, bounds.Dx(), bounds.Dy())
}

// Parse decodes a project document from JSON. A document whose "tabs" key
// is absent fails with ErrMalformedDocument; "tabs": [] is a valid empty
// project.
func Parse(data []byte) (*Document, error) {
	var probe struct {
		Tabs json.RawMessage `json:"tabs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if probe.Tabs == nil {
		return nil, fmt.Errorf("%w: missing \"tabs\"", ErrMalformedDocument)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Tabs == nil {
		doc.Tabs = make([]TabSnapshot, 0)
	}
	return &doc, nil
}

// Load reads a project document from a file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save writes the document to a file.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
