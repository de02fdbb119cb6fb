// Package ocr reads burned-in scale bar annotations from micrographs.
package ocr

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"cell-analyzer/internal/detect"
	"cell-analyzer/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// scaleBarChars restricts recognition to what a scale bar legend contains.
const scaleBarChars = "0123456789.µumnm "

var scalePattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(µm|um|mm|nm)`)

// ScaleBar is a parsed scale bar legend, e.g. "100 µm".
type ScaleBar struct {
	Value float64
	Unit  string
}

// Micrometres returns the scale bar length converted to µm.
func (s ScaleBar) Micrometres() float64 {
	switch s.Unit {
	case "mm":
		return s.Value * 1000
	case "nm":
		return s.Value / 1000
	default:
		return s.Value
	}
}

// Reader recognizes scale bar text using Tesseract.
type Reader struct {
	client *gosseract.Client
}

// NewReader creates a scale bar reader.
func NewReader() (*Reader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetWhitelist(scaleBarChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR whitelist: %w", err)
	}
	return &Reader{client: client}, nil
}

// Close releases OCR resources.
func (r *Reader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Read runs OCR over a region of the image (typically the annotation strip
// along the bottom edge) and parses the first scale bar legend found.
func (r *Reader) Read(img image.Image, strip geometry.RectInt) (ScaleBar, error) {
	mat, err := detect.ImageToMat(img)
	if err != nil {
		return ScaleBar{}, err
	}
	defer mat.Close()

	x, y, w, h := strip.X, strip.Y, strip.Width, strip.Height
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > mat.Cols() {
		w = mat.Cols() - x
	}
	if y+h > mat.Rows() {
		h = mat.Rows() - y
	}
	if w <= 0 || h <= 0 {
		return ScaleBar{}, fmt.Errorf("scale bar region outside image")
	}

	region := mat.Region(image.Rect(x, y, x+w, y+h))
	defer region.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, region)
	if err != nil {
		return ScaleBar{}, fmt.Errorf("failed to encode OCR region: %w", err)
	}
	defer buf.Close()

	if err := r.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return ScaleBar{}, fmt.Errorf("failed to set OCR image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return ScaleBar{}, fmt.Errorf("OCR failed: %w", err)
	}

	return Parse(text)
}

// BottomStrip returns the annotation strip region for an image: the bottom
// fraction of the frame, where microscope software stamps the legend.
func BottomStrip(img image.Image, fraction float64) geometry.RectInt {
	bounds := img.Bounds()
	h := int(float64(bounds.Dy()) * fraction)
	if h < 1 {
		h = 1
	}
	return geometry.RectInt{
		X:      0,
		Y:      bounds.Dy() - h,
		Width:  bounds.Dx(),
		Height: h,
	}
}

// Parse extracts the first scale bar legend from recognized text.
func Parse(text string) (ScaleBar, error) {
	m := scalePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ScaleBar{}, fmt.Errorf("no scale bar legend in %q", strings.TrimSpace(text))
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return ScaleBar{}, fmt.Errorf("bad scale bar value %q", m[1])
	}
	unit := m[2]
	if unit == "um" {
		unit = "µm"
	}
	return ScaleBar{Value: value, Unit: unit}, nil
}
