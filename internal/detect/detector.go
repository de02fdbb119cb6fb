// Package detect finds candidate cell boundaries in a micrograph.
package detect

import (
	"fmt"
	"image"

	"cell-analyzer/pkg/geometry"

	"gocv.io/x/gocv"
)

// Options configures contour detection.
type Options struct {
	Threshold float64 // Gray level below which a pixel counts as cell interior
	MinArea   float64 // Contours with enclosed pixel area <= MinArea are discarded
}

// DefaultOptions returns the detection policy constants. Stained cell
// interiors are darker than the illuminated background, hence the inverse
// threshold.
func DefaultOptions() Options {
	return Options{
		Threshold: 200,
		MinArea:   50,
	}
}

// ContourDetector detects outer cell boundaries by inverse binary
// thresholding followed by external contour extraction.
type ContourDetector struct {
	opts Options
}

// New creates a detector with the given options.
func New(opts Options) *ContourDetector {
	return &ContourDetector{opts: opts}
}

// Detect runs the detection pipeline on an image. Pixels darker than the
// threshold become foreground; only outermost closed boundaries are
// extracted (nested and hole boundaries are ignored), and boundaries at or
// below the minimum area are dropped. Deterministic for a fixed image and
// options; the contour order is whatever the extraction produced and is
// stable only within a single call.
func (d *ContourDetector) Detect(img image.Image) ([]geometry.Contour, error) {
	if img == nil {
		return nil, fmt.Errorf("detect: nil image")
	}

	mat, err := ImageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, float32(d.opts.Threshold), 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []geometry.Contour
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		if gocv.ContourArea(pv) <= d.opts.MinArea {
			continue
		}
		pts := pv.ToPoints()
		region := make(geometry.Contour, len(pts))
		for j, p := range pts {
			region[j] = geometry.PointInt{X: p.X, Y: p.Y}
		}
		regions = append(regions, region)
	}

	return regions, nil
}

// ImageToMat converts a Go image.Image to a gocv.Mat in BGR format.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return gocv.Mat{}, fmt.Errorf("detect: empty image bounds %v", bounds)
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}

	return mat, nil
}
