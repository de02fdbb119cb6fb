// Package calibrate maps pixel space to physical (µm) space for one loaded image.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"cell-analyzer/pkg/geometry"
)

// ErrInvalidDimension is returned when a pixel or physical dimension is
// zero or negative.
var ErrInvalidDimension = errors.New("invalid dimension")

// Calibration holds the declared physical size of an image together with
// its pixel resolution. Pixel dimensions are tied to the loaded image and
// stay fixed for the image's lifetime; physical dimensions may be replaced
// by explicit recalibration.
type Calibration struct {
	ImageWidthUM  float64
	ImageHeightUM float64
	PixelWidth    int
	PixelHeight   int
}

// New creates a calibration for an image of the given pixel resolution and
// user-declared physical size.
func New(widthUM, heightUM float64, pixelWidth, pixelHeight int) (Calibration, error) {
	if pixelWidth <= 0 || pixelHeight <= 0 {
		return Calibration{}, fmt.Errorf("%w: pixel size %dx%d", ErrInvalidDimension, pixelWidth, pixelHeight)
	}
	if widthUM <= 0 || heightUM <= 0 {
		return Calibration{}, fmt.Errorf("%w: physical size %gx%g µm", ErrInvalidDimension, widthUM, heightUM)
	}
	return Calibration{
		ImageWidthUM:  widthUM,
		ImageHeightUM: heightUM,
		PixelWidth:    pixelWidth,
		PixelHeight:   pixelHeight,
	}, nil
}

// Recalibrate replaces the physical dimensions. Pixel dimensions are left
// untouched.
func (c *Calibration) Recalibrate(widthUM, heightUM float64) error {
	if widthUM <= 0 || heightUM <= 0 {
		return fmt.Errorf("%w: physical size %gx%g µm", ErrInvalidDimension, widthUM, heightUM)
	}
	c.ImageWidthUM = widthUM
	c.ImageHeightUM = heightUM
	return nil
}

// UnitPerPixelX returns the physical width of one pixel in µm.
func (c Calibration) UnitPerPixelX() float64 {
	return c.ImageWidthUM / float64(c.PixelWidth)
}

// UnitPerPixelY returns the physical height of one pixel in µm.
func (c Calibration) UnitPerPixelY() float64 {
	return c.ImageHeightUM / float64(c.PixelHeight)
}

// AreaUM2 converts a pixel area to µm².
func (c Calibration) AreaUM2(pixelArea float64) float64 {
	return pixelArea * c.UnitPerPixelX() * c.UnitPerPixelY()
}

// WidthUM converts an axis-aligned pixel width to µm.
func (c Calibration) WidthUM(pixels int) float64 {
	return float64(pixels) * c.UnitPerPixelX()
}

// HeightUM converts an axis-aligned pixel height to µm.
func (c Calibration) HeightUM(pixels int) float64 {
	return float64(pixels) * c.UnitPerPixelY()
}

// LineLengthUM converts the Euclidean pixel distance between two points to
// µm using a single isotropic pixel size, sqrt(unitX * unitY). When the X
// and Y scales differ this is an approximation of the true anisotropic
// projection; it matches the behavior measurement files were recorded
// with, so it stays.
func (c Calibration) LineLengthUM(p0, p1 geometry.Point2D) float64 {
	pixelSize := math.Sqrt(c.UnitPerPixelX() * c.UnitPerPixelY())
	return p0.Distance(p1) * pixelSize
}
