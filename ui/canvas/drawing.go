package canvas

import (
	"image"
	"image/color"

	"cell-analyzer/pkg/geometry"
)

// draw renders the micrograph scaled by the current zoom, then composites
// every overlay on top. Fyne calls this from the raster whenever the
// canvas refreshes.
func (ic *ImageCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))

	if ic.img == nil {
		for i := range output.Pix {
			output.Pix[i] = 40
			if i%4 == 3 {
				output.Pix[i] = 255
			}
		}
		return output
	}

	ic.drawScaledImage(output)

	for _, overlay := range ic.overlays {
		ic.drawOverlay(output, overlay)
	}

	// Temp line while the user is still dragging
	if ic.lineMode && ic.dragging {
		ic.drawOverlayLine(output, OverlayLine{
			P0:        ic.dragStart,
			P1:        ic.dragEnd,
			Color:     ColorTempLine,
			Thickness: 2,
		})
	}

	return output
}

// drawScaledImage copies the micrograph into the output using nearest
// neighbour sampling. Measurement work needs exact pixels, not smoothing.
func (ic *ImageCanvas) drawScaledImage(output *image.RGBA) {
	srcBounds := ic.img.Bounds()
	outBounds := output.Bounds()

	for y := outBounds.Min.Y; y < outBounds.Max.Y; y++ {
		srcY := srcBounds.Min.Y + int(float64(y)/ic.zoom)
		if srcY >= srcBounds.Max.Y {
			break
		}
		for x := outBounds.Min.X; x < outBounds.Max.X; x++ {
			srcX := srcBounds.Min.X + int(float64(x)/ic.zoom)
			if srcX >= srcBounds.Max.X {
				break
			}
			output.Set(x, y, ic.img.At(srcX, srcY))
		}
	}
}

// drawOverlay draws an overlay's polygons and lines on the output image.
func (ic *ImageCanvas) drawOverlay(output *image.RGBA, overlay *Overlay) {
	if overlay == nil {
		return
	}
	for _, poly := range overlay.Polygons {
		ic.drawOverlayPolygon(output, poly)
	}
	for _, line := range overlay.Lines {
		ic.drawOverlayLine(output, line)
	}
}

// drawOverlayPolygon draws a closed contour outline scaled by zoom.
func (ic *ImageCanvas) drawOverlayPolygon(output *image.RGBA, poly OverlayPolygon) {
	n := len(poly.Points)
	if n < 2 {
		return
	}

	thickness := poly.Thickness
	if thickness <= 0 {
		thickness = 2
	}

	for i := 0; i < n; i++ {
		p1 := poly.Points[i]
		p2 := poly.Points[(i+1)%n]
		ic.drawLine(output,
			int(float64(p1.X)*ic.zoom), int(float64(p1.Y)*ic.zoom),
			int(float64(p2.X)*ic.zoom), int(float64(p2.Y)*ic.zoom),
			poly.Color, thickness)
	}
}

// drawOverlayLine draws a line segment scaled by zoom, with endpoint dots
// so short measurements stay visible.
func (ic *ImageCanvas) drawOverlayLine(output *image.RGBA, line OverlayLine) {
	thickness := line.Thickness
	if thickness <= 0 {
		thickness = 2
	}

	x1 := int(line.P0.X * ic.zoom)
	y1 := int(line.P0.Y * ic.zoom)
	x2 := int(line.P1.X * ic.zoom)
	y2 := int(line.P1.Y * ic.zoom)

	ic.drawLine(output, x1, y1, x2, y2, line.Color, thickness)
	ic.drawDot(output, x1, y1, line.Color, thickness+2)
	ic.drawDot(output, x2, y2, line.Color, thickness+2)
}

// drawLine draws a line between two points using Bresenham's algorithm.
func (ic *ImageCanvas) drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				px, py := x1+s, y1+t
				if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
					output.Set(px, py, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawDot draws a filled circle marker.
func (ic *ImageCanvas) drawDot(output *image.RGBA, cx, cy int, col color.RGBA, radius int) {
	bounds := output.Bounds()
	r2 := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := x - cx
			dy := y - cy
			if dx*dx+dy*dy <= r2 {
				output.Set(x, y, col)
			}
		}
	}
}

// OutlineOverlay builds an overlay of contour outlines, highlighting the
// selected one.
func OutlineOverlay(contours []geometry.Contour, ids []int, selectedID int) *Overlay {
	overlay := &Overlay{}
	for i, c := range contours {
		col := ColorOutline
		if i < len(ids) && ids[i] == selectedID {
			col = ColorHighlight
		}
		overlay.Polygons = append(overlay.Polygons, OverlayPolygon{
			Points:    c,
			Color:     col,
			Thickness: 2,
		})
	}
	return overlay
}
