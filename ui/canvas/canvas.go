package canvas

import (
	"image"

	"cell-analyzer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// ImageCanvas displays a micrograph with pan, zoom, named overlays, and
// click/drag interaction.
type ImageCanvas struct {
	widget.BaseWidget

	img      image.Image
	overlays map[string]*Overlay

	raster *fynecanvas.Raster
	zoom   float64

	// Line tool state
	lineMode  bool
	dragging  bool
	dragStart geometry.Point2D
	dragEnd   geometry.Point2D

	scroll  *zoomScroll
	content *interactiveContent
	imgSize fyne.Size

	fitToWindow    bool
	lastScrollSize fyne.Size

	// Callbacks, coordinates in image space
	onLeftClick  func(x, y float64)
	onLineDrawn  func(p0, p1 geometry.Point2D)
	onZoomChange func(zoom float64)
}

// zoomScroll wraps a scroll container but intercepts the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *ImageCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *ImageCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// interactiveContent wraps the raster to handle mouse events.
type interactiveContent struct {
	widget.BaseWidget
	canvas *ImageCanvas
	raster *fynecanvas.Raster
}

func newInteractiveContent(ic *ImageCanvas, raster *fynecanvas.Raster) *interactiveContent {
	c := &interactiveContent{canvas: ic, raster: raster}
	c.ExtendBaseWidget(c)
	return c
}

func (c *interactiveContent) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}

func (c *interactiveContent) MinSize() fyne.Size {
	return c.raster.MinSize()
}

// Tapped handles left clicks: in measure mode the click is forwarded in
// image coordinates.
func (c *interactiveContent) Tapped(ev *fyne.PointEvent) {
	if c.canvas.lineMode || c.canvas.onLeftClick == nil {
		return
	}

	// Reject clicks outside widget bounds (Fyne can deliver them)
	size := c.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}

	x, y := c.canvas.positionToImage(ev.Position)
	c.canvas.onLeftClick(x, y)
}

// Dragged implements the click-and-drag line tool.
func (c *interactiveContent) Dragged(ev *fyne.DragEvent) {
	if !c.canvas.lineMode {
		return
	}

	x, y := c.canvas.positionToImage(ev.Position)
	if !c.canvas.dragging {
		c.canvas.dragging = true
		c.canvas.dragStart = geometry.Point2D{X: x, Y: y}
	}
	c.canvas.dragEnd = geometry.Point2D{X: x, Y: y}
	c.canvas.Refresh()
}

func (c *interactiveContent) DragEnd() {
	if !c.canvas.lineMode || !c.canvas.dragging {
		return
	}
	c.canvas.dragging = false

	if c.canvas.onLineDrawn != nil {
		c.canvas.onLineDrawn(c.canvas.dragStart, c.canvas.dragEnd)
	}
	c.canvas.Refresh()
}

func (c *interactiveContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		c.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		c.canvas.ZoomOut()
	}
}

// NewImageCanvas creates a new image canvas.
func NewImageCanvas() *ImageCanvas {
	ic := &ImageCanvas{
		zoom:     1.0,
		imgSize:  fyne.NewSize(400, 300),
		overlays: make(map[string]*Overlay),
	}

	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(ic.imgSize)

	ic.content = newInteractiveContent(ic, ic.raster)
	ic.scroll = newZoomScroll(ic.content, ic)

	ic.ExtendBaseWidget(ic)
	return ic
}

// Container returns the canvas container for embedding in layouts.
func (ic *ImageCanvas) Container() fyne.CanvasObject {
	return ic.scroll
}

// SetImage sets the micrograph to display.
func (ic *ImageCanvas) SetImage(img image.Image) {
	ic.img = img
	ic.updateContentSize()
}

// Image returns the displayed micrograph, or nil.
func (ic *ImageCanvas) Image() image.Image {
	return ic.img
}

// SetOverlay sets a named overlay.
func (ic *ImageCanvas) SetOverlay(name string, overlay *Overlay) {
	ic.overlays[name] = overlay
	ic.Refresh()
}

// ClearOverlay removes a named overlay.
func (ic *ImageCanvas) ClearOverlay(name string) {
	delete(ic.overlays, name)
	ic.Refresh()
}

// ClearAllOverlays removes every overlay.
func (ic *ImageCanvas) ClearAllOverlays() {
	ic.overlays = make(map[string]*Overlay)
	ic.Refresh()
}

// SetLineMode switches between the area-measurement click tool and the
// line-drawing drag tool.
func (ic *ImageCanvas) SetLineMode(enabled bool) {
	ic.lineMode = enabled
	ic.dragging = false
}

// OnLeftClick sets a callback for measure-mode clicks, in image space.
func (ic *ImageCanvas) OnLeftClick(callback func(x, y float64)) {
	ic.onLeftClick = callback
}

// OnLineDrawn sets a callback for a completed line drag, in image space.
func (ic *ImageCanvas) OnLineDrawn(callback func(p0, p1 geometry.Point2D)) {
	ic.onLineDrawn = callback
}

// OnZoomChange sets a callback for zoom changes.
func (ic *ImageCanvas) OnZoomChange(callback func(zoom float64)) {
	ic.onZoomChange = callback
}

// SetZoom sets the zoom level, clamped to the supported range.
func (ic *ImageCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	ic.zoom = zoom
	ic.updateContentSize()

	if ic.onZoomChange != nil {
		ic.onZoomChange(zoom)
	}
}

// Zoom returns the current zoom level.
func (ic *ImageCanvas) Zoom() float64 {
	return ic.zoom
}

// ZoomIn increases the zoom level.
func (ic *ImageCanvas) ZoomIn() {
	ic.SetZoom(ic.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (ic *ImageCanvas) ZoomOut() {
	ic.SetZoom(ic.zoom / zoomStep)
}

// FitToWindow adjusts the zoom so the image fills the visible area.
func (ic *ImageCanvas) FitToWindow() {
	if ic.img == nil {
		return
	}
	bounds := ic.img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}

	viewSize := ic.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(bounds.Dx())
	zoomY := float64(viewSize.Height) / float64(bounds.Dy())

	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}

	ic.SetZoom(zoom * 0.95) // Leave a small margin
}

// SetFitToWindow enables or disables auto-fit on resize.
func (ic *ImageCanvas) SetFitToWindow(fit bool) {
	ic.fitToWindow = fit
	if fit {
		ic.FitToWindow()
	}
}

// FitToWindowEnabled returns the current fit-to-window state.
func (ic *ImageCanvas) FitToWindowEnabled() bool {
	return ic.fitToWindow
}

// Refresh refreshes the canvas display.
func (ic *ImageCanvas) Refresh() {
	ic.raster.Refresh()
}

// positionToImage converts a widget position to image coordinates.
func (ic *ImageCanvas) positionToImage(pos fyne.Position) (float64, float64) {
	return float64(pos.X) / ic.zoom, float64(pos.Y) / ic.zoom
}

// updateContentSize updates the content size based on image and zoom.
func (ic *ImageCanvas) updateContentSize() {
	if ic.img == nil {
		ic.imgSize = fyne.NewSize(400, 300)
	} else {
		bounds := ic.img.Bounds()
		ic.imgSize = fyne.NewSize(
			float32(float64(bounds.Dx())*ic.zoom),
			float32(float64(bounds.Dy())*ic.zoom),
		)
	}

	ic.raster.SetMinSize(ic.imgSize)
	ic.raster.Resize(ic.imgSize)
	if ic.content != nil {
		ic.content.Resize(ic.imgSize)
		ic.content.Refresh()
	}
	ic.raster.Refresh()
	if ic.scroll != nil {
		ic.scroll.Refresh()
	}
}

// CreateRenderer implements fyne.Widget.
func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{canvas: ic}
}

type imageCanvasRenderer struct {
	canvas *ImageCanvas
}

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	if r.canvas.scroll != nil {
		r.canvas.scroll.Resize(size)
	}
	if r.canvas.fitToWindow && size.Width > 0 && size.Height > 0 &&
		size != r.canvas.lastScrollSize {
		r.canvas.lastScrollSize = size
		r.canvas.FitToWindow()
	}
}

func (r *imageCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *imageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *imageCanvasRenderer) Destroy() {}
