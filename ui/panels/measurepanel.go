// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"strconv"
	"strings"

	"cell-analyzer/internal/measure"
	"cell-analyzer/internal/ocr"
	"cell-analyzer/internal/session"
	"cell-analyzer/pkg/geometry"
	"cell-analyzer/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"gonum.org/v1/gonum/stat"
)

// Interaction mode labels, in RadioGroup order.
const (
	modeAreaLabel = "Area Analysis (Left Click)"
	modeLineLabel = "Line Length (Click & Drag)"
)

// Fraction of the image height scanned for a burned-in scale bar legend.
const scaleBarStripFraction = 0.12

var tableHeaders = []string{"Cell ID", "Area (µm²)", "Width (µm)", "Height (µm)"}

// MeasurePanel is the per-tab control panel: interaction mode, calibration
// inputs, and the measurement table.
type MeasurePanel struct {
	session *session.Session
	canvas  *canvas.ImageCanvas
	window  fyne.Window
	status  func(string)

	onCalibrated func(widthUM, heightUM float64)

	modeSelect  *widget.RadioGroup
	widthEntry  *widget.Entry
	heightEntry *widget.Entry
	table       *widget.Table
	summary     *widget.Label
	lineResult  *widget.Label

	container fyne.CanvasObject
}

// NewMeasurePanel creates a panel bound to one session and its canvas.
func NewMeasurePanel(sess *session.Session, cvs *canvas.ImageCanvas, status func(string)) *MeasurePanel {
	mp := &MeasurePanel{
		session: sess,
		canvas:  cvs,
		status:  status,
	}

	mp.modeSelect = widget.NewRadioGroup([]string{modeAreaLabel, modeLineLabel}, func(selected string) {
		if selected == modeLineLabel {
			sess.Mode = session.ModeLine
			cvs.SetLineMode(true)
		} else {
			sess.Mode = session.ModeMeasure
			cvs.SetLineMode(false)
		}
	})
	mp.modeSelect.SetSelected(modeAreaLabel)

	mp.widthEntry = widget.NewEntry()
	mp.widthEntry.SetText(formatDimension(sess.Calibration().ImageWidthUM))
	mp.heightEntry = widget.NewEntry()
	mp.heightEntry.SetText(formatDimension(sess.Calibration().ImageHeightUM))

	recalcButton := widget.NewButton("Recalculate", func() {
		mp.onRecalculate()
	})
	scaleBarButton := widget.NewButton("Read Scale Bar", func() {
		mp.onReadScaleBar()
	})

	mp.lineResult = widget.NewLabel("")
	mp.summary = widget.NewLabel("No measurements yet.")
	mp.summary.Wrapping = fyne.TextWrapWord

	mp.createTable()

	deleteButton := widget.NewButton("Delete Selected", func() {
		if mp.session.DeleteSelected() {
			mp.Refresh()
		}
	})
	copyButton := widget.NewButton("Copy to Clipboard", func() {
		mp.onCopyTable()
	})

	cvs.OnLeftClick(func(x, y float64) {
		if mp.session.ClickAt(geometry.PointInt{X: int(x), Y: int(y)}) != nil {
			mp.Refresh()
		}
	})
	cvs.OnLineDrawn(func(p0, p1 geometry.Point2D) {
		mp.onLineDrawn(p0, p1)
	})

	mp.container = container.NewVBox(
		widget.NewCard("Measurement Mode", "", mp.modeSelect),
		widget.NewCard("Image Dimensions", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Width (µm):"), mp.widthEntry,
				widget.NewLabel("Height (µm):"), mp.heightEntry,
			),
			container.NewHBox(recalcButton, scaleBarButton),
		)),
		widget.NewCard("Line Tool", "", mp.lineResult),
		widget.NewCard("Measurements", "", container.NewVBox(
			container.NewHBox(deleteButton, copyButton),
			mp.summary,
		)),
	)

	return mp
}

// Container returns the panel controls without the table.
func (mp *MeasurePanel) Container() fyne.CanvasObject {
	return mp.container
}

// Table returns the measurement table, laid out separately so it can take
// the remaining vertical space.
func (mp *MeasurePanel) Table() fyne.CanvasObject {
	return mp.table
}

// OnCalibrated registers a callback invoked after the user applies new
// physical dimensions. The window uses it to remember the dimensions as
// the default for new tabs.
func (mp *MeasurePanel) OnCalibrated(fn func(widthUM, heightUM float64)) {
	mp.onCalibrated = fn
}

// SetWindow sets the parent window for clipboard access.
func (mp *MeasurePanel) SetWindow(w fyne.Window) {
	mp.window = w
}

// Refresh redraws the table, the summary, the calibration entries, and the
// measurement overlay from session state.
func (mp *MeasurePanel) Refresh() {
	cal := mp.session.Calibration()
	mp.widthEntry.SetText(formatDimension(cal.ImageWidthUM))
	mp.heightEntry.SetText(formatDimension(cal.ImageHeightUM))

	mp.table.Refresh()
	mp.updateSummary()
	mp.syncOverlay()
}

func (mp *MeasurePanel) createTable() {
	mp.table = widget.NewTable(
		func() (int, int) {
			return mp.session.Store().Len() + 1, len(tableHeaders)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			if id.Row == 0 {
				label.TextStyle = fyne.TextStyle{Bold: true}
				label.SetText(tableHeaders[id.Col])
				return
			}
			label.TextStyle = fyne.TextStyle{}

			records := mp.session.Store().Records()
			if id.Row-1 >= len(records) {
				label.SetText("")
				return
			}
			rec := records[id.Row-1]
			switch id.Col {
			case 0:
				label.SetText(strconv.Itoa(rec.ID))
			case 1:
				label.SetText(formatWithError(rec.AreaUM2))
			case 2:
				label.SetText(formatWithError(rec.WidthUM))
			case 3:
				label.SetText(formatWithError(rec.HeightUM))
			}
		},
	)
	mp.table.SetColumnWidth(0, 70)
	mp.table.SetColumnWidth(1, 150)
	mp.table.SetColumnWidth(2, 130)
	mp.table.SetColumnWidth(3, 130)

	mp.table.OnSelected = func(id widget.TableCellID) {
		if id.Row == 0 {
			return
		}
		records := mp.session.Store().Records()
		if id.Row-1 >= len(records) {
			return
		}
		mp.session.Select(records[id.Row-1].ID)
		mp.syncOverlay()
	}
}

// onRecalculate applies the dimension entries to the calibration and
// recomputes every record.
func (mp *MeasurePanel) onRecalculate() {
	width, errW := strconv.ParseFloat(strings.TrimSpace(mp.widthEntry.Text), 64)
	height, errH := strconv.ParseFloat(strings.TrimSpace(mp.heightEntry.Text), 64)
	if errW != nil || errH != nil {
		mp.report("Invalid input: please enter numeric values for dimensions.")
		return
	}

	if err := mp.session.Recalibrate(width, height); err != nil {
		mp.report(fmt.Sprintf("Calibration failed: %v", err))
		return
	}
	if mp.onCalibrated != nil {
		mp.onCalibrated(width, height)
	}
	mp.Refresh()
}

// onReadScaleBar runs OCR over the annotation strip at the bottom of the
// image and reports the legend it finds. The user applies it by entering
// dimensions; the bar's pixel extent is not detected so auto-calibration
// is not attempted.
func (mp *MeasurePanel) onReadScaleBar() {
	if !mp.session.HasImage() {
		mp.report("No image loaded.")
		return
	}

	reader, err := ocr.NewReader()
	if err != nil {
		mp.report(fmt.Sprintf("Scale bar OCR unavailable: %v", err))
		return
	}
	defer reader.Close()

	img := mp.session.Image()
	bar, err := reader.Read(img, ocr.BottomStrip(img, scaleBarStripFraction))
	if err != nil {
		mp.report("No scale bar legend found in the image.")
		return
	}
	mp.report(fmt.Sprintf("Scale bar detected: %.4g %s (%.4g µm).", bar.Value, bar.Unit, bar.Micrometres()))
}

func (mp *MeasurePanel) onLineDrawn(p0, p1 geometry.Point2D) {
	length, ok := mp.session.MeasureLine(p0, p1)
	if !ok {
		return
	}

	mp.lineResult.SetText(fmt.Sprintf("Length: %.2f µm", length))
	mp.canvas.SetOverlay("line", &canvas.Overlay{
		Lines: []canvas.OverlayLine{{
			P0:        p0,
			P1:        p1,
			Color:     canvas.ColorLine,
			Thickness: 2,
		}},
	})
}

// onCopyTable copies the measurement table to the clipboard as
// tab-separated text, pasteable into a spreadsheet.
func (mp *MeasurePanel) onCopyTable() {
	records := mp.session.Store().Records()
	if len(records) == 0 {
		mp.report("No measurements to copy.")
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(tableHeaders, "\t"))
	sb.WriteString("\n")
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("%d\t%s\t%s\t%s\n",
			rec.ID,
			formatWithError(rec.AreaUM2),
			formatWithError(rec.WidthUM),
			formatWithError(rec.HeightUM)))
	}

	if mp.window != nil {
		mp.window.Clipboard().SetContent(sb.String())
	}
	mp.report(fmt.Sprintf("Copied %d measurements to clipboard.", len(records)))
}

// updateSummary recomputes the mean and spread of measured areas.
func (mp *MeasurePanel) updateSummary() {
	records := mp.session.Store().Records()
	if len(records) == 0 {
		mp.summary.SetText("No measurements yet.")
		return
	}

	areas := make([]float64, len(records))
	for i, rec := range records {
		areas[i] = rec.AreaUM2
	}

	mean := stat.Mean(areas, nil)
	if len(areas) < 2 {
		mp.summary.SetText(fmt.Sprintf("%d cell, mean area %.2f µm²", len(areas), mean))
		return
	}
	sd := stat.StdDev(areas, nil)
	mp.summary.SetText(fmt.Sprintf("%d cells, mean area %.2f µm² (σ %.2f)", len(areas), mean, sd))
}

// syncOverlay redraws measured cell outlines, highlighting the selection.
func (mp *MeasurePanel) syncOverlay() {
	records := mp.session.Store().Records()
	contours := make([]geometry.Contour, len(records))
	ids := make([]int, len(records))
	for i, rec := range records {
		contours[i] = rec.Contour
		ids[i] = rec.ID
	}
	mp.canvas.SetOverlay("measurements", canvas.OutlineOverlay(contours, ids, mp.session.SelectedID))
}

func (mp *MeasurePanel) report(msg string) {
	if mp.status != nil {
		mp.status(msg)
	}
}

// formatWithError renders a value with its stated relative error band.
func formatWithError(v float64) string {
	return fmt.Sprintf("%.2f ± %.2f", v, v*measure.DisplayErrorFraction)
}

func formatDimension(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
