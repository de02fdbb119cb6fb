// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"

	"cell-analyzer/internal/imaging"
	"cell-analyzer/internal/session"
	"cell-analyzer/internal/version"
	"cell-analyzer/ui/canvas"
	"cell-analyzer/ui/panels"
	"cell-analyzer/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

var projectExtensions = []string{".cellproj", ".json"}

// tabView pairs a session with its canvas and control panel.
type tabView struct {
	session *session.Session
	canvas  *canvas.ImageCanvas
	panel   *panels.MeasurePanel
	item    *container.TabItem
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	workspace *session.Workspace
	prefs     *prefs.Prefs

	tabs      *container.DocTabs
	views     []*tabView
	statusBar *widget.Label

	fitToWindowItem *fyne.MenuItem
}

// New creates the main window over a workspace. The workspace's status
// sink is redirected to the window's status bar.
func New(fyneApp fyne.App, ws *session.Workspace, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Cell Analyzer")

	mw := &MainWindow{
		Window:    win,
		app:       fyneApp,
		workspace: ws,
		prefs:     p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	ws.SetStatusFunc(mw.updateStatus)
	if len(ws.Tabs()) == 0 {
		ws.AddTab("")
	}

	win.Resize(fyne.NewSize(1200, 800))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")

	mw.tabs = container.NewDocTabs()
	mw.tabs.CreateTab = func() *container.TabItem {
		// The tab-added listener appends and selects the new item, so
		// returning nil keeps DocTabs from appending it a second time.
		mw.workspace.AddTab("")
		return nil
	}
	mw.tabs.OnClosed = func(item *container.TabItem) {
		for i, v := range mw.views {
			if v.item == item {
				mw.views = append(mw.views[:i], mw.views[i+1:]...)
				mw.workspace.CloseTab(i)
				return
			}
		}
	}

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		mw.tabs,
	)

	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Tab", mw.onNewTab),
		fyne.NewMenuItem("Rename Tab...", mw.onRenameTab),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import Image...", mw.onImportImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItem("Load Project...", mw.onLoadProject),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for workspace events.
func (mw *MainWindow) setupEventHandlers() {
	mw.workspace.On(session.EventTabAdded, func(data interface{}) {
		sess, ok := data.(*session.Session)
		if !ok {
			return
		}
		mw.addTabView(sess)
	})

	mw.workspace.On(session.EventTabRenamed, func(data interface{}) {
		sess, ok := data.(*session.Session)
		if !ok {
			return
		}
		if v := mw.viewFor(sess); v != nil {
			v.item.Text = sess.Title
			mw.tabs.Refresh()
		}
	})

	mw.workspace.On(session.EventProjectLoaded, func(data interface{}) {
		mw.rebuildTabs()
		if path, ok := data.(string); ok {
			mw.SetTitle("Cell Analyzer - " + filepath.Base(path))
		}
	})

	mw.workspace.On(session.EventProjectSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("Cell Analyzer - " + filepath.Base(path))
		}
	})
}

// addTabView builds the canvas and panel for a new session and appends its
// tab item.
func (mw *MainWindow) addTabView(sess *session.Session) {
	cvs := canvas.NewImageCanvas()
	panel := panels.NewMeasurePanel(sess, cvs, mw.updateStatus)
	panel.SetWindow(mw.Window)
	panel.OnCalibrated(mw.rememberDimensions)

	cvs.SetFitToWindow(mw.prefs.Bool(prefs.KeyFitToWindow, true))

	side := container.NewBorder(
		panel.Container(),
		nil,
		nil,
		nil,
		panel.Table(),
	)

	split := container.NewHSplit(cvs.Container(), side)
	split.SetOffset(0.62)

	item := container.NewTabItem(sess.Title, split)
	mw.views = append(mw.views, &tabView{
		session: sess,
		canvas:  cvs,
		panel:   panel,
		item:    item,
	})
	mw.tabs.Append(item)
	mw.tabs.Select(item)
}

// rebuildTabs reconstructs every tab view, after a project load replaced
// the workspace contents.
func (mw *MainWindow) rebuildTabs() {
	for _, v := range mw.views {
		mw.tabs.Remove(v.item)
	}
	mw.views = nil

	for _, sess := range mw.workspace.Tabs() {
		mw.addTabView(sess)
		v := mw.views[len(mw.views)-1]
		v.canvas.SetImage(sess.Image())
		v.panel.Refresh()
	}
	if len(mw.views) > 0 {
		mw.tabs.Select(mw.views[0].item)
	}
}

// current returns the active tab view, or nil.
func (mw *MainWindow) current() *tabView {
	i := mw.tabs.SelectedIndex()
	if i < 0 || i >= len(mw.views) {
		return nil
	}
	return mw.views[i]
}

func (mw *MainWindow) viewFor(sess *session.Session) *tabView {
	for _, v := range mw.views {
		if v.session == sess {
			return v
		}
	}
	return nil
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// lastDir returns a remembered directory as a ListableURI, or nil.
func (mw *MainWindow) lastDir(key string) fyne.ListableURI {
	path := mw.prefs.String(key)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(key, filePath string) {
	mw.prefs.SetString(key, filepath.Dir(filePath))
	_ = mw.prefs.Save()
}

// rememberDimensions persists applied physical dimensions as the default
// for new tabs, in this run and the next.
func (mw *MainWindow) rememberDimensions(widthUM, heightUM float64) {
	mw.workspace.SetDefaultDimensions(widthUM, heightUM)
	mw.prefs.SetFloat(prefs.KeyDefaultWidthUM, widthUM)
	mw.prefs.SetFloat(prefs.KeyDefaultHeightUM, heightUM)
	_ = mw.prefs.Save()
}

// Menu action handlers

func (mw *MainWindow) onNewTab() {
	mw.workspace.AddTab("")
}

func (mw *MainWindow) onRenameTab() {
	v := mw.current()
	if v == nil {
		return
	}
	entry := widget.NewEntry()
	entry.SetText(v.session.Title)
	dialog.ShowForm("Rename Tab", "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Title", entry)},
		func(ok bool) {
			if !ok || entry.Text == "" {
				return
			}
			i := mw.tabs.SelectedIndex()
			mw.workspace.RenameTab(i, entry.Text)
		}, mw.Window)
}

func (mw *MainWindow) onImportImage() {
	v := mw.current()
	if v == nil {
		return
	}

	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(prefs.KeyLastImageDir, path)

		if err := mw.workspace.ImportImage(v.session, path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}

		v.canvas.SetImage(v.session.Image())
		v.canvas.ClearAllOverlays()
		if v.canvas.FitToWindowEnabled() {
			v.canvas.FitToWindow()
		}
		v.panel.Refresh()
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(imaging.SupportedFormats()))
	if loc := mw.lastDir(prefs.KeyLastImageDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveProject() {
	if mw.workspace.ProjectPath == "" {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.workspace.SaveProject(mw.workspace.ProjectPath); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) == "" {
			path += ".cellproj"
		}
		mw.saveLastDir(prefs.KeyLastProjectDir, path)
		if err := mw.workspace.SaveProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("project.cellproj")
	if loc := mw.lastDir(prefs.KeyLastProjectDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onLoadProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(prefs.KeyLastProjectDir, path)
		if err := mw.workspace.LoadProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(projectExtensions))
	if loc := mw.lastDir(prefs.KeyLastProjectDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// LoadProject loads a project given on the command line.
func (mw *MainWindow) LoadProject(path string) error {
	return mw.workspace.LoadProject(path)
}

func (mw *MainWindow) onZoomIn() {
	if v := mw.current(); v != nil {
		mw.disableFitToWindow(v)
		v.canvas.ZoomIn()
	}
}

func (mw *MainWindow) onZoomOut() {
	if v := mw.current(); v != nil {
		mw.disableFitToWindow(v)
		v.canvas.ZoomOut()
	}
}

func (mw *MainWindow) onActualSize() {
	if v := mw.current(); v != nil {
		mw.disableFitToWindow(v)
		v.canvas.SetZoom(1.0)
	}
}

func (mw *MainWindow) onToggleFitToWindow() {
	v := mw.current()
	if v == nil {
		return
	}
	enabled := !v.canvas.FitToWindowEnabled()
	v.canvas.SetFitToWindow(enabled)
	mw.prefs.SetBool(prefs.KeyFitToWindow, enabled)
	_ = mw.prefs.Save()

	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) disableFitToWindow(v *tabView) {
	if v.canvas.FitToWindowEnabled() {
		v.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Cell Analyzer",
		fmt.Sprintf("Cell Analyzer v%s\n\n"+
			"Microscope cell measurement and calibration.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
