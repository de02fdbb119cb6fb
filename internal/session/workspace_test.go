package session

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"cell-analyzer/internal/project"
	"cell-analyzer/pkg/geometry"
)

func newTestWorkspace(t *testing.T, regions ...geometry.Contour) *Workspace {
	t.Helper()
	return NewWorkspace(&stubDetector{regions: regions}, nil)
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cells.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, testImage(80, 60)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddTab(t *testing.T) {
	ws := newTestWorkspace(t)

	tab := ws.AddTab("")
	if tab.Title != "New Tab 1" {
		t.Errorf("default title = %q, want %q", tab.Title, "New Tab 1")
	}

	named := ws.AddTab("Culture B")
	if named.Title != "Culture B" {
		t.Errorf("title = %q", named.Title)
	}

	// The serial keeps counting past explicit titles
	third := ws.AddTab("")
	if third.Title != "New Tab 3" {
		t.Errorf("title = %q, want %q", third.Title, "New Tab 3")
	}

	if len(ws.Tabs()) != 3 {
		t.Errorf("tabs = %d, want 3", len(ws.Tabs()))
	}
}

func TestAddTabUsesDefaultDimensions(t *testing.T) {
	ws := newTestWorkspace(t)

	before := ws.AddTab("")
	if before.Calibration().ImageWidthUM != DefaultWidthUM {
		t.Errorf("width = %g, want %g", before.Calibration().ImageWidthUM, DefaultWidthUM)
	}

	ws.SetDefaultDimensions(42, 24)
	after := ws.AddTab("")
	cal := after.Calibration()
	if cal.ImageWidthUM != 42 || cal.ImageHeightUM != 24 {
		t.Errorf("dimensions = %gx%g, want 42x24", cal.ImageWidthUM, cal.ImageHeightUM)
	}

	// Existing tabs keep their dimensions
	if before.Calibration().ImageWidthUM != DefaultWidthUM {
		t.Error("SetDefaultDimensions changed an existing tab")
	}

	// Non-positive values are ignored
	ws.SetDefaultDimensions(-1, 24)
	if ws.AddTab("").Calibration().ImageWidthUM != 42 {
		t.Error("non-positive width replaced workspace defaults")
	}
}

func TestCloseTab(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.AddTab("a")
	b := ws.AddTab("b")
	ws.AddTab("c")

	ws.CloseTab(1)
	if len(ws.Tabs()) != 2 {
		t.Fatalf("tabs = %d, want 2", len(ws.Tabs()))
	}
	for _, tab := range ws.Tabs() {
		if tab == b {
			t.Error("closed tab still present")
		}
	}

	// Out-of-range indexes are ignored
	ws.CloseTab(-1)
	ws.CloseTab(10)
	if len(ws.Tabs()) != 2 {
		t.Error("out-of-range close changed the tab list")
	}
}

func TestRenameTab(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.AddTab("old")

	ws.RenameTab(0, "new")
	if ws.Tab(0).Title != "new" {
		t.Errorf("title = %q", ws.Tab(0).Title)
	}

	ws.RenameTab(0, "")
	if ws.Tab(0).Title != "new" {
		t.Error("empty rename should be ignored")
	}
}

func TestEvents(t *testing.T) {
	ws := newTestWorkspace(t)

	var added, closed int
	ws.On(EventTabAdded, func(data interface{}) { added++ })
	ws.On(EventTabClosed, func(data interface{}) { closed++ })

	ws.AddTab("")
	ws.AddTab("")
	ws.CloseTab(0)

	if added != 2 || closed != 1 {
		t.Errorf("added = %d closed = %d, want 2 and 1", added, closed)
	}
}

func TestImportImage(t *testing.T) {
	ws := newTestWorkspace(t, square(0, 0, 20))
	tab := ws.AddTab("")

	path := writeTestPNG(t, t.TempDir())
	if err := ws.ImportImage(tab, path); err != nil {
		t.Fatalf("ImportImage: %v", err)
	}
	if !tab.HasImage() {
		t.Error("tab has no image after import")
	}

	if err := ws.ImportImage(tab, filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("importing a missing file should fail")
	}
}

func TestSaveProjectSkipsEmptyTabs(t *testing.T) {
	ws := newTestWorkspace(t, square(0, 0, 20))
	ws.AddTab("empty")
	withImage := ws.AddTab("full")

	dir := t.TempDir()
	if err := ws.ImportImage(withImage, writeTestPNG(t, dir)); err != nil {
		t.Fatal(err)
	}
	withImage.ClickAt(geometry.PointInt{X: 5, Y: 5})

	projPath := filepath.Join(dir, "out.cellproj")
	if err := ws.SaveProject(projPath); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if ws.ProjectPath != projPath {
		t.Errorf("ProjectPath = %q", ws.ProjectPath)
	}

	doc, err := project.Load(projPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Tabs) != 1 {
		t.Fatalf("saved tabs = %d, want 1 (empty tab skipped)", len(doc.Tabs))
	}
	if doc.Tabs[0].Title != "full" {
		t.Errorf("saved tab = %q", doc.Tabs[0].Title)
	}
}

func TestSaveLoadProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ws := newTestWorkspace(t, square(0, 0, 20))
	tab := ws.AddTab("Culture A")
	if err := ws.ImportImage(tab, writeTestPNG(t, dir)); err != nil {
		t.Fatal(err)
	}
	tab.ClickAt(geometry.PointInt{X: 5, Y: 5})
	if err := tab.Recalibrate(40, 30); err != nil {
		t.Fatal(err)
	}

	projPath := filepath.Join(dir, "roundtrip.cellproj")
	if err := ws.SaveProject(projPath); err != nil {
		t.Fatal(err)
	}

	loaded := newTestWorkspace(t, square(0, 0, 20))
	loaded.AddTab("stale")
	if err := loaded.LoadProject(projPath); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}

	if len(loaded.Tabs()) != 1 {
		t.Fatalf("tabs after load = %d, want 1 (old tabs replaced)", len(loaded.Tabs()))
	}
	got := loaded.Tab(0)
	if got.Title != "Culture A" {
		t.Errorf("title = %q", got.Title)
	}
	cal := got.Calibration()
	if cal.ImageWidthUM != 40 || cal.ImageHeightUM != 30 {
		t.Errorf("calibration = %gx%g, want 40x30", cal.ImageWidthUM, cal.ImageHeightUM)
	}
	if cal.PixelWidth != 80 || cal.PixelHeight != 60 {
		t.Errorf("pixel size = %dx%d, want 80x60", cal.PixelWidth, cal.PixelHeight)
	}
	if got.Store().Len() != 1 {
		t.Errorf("measurements = %d, want 1", got.Store().Len())
	}
}

func TestLoadProjectFailureLeavesWorkspace(t *testing.T) {
	dir := t.TempDir()

	// A structurally valid document with a corrupt embedded image
	doc := project.NewDocument()
	doc.Tabs = append(doc.Tabs, project.TabSnapshot{
		Title:         "broken",
		ImageB64:      "not base64 at all",
		ImageWidthUM:  10,
		ImageHeightUM: 10,
	})
	badPath := filepath.Join(dir, "bad.cellproj")
	if err := doc.Save(badPath); err != nil {
		t.Fatal(err)
	}

	ws := newTestWorkspace(t, square(0, 0, 20))
	keep := ws.AddTab("keep")

	if err := ws.LoadProject(badPath); err == nil {
		t.Fatal("LoadProject of corrupt project should fail")
	}
	if len(ws.Tabs()) != 1 || ws.Tab(0) != keep {
		t.Error("failed load replaced the workspace tabs")
	}
	if ws.ProjectPath != "" {
		t.Error("failed load set ProjectPath")
	}
}

func TestLoadProjectMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "malformed.cellproj")
	if err := os.WriteFile(path, []byte(`{"version": "1.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	ws := newTestWorkspace(t)
	err := ws.LoadProject(path)
	if err == nil {
		t.Fatal("LoadProject of document without tabs should fail")
	}
}
