package session

import (
	"errors"
	"fmt"

	"cell-analyzer/internal/imaging"
	"cell-analyzer/internal/project"
)

// EventType identifies workspace events the UI can subscribe to.
type EventType int

const (
	EventTabAdded EventType = iota
	EventTabClosed
	EventTabRenamed
	EventImageLoaded
	EventMeasurementsChanged
	EventProjectLoaded
	EventProjectSaved
)

// EventListener is called when an event occurs. All workspace access
// happens on the UI thread; listeners run synchronously on the caller.
type EventListener func(data interface{})

// Workspace holds the ordered set of open tabs and project-level
// operations. Tabs are independent sessions sharing no mutable state.
type Workspace struct {
	ProjectPath string

	detector  RegionDetector
	status    func(string)
	tabs      []*Session
	listeners map[EventType][]EventListener
	tabSerial int

	defaultWidthUM  float64
	defaultHeightUM float64
}

// NewWorkspace creates an empty workspace. status receives user-facing
// messages and may be nil.
func NewWorkspace(detector RegionDetector, status func(string)) *Workspace {
	return &Workspace{
		detector:        detector,
		status:          status,
		listeners:       make(map[EventType][]EventListener),
		defaultWidthUM:  DefaultWidthUM,
		defaultHeightUM: DefaultHeightUM,
	}
}

// SetDefaultDimensions replaces the physical dimensions new tabs start
// with, typically restored from preferences. Non-positive values are
// ignored. Existing tabs are unaffected.
func (w *Workspace) SetDefaultDimensions(widthUM, heightUM float64) {
	if widthUM <= 0 || heightUM <= 0 {
		return
	}
	w.defaultWidthUM = widthUM
	w.defaultHeightUM = heightUM
}

// On registers an event listener for the specified event type.
func (w *Workspace) On(event EventType, listener EventListener) {
	w.listeners[event] = append(w.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (w *Workspace) Emit(event EventType, data interface{}) {
	for _, listener := range w.listeners[event] {
		listener(data)
	}
}

// SetStatusFunc replaces the status sink for the workspace and every tab.
func (w *Workspace) SetStatusFunc(fn func(string)) {
	w.status = fn
	for _, t := range w.tabs {
		t.SetStatusFunc(fn)
	}
}

// Tabs returns the open tabs in display order.
func (w *Workspace) Tabs() []*Session {
	return w.tabs
}

// Tab returns the tab at the given index, or nil.
func (w *Workspace) Tab(i int) *Session {
	if i < 0 || i >= len(w.tabs) {
		return nil
	}
	return w.tabs[i]
}

// AddTab opens a new empty tab. An empty title gets a running default.
func (w *Workspace) AddTab(title string) *Session {
	w.tabSerial++
	if title == "" {
		title = fmt.Sprintf("New Tab %d", w.tabSerial)
	}
	tab := New(title, w.detector, w.status)
	tab.SetDefaultDimensions(w.defaultWidthUM, w.defaultHeightUM)
	w.tabs = append(w.tabs, tab)
	w.Emit(EventTabAdded, tab)
	w.report(fmt.Sprintf("New tab %q created.", title))
	return tab
}

// CloseTab removes the tab at the given index.
func (w *Workspace) CloseTab(i int) {
	if i < 0 || i >= len(w.tabs) {
		return
	}
	tab := w.tabs[i]
	w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
	w.Emit(EventTabClosed, tab)
	w.report("Tab closed.")
}

// RenameTab changes a tab's title.
func (w *Workspace) RenameTab(i int, title string) {
	tab := w.Tab(i)
	if tab == nil || title == "" {
		return
	}
	tab.Title = title
	w.Emit(EventTabRenamed, tab)
	w.report(fmt.Sprintf("Tab renamed to %q.", title))
}

// ImportImage loads an image file into the given tab.
func (w *Workspace) ImportImage(tab *Session, path string) error {
	img, err := imaging.Load(path)
	if err != nil {
		return err
	}
	if err := tab.LoadImage(img); err != nil {
		return err
	}
	w.Emit(EventImageLoaded, tab)
	return nil
}

// SaveProject writes every non-empty tab to a project file. Snapshots are
// accumulated first; a tab that fails to encode aborts the save before
// anything is written.
func (w *Workspace) SaveProject(path string) error {
	doc := project.NewDocument()
	for _, tab := range w.tabs {
		snap, err := tab.Snapshot()
		if errors.Is(err, ErrNoImage) {
			continue
		}
		if err != nil {
			return fmt.Errorf("tab %q: %w", tab.Title, err)
		}
		doc.Tabs = append(doc.Tabs, snap)
	}

	if err := doc.Save(path); err != nil {
		return err
	}

	w.ProjectPath = path
	w.Emit(EventProjectSaved, path)
	w.report(fmt.Sprintf("Project saved to %s", path))
	return nil
}

// LoadProject replaces the workspace contents with the tabs of a project
// file. Every tab is restored into a fresh session before the current tabs
// are replaced, so a failure partway through leaves the workspace exactly
// as it was.
func (w *Workspace) LoadProject(path string) error {
	doc, err := project.Load(path)
	if err != nil {
		return err
	}

	restored := make([]*Session, 0, len(doc.Tabs))
	for i, snap := range doc.Tabs {
		tab := New(snap.Title, w.detector, w.status)
		if err := tab.Restore(snap); err != nil {
			return fmt.Errorf("tab %d (%q): %w", i, snap.Title, err)
		}
		restored = append(restored, tab)
	}

	w.tabs = restored
	w.ProjectPath = path
	w.Emit(EventProjectLoaded, path)
	w.report(fmt.Sprintf("Project loaded from %s", path))
	return nil
}

func (w *Workspace) report(msg string) {
	if w.status != nil {
		w.status(msg)
	}
}
