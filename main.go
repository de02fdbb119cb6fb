// Package main provides the entry point for the Cell Analyzer application.
package main

import (
	"log"
	"os"

	"cell-analyzer/internal/detect"
	"cell-analyzer/internal/session"
	"cell-analyzer/internal/version"
	"cell-analyzer/ui/mainwindow"
	"cell-analyzer/ui/prefs"

	"fyne.io/fyne/v2/app"
)

const appTitle = "Cell Analyzer"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	fyneApp := app.NewWithID("io.cellanalyzer.app")
	appPrefs := prefs.Load()

	detector := detect.New(detect.DefaultOptions())
	workspace := session.NewWorkspace(detector, nil)
	workspace.SetDefaultDimensions(
		appPrefs.FloatWithFallback(prefs.KeyDefaultWidthUM, session.DefaultWidthUM),
		appPrefs.FloatWithFallback(prefs.KeyDefaultHeightUM, session.DefaultHeightUM),
	)

	win := mainwindow.New(fyneApp, workspace, appPrefs)
	win.SetTitle(appTitle)

	// Open a project given on the command line
	if len(os.Args) > 1 {
		projectPath := os.Args[1]
		if err := win.LoadProject(projectPath); err != nil {
			log.Printf("Failed to load project %s: %v", projectPath, err)
		}
	}

	win.ShowAndRun()
}
