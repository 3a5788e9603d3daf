// Package main provides the entry point for the diagnostic image viewer.
package main

import (
	"os"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/study"
	"dicom-viewer/ui/mainwindow"
	"dicom-viewer/ui/prefs"
	"dicom-viewer/ui/viewer"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/charmbracelet/log"
)

const (
	appID      = "dicom-viewer"
	appVersion = "0.1.0"
)

func main() {
	cfg, err := app.LoadConfig(app.ConfigPath())
	if err != nil {
		log.Fatal("configuration error", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           cfg.LogLevelValue(),
	})
	logger.Info("starting viewer", "version", appVersion)

	fyneApp := fyneapp.NewWithID(appID)
	state := app.NewState()
	userPrefs := prefs.Load()

	source := study.NewDirSource("", cfg.MaxEdge)
	v, err := viewer.New(source, cfg, logger)
	if err != nil {
		logger.Fatal("viewer initialization failed", "err", err)
	}

	// Mirror viewer callbacks into the application state so external
	// collaborators (reporting, persistence) subscribe in one place.
	v.OnStackLoaded(func([]study.ImageRef) { state.SetStack(v.Stack()) })
	v.OnLoadError(state.SetLoadFailed)
	v.OnAnnotation(state.AddAnnotation)
	v.OnToolChanged(state.SetActiveTool)

	win := mainwindow.New(fyneApp, state, userPrefs, v, source, logger)

	// Command line: an optional study directory, falling back to the last
	// session's directory.
	dir := userPrefs.String(prefs.KeyLastStudyDir)
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if dir != "" {
		win.OpenStudyDir(dir)
	}
	if feed := userPrefs.String(prefs.KeyLastFeedFile); feed != "" {
		win.OpenFeedFile(feed)
	}

	win.Show()
	fyneApp.Run()
}
