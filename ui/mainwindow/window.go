// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/detect"
	"dicom-viewer/internal/study"
	"dicom-viewer/ui/prefs"
	"dicom-viewer/ui/viewer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"
)

// MainWindow is the primary application window: the viewer widget plus the
// tool bar, orientation selector, overlay toggle, and status bar.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	prefs  *prefs.Prefs
	viewer *viewer.Viewer
	source *study.DirSource
	logger *log.Logger

	statusBar   *widget.Label
	overlayChk  *widget.Check
	toolButtons map[string]*widget.Button
}

// New creates the main window around an already constructed viewer.
func New(fyneApp fyne.App, state *app.State, userPrefs *prefs.Prefs, v *viewer.Viewer, source *study.DirSource, logger *log.Logger) *MainWindow {
	win := fyneApp.NewWindow("Diagnostic Viewer")

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		state:       state,
		prefs:       userPrefs,
		viewer:      v,
		source:      source,
		logger:      logger,
		toolButtons: make(map[string]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	win.SetCloseIntercept(func() {
		mw.saveSession()
		v.Close()
		win.Close()
	})
	win.Resize(fyne.NewSize(1024, 768))
	return mw
}

// setupUI builds the toolbar, viewer area, and status bar.
func (mw *MainWindow) setupUI() {
	toolRow := container.NewHBox()
	for _, name := range mw.viewer.ToolGroup().Registry().ExclusiveNames() {
		name := name
		btn := widget.NewButton(name, func() {
			if err := mw.viewer.ActivateTool(name); err != nil {
				mw.logger.Error("tool activation failed", "tool", name, "err", err)
				return
			}
			mw.state.SetActiveTool(name)
		})
		mw.toolButtons[name] = btn
		toolRow.Add(btn)
	}

	orientations := make([]string, 0, 3)
	for _, o := range study.Orientations() {
		orientations = append(orientations, o.String())
	}
	orientationSel := widget.NewSelect(orientations, func(s string) {
		o, err := study.ParseOrientation(s)
		if err != nil {
			return
		}
		mw.viewer.SetOrientation(o)
		mw.state.SetOrientation(o)
		mw.prefs.SetString(prefs.KeyOrientation, s)
	})
	orientationSel.SetSelected(mw.prefs.String(prefs.KeyOrientation))
	if orientationSel.Selected == "" {
		orientationSel.SetSelected(study.Axial.String())
	}

	mw.overlayChk = widget.NewCheck("AI overlay", func(on bool) {
		mw.viewer.SetOverlayVisible(on)
		mw.state.SetOverlayVisible(on)
		mw.prefs.SetBool(prefs.KeyOverlayVisible, on)
	})
	mw.overlayChk.SetChecked(mw.prefs.Bool(prefs.KeyOverlayVisible, false))

	topBar := container.NewHBox(toolRow, widget.NewSeparator(), orientationSel, mw.overlayChk)

	mw.statusBar = widget.NewLabel("Ready")
	mw.SetContent(container.NewBorder(topBar, mw.statusBar, nil, nil, mw.viewer))
}

// setupMenus builds the menu bar.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Study…", mw.openStudy),
		fyne.NewMenuItem("Open Detections…", mw.openDetections),
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.viewer.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.viewer.ZoomOut),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Auto Window", mw.viewer.AutoWindow),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu))
}

// setupEventHandlers subscribes the window chrome to application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventStackLoaded, func(data interface{}) {
		refs := data.([]study.ImageRef)
		mw.statusBar.SetText(fmt.Sprintf("Loaded %d images", len(refs)))
	})
	mw.state.On(app.EventStackLoadFailed, func(data interface{}) {
		// Previous images stay on screen; only the status reports the failure.
		mw.statusBar.SetText(fmt.Sprintf("Load failed: %v", data))
	})
	mw.state.On(app.EventToolChanged, func(data interface{}) {
		mw.statusBar.SetText(fmt.Sprintf("Active tool: %v", data))
	})
	mw.state.On(app.EventAnnotationCreated, func(data interface{}) {
		a := data.(app.Annotation)
		mw.statusBar.SetText(fmt.Sprintf("Annotation: %s (%d points)", a.Tool, len(a.Points)))
	})
	mw.state.On(app.EventDetectionsChanged, func(data interface{}) {
		feed := data.(detect.Feed)
		mw.statusBar.SetText(fmt.Sprintf("Detections: %d", len(feed.Records)))
	})
}

// openStudy lets the user pick a study directory and loads its stack.
func (mw *MainWindow) openStudy() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		mw.OpenStudyDir(uri.Path())
	}, mw.Window)
}

// OpenStudyDir loads the image stack found in dir.
func (mw *MainWindow) OpenStudyDir(dir string) {
	refs, err := study.ListDir(dir)
	if err != nil {
		mw.statusBar.SetText(fmt.Sprintf("Open study: %v", err))
		return
	}
	if len(refs) == 0 {
		mw.statusBar.SetText("Open study: no images found")
		return
	}

	mw.source.Dir = dir
	mw.prefs.SetString(prefs.KeyLastStudyDir, dir)
	mw.statusBar.SetText(fmt.Sprintf("Loading %d images…", len(refs)))
	mw.viewer.LoadStack(refs)
}

// openDetections lets the user pick a detection feed file.
func (mw *MainWindow) openDetections() {
	dialog.ShowFileOpen(func(uri fyne.URIReadCloser, err error) {
		if err != nil || uri == nil {
			return
		}
		defer uri.Close()
		mw.OpenFeedFile(uri.URI().Path())
	}, mw.Window)
}

// OpenFeedFile loads a detection feed and hands it to the overlay.
func (mw *MainWindow) OpenFeedFile(path string) {
	feed, err := detect.LoadFeed(path)
	if err != nil {
		mw.statusBar.SetText(fmt.Sprintf("Open detections: %v", err))
		return
	}
	mw.prefs.SetString(prefs.KeyLastFeedFile, path)
	mw.viewer.SetDetections(feed.Records)
	mw.state.SetFeed(feed)
}

// saveSession persists the UI state on exit.
func (mw *MainWindow) saveSession() {
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn("saving preferences failed", "err", err)
	}
}
