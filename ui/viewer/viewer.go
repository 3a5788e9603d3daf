package viewer

import (
	"io"
	"sync"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/detect"
	"dicom-viewer/internal/study"
	"dicom-viewer/internal/windowing"
	"dicom-viewer/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25

	// MainViewport is the viewport id of a single-viewer layout.
	MainViewport = "main"
)

// Viewer is the diagnostic image viewer widget: one rendering surface, one
// tool group, an asynchronous stack loader, and the detection overlay.
//
// Lifetime rule: Close destroys the tool group before the surface; the
// reverse order is undefined behavior in the underlying engine.
type Viewer struct {
	widget.BaseWidget

	logger  *log.Logger
	manager *SurfaceManager
	surface *Surface
	group   *ToolGroup
	loader  *study.Loader
	overlay *overlayWidget
	style   OverlayStyle
	loading *widget.ProgressBarInfinite
	content *fyne.Container

	mu          sync.Mutex
	stack       *study.Stack
	feed        detect.Feed
	orientation study.Orientation

	// Pointer interaction state. One button drag at a time; the channel it
	// started on picks the tool for the whole gesture.
	dragButton desktop.MouseButton
	dragStart  fyne.Position
	dragLast   fyne.Position
	dragged    bool

	onStackLoaded func([]study.ImageRef)
	onLoadError   func(error)
	onAnnotation  func(app.Annotation)
	onToolChanged func(string)
}

// New creates a viewer that resolves image references through source.
// The surface, tool group, and loader are wired in dependency order: the
// tool group is only constructed once the surface exists.
func New(source study.ImageSource, cfg app.Config, logger *log.Logger) (*Viewer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	v := &Viewer{
		logger:  logger,
		manager: NewSurfaceManager(logger),
		style:   OverlayStyleFromConfig(cfg.Overlay),
	}

	host := container.NewStack()
	surface, err := v.manager.Create(host, MainViewport)
	if err != nil {
		return nil, err
	}
	v.surface = surface

	group, err := NewDefaultToolGroup(MainViewport, cfg.DefaultTool)
	if err != nil {
		v.manager.Destroy(surface)
		return nil, err
	}
	v.group = group

	v.loader = study.NewLoader(source, logger)
	v.loader.SetAliveCheck(surface.Alive)
	v.loader.OnBegin(func() { v.loading.Show() })
	v.loader.OnApply(v.applyStack)
	v.loader.OnError(v.loadFailed)

	v.overlay = newOverlayWidget(v.style.StrokeWidth)
	v.loading = widget.NewProgressBarInfinite()
	v.loading.Hide()
	v.content = container.NewStack(host, v.overlay, container.NewVBox(v.loading))

	v.ExtendBaseWidget(v)
	return v, nil
}

// CreateRenderer implements fyne.Widget.
func (v *Viewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.content)
}

// Resize keeps the overlay in sync with the viewport geometry.
func (v *Viewer) Resize(size fyne.Size) {
	v.BaseWidget.Resize(size)
	v.refreshOverlay()
}

// Surface returns the viewer's rendering surface handle.
func (v *Viewer) Surface() *Surface {
	return v.surface
}

// Loader returns the stack loader, mainly for tests and status displays.
func (v *Viewer) Loader() *study.Loader {
	return v.loader
}

// Close tears the viewer down: tool group first, then the surface. Safe to
// call more than once, and safe while a stack load is still in flight.
func (v *Viewer) Close() {
	v.group.Destroy()
	v.manager.Destroy(v.surface)
}

// OnStackLoaded sets the callback announcing a successfully applied stack.
func (v *Viewer) OnStackLoaded(fn func([]study.ImageRef)) { v.onStackLoaded = fn }

// OnLoadError sets the callback for failed stack loads. The previous stack
// stays on screen.
func (v *Viewer) OnLoadError(fn func(error)) { v.onLoadError = fn }

// OnAnnotation sets the callback receiving measurement-tool artifacts.
func (v *Viewer) OnAnnotation(fn func(app.Annotation)) { v.onAnnotation = fn }

// OnToolChanged sets the callback invoked after each tool activation.
func (v *Viewer) OnToolChanged(fn func(string)) { v.onToolChanged = fn }

// LoadStack starts loading an ordered list of image references into the
// viewport. The newest call wins; an empty list is a no-op.
func (v *Viewer) LoadStack(refs []study.ImageRef) {
	v.loader.Load(refs)
}

// applyStack installs a load result: fit the first frame, render, notify.
func (v *Viewer) applyStack(res study.LoadResult) {
	v.mu.Lock()
	v.stack = res.Stack
	v.mu.Unlock()

	v.showCurrentFrame(true)
	v.loading.Hide()
	if v.onStackLoaded != nil {
		v.onStackLoaded(res.Refs)
	}
}

func (v *Viewer) loadFailed(err error) {
	v.loading.Hide()
	if v.onLoadError != nil {
		v.onLoadError(err)
	}
}

// showCurrentFrame pushes the stack's current frame to the surface,
// optionally refitting the view to the viewport.
func (v *Viewer) showCurrentFrame(refit bool) {
	v.mu.Lock()
	stack := v.stack
	v.mu.Unlock()

	frame := stack.Current()
	v.surface.SetFrame(frame)
	if refit && frame != nil {
		v.fitToViewport(frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	v.surface.Render()
}

// fitToViewport picks the zoom that fits an image into the viewport.
func (v *Viewer) fitToViewport(imgW, imgH int) {
	size := v.Size()
	if size.Width <= 0 || size.Height <= 0 || imgW <= 0 || imgH <= 0 {
		return
	}
	zoomX := float64(size.Width) / float64(imgW)
	zoomY := float64(size.Height) / float64(imgH)
	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}
	v.surface.SetView(clampZoom(zoom), 0, 0)
}

func clampZoom(zoom float64) float64 {
	if zoom < minZoom {
		return minZoom
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// Stack returns the currently displayed stack, which may be nil.
func (v *Viewer) Stack() *study.Stack {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stack
}

// ScrollStack moves through the stack by delta frames.
func (v *Viewer) ScrollStack(delta int) {
	v.mu.Lock()
	stack := v.stack
	moved := stack.Scroll(delta)
	v.mu.Unlock()
	if moved {
		v.showCurrentFrame(false)
	}
}

// ActivateTool switches the exclusive tool on the primary button. Always-on
// bindings survive every switch.
func (v *Viewer) ActivateTool(name string) error {
	if err := v.group.ActivateExclusive(name); err != nil {
		return err
	}
	v.logger.Debug("tool activated", "tool", name)
	if v.onToolChanged != nil {
		v.onToolChanged(name)
	}
	return nil
}

// ActiveTool returns the active exclusive tool name.
func (v *Viewer) ActiveTool() string {
	return v.group.ActiveExclusive()
}

// ToolGroup exposes the viewer's tool group handle.
func (v *Viewer) ToolGroup() *ToolGroup {
	return v.group
}

// SetDetections replaces the overlay's detection records.
func (v *Viewer) SetDetections(records []detect.Record) {
	v.mu.Lock()
	v.feed.Records = records
	v.mu.Unlock()
	v.refreshOverlay()
}

// SetOverlayVisible toggles the detection overlay. When off, nothing is
// rendered regardless of how many detections exist.
func (v *Viewer) SetOverlayVisible(visible bool) {
	v.mu.Lock()
	v.feed.Visible = visible
	v.mu.Unlock()
	v.refreshOverlay()
}

// OverlayVisible reports the overlay toggle.
func (v *Viewer) OverlayVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.feed.Visible
}

// OverlayLayout returns the currently displayed overlay layout.
func (v *Viewer) OverlayLayout() OverlayLayout {
	return v.overlay.Layout()
}

// refreshOverlay recomputes overlay placement from the current detections,
// visibility, and viewport geometry.
func (v *Viewer) refreshOverlay() {
	v.mu.Lock()
	feed := v.feed
	v.mu.Unlock()

	size := v.Size()
	layout := v.style.Compute(feed.Records, feed.Visible, geometry.NewSize(float64(size.Width), float64(size.Height)))
	v.overlay.SetLayout(layout)
}

// SetOrientation selects the displayed plane. Display-only: tool bindings
// are untouched.
func (v *Viewer) SetOrientation(o study.Orientation) {
	v.mu.Lock()
	v.orientation = o
	v.mu.Unlock()
	v.surface.Render()
}

// Orientation returns the current display plane.
func (v *Viewer) Orientation() study.Orientation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.orientation
}

// ApplyPreset applies a named window preset to the surface.
func (v *Viewer) ApplyPreset(name string) bool {
	w, ok := windowing.Presets[name]
	if !ok {
		return false
	}
	v.surface.SetWindow(w)
	v.surface.Render()
	return true
}

// AutoWindow derives a window from the current frame's statistics.
func (v *Viewer) AutoWindow() {
	v.mu.Lock()
	stack := v.stack
	v.mu.Unlock()
	v.surface.SetWindow(windowing.Auto(stack.Current()))
	v.surface.Render()
}

// channelFor maps a mouse button to its pointer-input channel.
func channelFor(button desktop.MouseButton) (Binding, bool) {
	switch button {
	case desktop.MouseButtonPrimary:
		return BindPrimary, true
	case desktop.MouseButtonSecondary:
		return BindSecondary, true
	case desktop.MouseButtonTertiary:
		return BindTertiary, true
	}
	return 0, false
}

// MouseDown begins a button gesture on whichever channel the button maps to.
func (v *Viewer) MouseDown(ev *desktop.MouseEvent) {
	if _, ok := channelFor(ev.Button); !ok {
		return
	}
	v.mu.Lock()
	v.dragButton = ev.Button
	v.dragStart = ev.Position
	v.dragLast = ev.Position
	v.dragged = false
	v.mu.Unlock()
}

// MouseUp finishes a gesture. Measurement tools emit their annotation here.
func (v *Viewer) MouseUp(ev *desktop.MouseEvent) {
	v.mu.Lock()
	button := v.dragButton
	start := v.dragStart
	dragged := v.dragged
	v.dragButton = 0
	v.mu.Unlock()

	channel, ok := channelFor(button)
	if !ok || !dragged {
		return
	}
	tool := v.group.BoundTo(channel)
	if channel == BindPrimary && isMeasurementTool(tool) {
		v.emitAnnotation(tool, start, ev.Position)
	}
}

// isMeasurementTool reports whether the exclusive tool produces annotation
// artifacts on completion.
func isMeasurementTool(name string) bool {
	switch name {
	case ToolLength, ToolRectROI, ToolEllipseROI, ToolAngle, ToolArrow:
		return true
	}
	return false
}

// emitAnnotation converts a completed gesture into an annotation carrying
// image-space points. Derived geometry is the reporting side's concern.
func (v *Viewer) emitAnnotation(tool string, start, end fyne.Position) {
	if v.onAnnotation == nil {
		return
	}
	sx, sy := v.screenToImage(start)
	ex, ey := v.screenToImage(end)
	v.onAnnotation(app.Annotation{
		Tool:     tool,
		Viewport: v.surface.ViewportID(),
		Points: []geometry.Point2D{
			geometry.NewPoint2D(sx, sy),
			geometry.NewPoint2D(ex, ey),
		},
	})
}

// screenToImage converts a widget position to image coordinates through the
// current view transform.
func (v *Viewer) screenToImage(pos fyne.Position) (float64, float64) {
	zoom, panX, panY := v.surface.View()
	return float64(pos.X)/zoom - panX, float64(pos.Y)/zoom - panY
}

// MouseIn implements desktop.Hoverable.
func (v *Viewer) MouseIn(*desktop.MouseEvent) {}

// MouseOut cancels any in-flight gesture.
func (v *Viewer) MouseOut() {
	v.mu.Lock()
	v.dragButton = 0
	v.mu.Unlock()
}

// MouseMoved drives the tool bound to the channel the gesture started on.
func (v *Viewer) MouseMoved(ev *desktop.MouseEvent) {
	v.mu.Lock()
	button := v.dragButton
	last := v.dragLast
	v.dragLast = ev.Position
	if button != 0 {
		v.dragged = true
	}
	v.mu.Unlock()

	channel, ok := channelFor(button)
	if !ok {
		return
	}
	dx := float64(ev.Position.X - last.X)
	dy := float64(ev.Position.Y - last.Y)

	switch v.group.BoundTo(channel) {
	case ToolPan:
		v.panBy(dx, dy)
	case ToolZoom:
		v.zoomBy(dy)
	case ToolWindowLevel:
		v.surface.SetWindow(v.surface.Window().Adjust(dx, dy))
		v.surface.Render()
	}
	// Measurement tools draw nothing until the gesture completes; their
	// artifact is emitted on MouseUp.
}

// panBy shifts the view by a screen-space delta.
func (v *Viewer) panBy(dx, dy float64) {
	zoom, panX, panY := v.surface.View()
	v.surface.SetView(zoom, panX+dx/zoom, panY+dy/zoom)
	v.surface.Render()
}

// ZoomIn steps the zoom in around the current view.
func (v *Viewer) ZoomIn() { v.stepZoom(zoomStep) }

// ZoomOut steps the zoom out around the current view.
func (v *Viewer) ZoomOut() { v.stepZoom(1 / zoomStep) }

func (v *Viewer) stepZoom(factor float64) {
	zoom, panX, panY := v.surface.View()
	v.surface.SetView(clampZoom(zoom*factor), panX, panY)
	v.surface.Render()
}

// zoomBy adjusts zoom from vertical drag motion.
func (v *Viewer) zoomBy(dy float64) {
	zoom, panX, panY := v.surface.View()
	factor := 1 + dy/200
	if factor <= 0 {
		return
	}
	v.surface.SetView(clampZoom(zoom*factor), panX, panY)
	v.surface.Render()
}

// Scrolled drives the wheel channel: stack scrolling by default. Wheel-up
// goes to the previous frame, wheel-down to the next.
func (v *Viewer) Scrolled(ev *fyne.ScrollEvent) {
	if v.group.BoundTo(BindWheel) != ToolStackScroll {
		return
	}
	if ev.Scrolled.DY > 0 {
		v.ScrollStack(-1)
	} else if ev.Scrolled.DY < 0 {
		v.ScrollStack(1)
	}
}
