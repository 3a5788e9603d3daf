package viewer

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/detect"
	"dicom-viewer/internal/study"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
)

// gateSource resolves every ref to a small gray frame, optionally blocking
// until released.
type gateSource struct {
	mu   sync.Mutex
	gate chan struct{}
	fail map[study.ImageRef]error
}

func (s *gateSource) Resolve(ref study.ImageRef) (image.Image, error) {
	s.mu.Lock()
	gate := s.gate
	err := s.fail[ref]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 16, 16)), nil
}

func newTestViewer(t *testing.T, source study.ImageSource) *Viewer {
	t.Helper()
	test.NewApp()
	v, err := New(source, app.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(v.Close)
	v.Resize(fyne.NewSize(800, 600))
	return v
}

func waitLoaded(t *testing.T, ch <-chan []study.ImageRef) []study.ImageRef {
	t.Helper()
	select {
	case refs := <-ch:
		return refs
	case <-time.After(2 * time.Second):
		t.Fatal("stack load did not complete")
		return nil
	}
}

// Full walkthrough: surface, tool activation, stack load, overlay.
func TestViewerScenario(t *testing.T) {
	v := newTestViewer(t, &gateSource{})

	if !v.Surface().Alive() {
		t.Fatal("surface should be alive after creation")
	}
	if v.ActiveTool() != ToolWindowLevel {
		t.Fatalf("default tool = %q", v.ActiveTool())
	}

	if err := v.ActivateTool(ToolRectROI); err != nil {
		t.Fatalf("ActivateTool: %v", err)
	}
	if v.ActiveTool() != ToolRectROI {
		t.Error("rect-roi should be active")
	}

	loaded := make(chan []study.ImageRef, 1)
	v.OnStackLoaded(func(refs []study.ImageRef) { loaded <- refs })
	v.LoadStack([]study.ImageRef{"s1.png", "s2.png", "s3.png"})

	refs := waitLoaded(t, loaded)
	if len(refs) != 3 || v.Stack().Len() != 3 {
		t.Fatalf("expected 3 loaded frames, got refs=%v len=%d", refs, v.Stack().Len())
	}

	v.SetDetections([]detect.Record{
		{X: 10, Y: 10, Width: 20, Height: 15, Confidence: 0.92, Label: "lesion"},
	})
	if len(v.OverlayLayout().Boxes) != 0 {
		t.Error("overlay must stay empty while hidden")
	}

	v.SetOverlayVisible(true)
	layout := v.OverlayLayout()
	if len(layout.Boxes) != 1 {
		t.Fatalf("expected one overlay box, got %d", len(layout.Boxes))
	}
	box := layout.Boxes[0]
	if box.Rect.X != 80 || box.Rect.Y != 60 || box.Rect.Width != 160 || box.Rect.Height != 90 {
		t.Errorf("box rect = %+v", box.Rect)
	}
	if box.Label != "lesion (92%)" {
		t.Errorf("box label = %q", box.Label)
	}

	// Pointer bindings survived the whole sequence.
	if v.ToolGroup().BoundTo(BindTertiary) != ToolPan ||
		v.ToolGroup().BoundTo(BindWheel) != ToolStackScroll {
		t.Error("always-on bindings lost")
	}
}

func TestViewerCloseDuringLoad(t *testing.T) {
	src := &gateSource{gate: make(chan struct{})}
	v := newTestViewer(t, src)

	v.OnStackLoaded(func([]study.ImageRef) { t.Error("loaded callback after teardown") })
	v.OnLoadError(func(err error) { t.Errorf("error callback after teardown: %v", err) })

	v.LoadStack([]study.ImageRef{"slow.png"})
	v.Close()
	close(src.gate)

	deadline := time.Now().Add(2 * time.Second)
	for v.Loader().Pending() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if v.Loader().Pending() {
		t.Fatal("load never drained")
	}

	// Close is idempotent.
	v.Close()
}

func TestViewerLoadFailureKeepsPreviousStack(t *testing.T) {
	src := &gateSource{fail: map[study.ImageRef]error{"bad.png": errors.New("unreachable")}}
	v := newTestViewer(t, src)

	loaded := make(chan []study.ImageRef, 1)
	v.OnStackLoaded(func(refs []study.ImageRef) { loaded <- refs })
	v.LoadStack([]study.ImageRef{"ok.png"})
	waitLoaded(t, loaded)

	errs := make(chan error, 1)
	v.OnLoadError(func(err error) { errs <- err })
	v.LoadStack([]study.ImageRef{"bad.png"})

	select {
	case err := <-errs:
		var sle *study.StackLoadError
		if !errors.As(err, &sle) || sle.Ref != "bad.png" {
			t.Errorf("unexpected load error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("load error not reported")
	}

	if v.Stack() == nil || v.Stack().Len() != 1 || v.Stack().Refs[0] != "ok.png" {
		t.Error("previous stack must remain after a failed load")
	}
}

func TestViewerEmptyLoadIsNoOp(t *testing.T) {
	v := newTestViewer(t, &gateSource{})

	loaded := make(chan []study.ImageRef, 1)
	v.OnStackLoaded(func(refs []study.ImageRef) { loaded <- refs })
	v.LoadStack([]study.ImageRef{"a.png"})
	waitLoaded(t, loaded)

	v.LoadStack(nil)
	if v.Loader().Pending() {
		t.Error("empty load should not start")
	}
	if v.Stack().Len() != 1 {
		t.Error("empty load must not alter the loaded stack")
	}
}

func TestWheelScrollsStack(t *testing.T) {
	v := newTestViewer(t, &gateSource{})

	loaded := make(chan []study.ImageRef, 1)
	v.OnStackLoaded(func(refs []study.ImageRef) { loaded <- refs })
	v.LoadStack([]study.ImageRef{"a.png", "b.png", "c.png"})
	waitLoaded(t, loaded)

	v.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: -1}})
	if v.Stack().Index() != 1 {
		t.Errorf("wheel-down should advance, index = %d", v.Stack().Index())
	}
	v.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 1}})
	if v.Stack().Index() != 0 {
		t.Errorf("wheel-up should go back, index = %d", v.Stack().Index())
	}
}

func mouseEvent(x, y float32, button desktop.MouseButton) *desktop.MouseEvent {
	ev := &desktop.MouseEvent{Button: button}
	ev.Position = fyne.NewPos(x, y)
	return ev
}

func TestMeasurementGestureEmitsAnnotation(t *testing.T) {
	v := newTestViewer(t, &gateSource{})
	if err := v.ActivateTool(ToolLength); err != nil {
		t.Fatal(err)
	}

	var got []app.Annotation
	v.OnAnnotation(func(a app.Annotation) { got = append(got, a) })

	v.MouseDown(mouseEvent(10, 10, desktop.MouseButtonPrimary))
	v.MouseMoved(mouseEvent(50, 40, desktop.MouseButtonPrimary))
	v.MouseUp(mouseEvent(50, 40, desktop.MouseButtonPrimary))

	if len(got) != 1 {
		t.Fatalf("expected one annotation, got %d", len(got))
	}
	a := got[0]
	if a.Tool != ToolLength || a.Viewport != MainViewport || len(a.Points) != 2 {
		t.Errorf("annotation = %+v", a)
	}

	// A click without movement is not a measurement.
	v.MouseDown(mouseEvent(10, 10, desktop.MouseButtonPrimary))
	v.MouseUp(mouseEvent(10, 10, desktop.MouseButtonPrimary))
	if len(got) != 1 {
		t.Error("click without drag must not emit an annotation")
	}
}

func TestWindowLevelDrag(t *testing.T) {
	v := newTestViewer(t, &gateSource{})
	before := v.Surface().Window()

	v.MouseDown(mouseEvent(100, 100, desktop.MouseButtonPrimary))
	v.MouseMoved(mouseEvent(120, 90, desktop.MouseButtonPrimary))
	v.MouseUp(mouseEvent(120, 90, desktop.MouseButtonPrimary))

	after := v.Surface().Window()
	if after == before {
		t.Error("window/level drag should adjust the window")
	}
	if after.Width != before.Width+20 || after.Center != before.Center-10 {
		t.Errorf("window = %+v, before = %+v", after, before)
	}
}

func TestPanDragMovesView(t *testing.T) {
	v := newTestViewer(t, &gateSource{})
	v.Surface().SetView(1, 0, 0)

	v.MouseDown(mouseEvent(100, 100, desktop.MouseButtonTertiary))
	v.MouseMoved(mouseEvent(110, 95, desktop.MouseButtonTertiary))
	v.MouseUp(mouseEvent(110, 95, desktop.MouseButtonTertiary))

	_, panX, panY := v.Surface().View()
	if panX != 10 || panY != -5 {
		t.Errorf("pan = %v, %v", panX, panY)
	}
}

func TestOrientationDoesNotTouchBindings(t *testing.T) {
	v := newTestViewer(t, &gateSource{})
	if err := v.ActivateTool(ToolAngle); err != nil {
		t.Fatal(err)
	}

	v.SetOrientation(study.Sagittal)
	if v.Orientation() != study.Sagittal {
		t.Error("orientation not stored")
	}
	if v.ActiveTool() != ToolAngle || v.ToolGroup().BoundTo(BindSecondary) != ToolZoom {
		t.Error("orientation change must not affect tool state")
	}
}

func TestApplyPreset(t *testing.T) {
	v := newTestViewer(t, &gateSource{})

	if !v.ApplyPreset("bone") {
		t.Fatal("bone preset should exist")
	}
	if v.Surface().Window().IsIdentity() {
		t.Error("preset not applied")
	}
	if v.ApplyPreset("no-such-preset") {
		t.Error("unknown preset should report false")
	}
}
