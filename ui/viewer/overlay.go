package viewer

import (
	"image/color"
	"sync"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/detect"
	"dicom-viewer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
)

// OverlayBox is one positioned detection box: screen-space rectangle, the
// display label, and the confidence-derived stroke color.
type OverlayBox struct {
	Rect   geometry.Rect
	Label  string
	Stroke color.Color
}

// OverlayLayout is the computed overlay: zero or more boxes. The zero value
// renders nothing.
type OverlayLayout struct {
	Boxes []OverlayBox
}

// OverlayStyle controls how detection boxes are colored and stroked. Box
// color blends from Low to High with the record's confidence.
type OverlayStyle struct {
	Low         colorful.Color
	High        colorful.Color
	StrokeWidth float32
}

// DefaultOverlayStyle is amber for low confidence, red for high.
func DefaultOverlayStyle() OverlayStyle {
	low, _ := colorful.Hex("#ffb000")
	high, _ := colorful.Hex("#ff2020")
	return OverlayStyle{Low: low, High: high, StrokeWidth: 2}
}

// OverlayStyleFromConfig builds a style from the overlay configuration,
// falling back to the defaults for values that do not parse.
func OverlayStyleFromConfig(cfg app.OverlayConfig) OverlayStyle {
	st := DefaultOverlayStyle()
	if c, err := colorful.Hex(cfg.LowColor); err == nil {
		st.Low = c
	}
	if c, err := colorful.Hex(cfg.HighColor); err == nil {
		st.High = c
	}
	if cfg.StrokeWidth > 0 {
		st.StrokeWidth = cfg.StrokeWidth
	}
	return st
}

// Compute translates detection records into a positioned layout on a
// surface of the given size. When visible is false the layout is empty no
// matter how many records exist. Out-of-range percentages are converted
// as-is and clip visually; the feed is trusted.
func (st OverlayStyle) Compute(records []detect.Record, visible bool, surface geometry.Size) OverlayLayout {
	if !visible || len(records) == 0 {
		return OverlayLayout{}
	}

	layout := OverlayLayout{Boxes: make([]OverlayBox, 0, len(records))}
	for _, r := range records {
		layout.Boxes = append(layout.Boxes, OverlayBox{
			Rect:   r.Bounds().ToPixels(surface),
			Label:  r.DisplayLabel(),
			Stroke: st.stroke(r.Confidence),
		})
	}
	return layout
}

// ComputeOverlay computes an overlay layout with the default style.
func ComputeOverlay(records []detect.Record, visible bool, surface geometry.Size) OverlayLayout {
	return DefaultOverlayStyle().Compute(records, visible, surface)
}

// stroke blends the style's color ramp in Lab space by confidence.
func (st OverlayStyle) stroke(confidence float64) color.Color {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return st.Low.BlendLab(st.High, confidence).Clamped()
}

const overlayLabelSize = 12

// overlayWidget draws an OverlayLayout above the rendering surface. It
// deliberately implements none of the pointer interfaces, so every event
// falls through to the viewer widget and the tool bindings beneath stay
// fully functional.
type overlayWidget struct {
	widget.BaseWidget

	mu          sync.Mutex
	layout      OverlayLayout
	strokeWidth float32
}

func newOverlayWidget(strokeWidth float32) *overlayWidget {
	o := &overlayWidget{strokeWidth: strokeWidth}
	o.ExtendBaseWidget(o)
	return o
}

// SetLayout replaces the displayed layout and redraws.
func (o *overlayWidget) SetLayout(l OverlayLayout) {
	o.mu.Lock()
	o.layout = l
	o.mu.Unlock()
	o.Refresh()
}

// Layout returns the currently displayed layout.
func (o *overlayWidget) Layout() OverlayLayout {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.layout
}

func (o *overlayWidget) CreateRenderer() fyne.WidgetRenderer {
	return &overlayRenderer{overlay: o}
}

type overlayRenderer struct {
	overlay *overlayWidget
	objects []fyne.CanvasObject
}

func (r *overlayRenderer) Layout(fyne.Size) {}

func (r *overlayRenderer) MinSize() fyne.Size {
	return fyne.Size{}
}

// Refresh rebuilds the canvas objects from the current layout. Boxes are
// positioned in screen space already, so no layout pass is needed.
func (r *overlayRenderer) Refresh() {
	layout := r.overlay.Layout()
	strokeWidth := r.overlay.strokeWidth

	r.objects = r.objects[:0]
	for _, box := range layout.Boxes {
		rect := fynecanvas.NewRectangle(color.Transparent)
		rect.StrokeColor = box.Stroke
		rect.StrokeWidth = strokeWidth
		rect.Move(fyne.NewPos(float32(box.Rect.X), float32(box.Rect.Y)))
		rect.Resize(fyne.NewSize(float32(box.Rect.Width), float32(box.Rect.Height)))
		r.objects = append(r.objects, rect)

		label := fynecanvas.NewText(box.Label, box.Stroke)
		label.TextSize = overlayLabelSize
		label.TextStyle = fyne.TextStyle{Bold: true}
		labelY := float32(box.Rect.Y) - overlayLabelSize - 4
		if labelY < 0 {
			labelY = float32(box.Rect.Y + box.Rect.Height)
		}
		label.Move(fyne.NewPos(float32(box.Rect.X), labelY))
		r.objects = append(r.objects, label)
	}
}

func (r *overlayRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *overlayRenderer) Destroy() {}
