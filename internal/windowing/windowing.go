// Package windowing implements window/level display mapping: a center and
// width select the band of pixel intensities spread across the visible range.
// It operates on 8-bit luminance; mapping scanner units into that range is
// the upstream decoder's job.
package windowing

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

// Window is a window/level setting over 8-bit luminance.
type Window struct {
	Center float64
	Width  float64
}

// Identity is the neutral window that leaves pixel values unchanged.
var Identity = Window{Center: 127.5, Width: 255}

// Presets are the selectable window presets, named after their intended
// tissue contrast.
var Presets = map[string]Window{
	"default": Identity,
	"soft":    {Center: 110, Width: 160},
	"lung":    {Center: 60, Width: 120},
	"bone":    {Center: 170, Width: 100},
}

// IsIdentity reports whether applying the window is a no-op.
func (w Window) IsIdentity() bool {
	return w == Identity
}

// Apply maps a luminance value through the window. Values at or below the
// window floor map to 0, at or above the ceiling to 255.
func (w Window) Apply(v float64) uint8 {
	width := w.Width
	if width < 1 {
		width = 1
	}
	lower := w.Center - width/2
	out := (v - lower) / width * 255
	if out <= 0 {
		return 0
	}
	if out >= 255 {
		return 255
	}
	return uint8(out + 0.5)
}

// Adjust returns the window moved by a pointer drag: horizontal motion
// changes the width, vertical motion the center. This is the behavior of the
// default window/level tool.
func (w Window) Adjust(dx, dy float64) Window {
	next := Window{Center: w.Center + dy, Width: w.Width + dx}
	if next.Width < 1 {
		next.Width = 1
	}
	if next.Center < 0 {
		next.Center = 0
	}
	if next.Center > 255 {
		next.Center = 255
	}
	return next
}

// autoSampleStride bounds the number of pixels Auto inspects on large frames.
const autoSampleStride = 4

// Auto derives a window from the frame's luminance distribution: the center
// follows the mean, the width spans two standard deviations either side.
func Auto(img image.Image) Window {
	if img == nil {
		return Identity
	}
	b := img.Bounds()
	if b.Empty() {
		return Identity
	}

	var samples []float64
	for y := b.Min.Y; y < b.Max.Y; y += autoSampleStride {
		for x := b.Min.X; x < b.Max.X; x += autoSampleStride {
			samples = append(samples, float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y))
		}
	}
	if len(samples) < 2 {
		return Identity
	}

	mean, std := stat.MeanStdDev(samples, nil)
	width := 4 * std
	if width < 1 {
		width = 1
	}
	if width > 255 {
		width = 255
	}
	return Window{Center: mean, Width: width}
}
