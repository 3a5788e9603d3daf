package windowing

import (
	"image"
	"image/color"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		in   float64
		want uint8
	}{
		{"identity low", Identity, 0, 0},
		{"identity high", Identity, 255, 255},
		{"identity mid", Identity, 127.5, 128},
		{"below floor clamps", Window{Center: 128, Width: 50}, 10, 0},
		{"above ceiling clamps", Window{Center: 128, Width: 50}, 250, 255},
		{"center maps to mid", Window{Center: 128, Width: 50}, 128, 128},
		{"degenerate width", Window{Center: 100, Width: 0}, 150, 255},
	}

	for _, tt := range tests {
		if got := tt.w.Apply(tt.in); got != tt.want {
			t.Errorf("%s: Apply(%v) = %d, want %d", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestAdjust(t *testing.T) {
	w := Window{Center: 100, Width: 100}

	w = w.Adjust(20, -10)
	if w.Width != 120 || w.Center != 90 {
		t.Errorf("Adjust drag: got %+v", w)
	}

	// Width never collapses below 1, center stays in the luminance range.
	w = w.Adjust(-500, -500)
	if w.Width != 1 || w.Center != 0 {
		t.Errorf("Adjust clamp low: got %+v", w)
	}
	w = w.Adjust(0, 999)
	if w.Center != 255 {
		t.Errorf("Adjust clamp high: got %+v", w)
	}
}

func TestPresets(t *testing.T) {
	if _, ok := Presets["default"]; !ok {
		t.Fatal("default preset missing")
	}
	if !Presets["default"].IsIdentity() {
		t.Error("default preset should be the identity window")
	}
	for name, w := range Presets {
		if w.Width < 1 {
			t.Errorf("preset %q has degenerate width %v", name, w.Width)
		}
	}
}

func TestAutoUniformImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 80
	}

	w := Auto(img)
	if w.Center != 80 {
		t.Errorf("expected center 80 for uniform image, got %v", w.Center)
	}
	if w.Width != 1 {
		t.Errorf("zero-variance image should yield minimum width, got %v", w.Width)
	}
}

func TestAutoSplitImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if y < 16 {
				img.SetGray(x, y, color.Gray{Y: 50})
			} else {
				img.SetGray(x, y, color.Gray{Y: 150})
			}
		}
	}

	w := Auto(img)
	if w.Center < 95 || w.Center > 105 {
		t.Errorf("expected center near 100, got %v", w.Center)
	}
	if w.Width <= 1 || w.Width > 255 {
		t.Errorf("expected a bounded width, got %v", w.Width)
	}
}

func TestAutoDegenerate(t *testing.T) {
	if w := Auto(nil); !w.IsIdentity() {
		t.Error("nil image should yield the identity window")
	}
	if w := Auto(image.NewGray(image.Rect(0, 0, 0, 0))); !w.IsIdentity() {
		t.Error("empty image should yield the identity window")
	}
}
