package study

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestStackScroll(t *testing.T) {
	frames := make([]image.Image, 3)
	for i := range frames {
		frames[i] = image.NewGray(image.Rect(0, 0, 1, 1))
	}
	s := &Stack{Refs: []ImageRef{"a", "b", "c"}, Frames: frames}

	tests := []struct {
		delta     int
		wantIndex int
		wantMoved bool
	}{
		{1, 1, true},
		{1, 2, true},
		{1, 2, false}, // clamped at end
		{-5, 0, true}, // clamped at start
		{-1, 0, false},
	}

	for i, tt := range tests {
		moved := s.Scroll(tt.delta)
		if moved != tt.wantMoved || s.Index() != tt.wantIndex {
			t.Errorf("step %d: Scroll(%d) = %v index=%d, want %v index=%d",
				i, tt.delta, moved, s.Index(), tt.wantMoved, tt.wantIndex)
		}
	}
}

func TestEmptyStack(t *testing.T) {
	var s *Stack
	if s.Len() != 0 || s.Current() != nil {
		t.Error("nil stack should be empty")
	}

	s = &Stack{}
	if s.Scroll(1) {
		t.Error("scrolling an empty stack should not move")
	}
	if s.Current() != nil {
		t.Error("empty stack has no current frame")
	}
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		in      string
		want    Orientation
		wantErr bool
	}{
		{"axial", Axial, false},
		{"Sagittal", Sagittal, false},
		{"CORONAL", Coronal, false},
		{"oblique", Axial, true},
		{"", Axial, true},
	}

	for _, tt := range tests {
		got, err := ParseOrientation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrientation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseOrientation(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrientationString(t *testing.T) {
	for _, o := range Orientations() {
		round, err := ParseOrientation(o.String())
		if err != nil || round != o {
			t.Errorf("orientation %v does not round-trip: %v, %v", o, round, err)
		}
	}
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002.png", "001.png", "notes.txt", "010.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	refs, err := ListDir(dir)
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	want := []ImageRef{"001.png", "002.png", "010.jpg"}
	if len(refs) != len(want) {
		t.Fatalf("expected %d refs, got %v", len(want), refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
}

func TestDownscale(t *testing.T) {
	big := image.NewGray(image.Rect(0, 0, 400, 100))

	small := downscale(big, 200)
	if b := small.Bounds(); b.Dx() != 200 || b.Dy() != 50 {
		t.Errorf("expected 200x50, got %dx%d", b.Dx(), b.Dy())
	}

	if downscale(big, 0) != big {
		t.Error("maxEdge 0 should disable downscaling")
	}
	if downscale(big, 500) != big {
		t.Error("images within bounds should be returned unchanged")
	}
}
