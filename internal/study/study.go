// Package study models the image stacks the viewer displays: ordered
// sequences of opaque image references resolved through a pluggable source.
package study

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageRef is an opaque reference to a single image. The viewer core imposes
// no format on it; the configured ImageSource decides what it means.
type ImageRef string

// Stack is an ordered sequence of loaded images navigable as a single unit
// within one viewport.
type Stack struct {
	Refs   []ImageRef
	Frames []image.Image
	index  int
}

// Len returns the number of images in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Index returns the current image index.
func (s *Stack) Index() int {
	if s == nil {
		return 0
	}
	return s.index
}

// Current returns the image at the current index, or nil for an empty stack.
func (s *Stack) Current() image.Image {
	if s.Len() == 0 {
		return nil
	}
	return s.Frames[s.index]
}

// Scroll moves the current index by delta, clamped to the stack bounds.
// Returns true if the index changed.
func (s *Stack) Scroll(delta int) bool {
	if s.Len() == 0 {
		return false
	}
	next := s.index + delta
	if next < 0 {
		next = 0
	}
	if next > len(s.Frames)-1 {
		next = len(s.Frames) - 1
	}
	if next == s.index {
		return false
	}
	s.index = next
	return true
}

// Orientation selects the displayed anatomical plane. It is a display-only
// setting: changing it never touches tool bindings.
type Orientation int

const (
	Axial Orientation = iota
	Sagittal
	Coronal
)

func (o Orientation) String() string {
	switch o {
	case Axial:
		return "axial"
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	default:
		return "unknown"
	}
}

// ParseOrientation converts a string to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(s) {
	case "axial":
		return Axial, nil
	case "sagittal":
		return Sagittal, nil
	case "coronal":
		return Coronal, nil
	}
	return Axial, fmt.Errorf("unknown orientation %q", s)
}

// Orientations lists all selectable orientations in display order.
func Orientations() []Orientation {
	return []Orientation{Axial, Sagittal, Coronal}
}

// imageExts are the file extensions ListDir accepts as stack frames.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// ListDir returns the image references found in a study directory, sorted by
// name so the stack order is stable across runs.
func ListDir(dir string) ([]ImageRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var refs []ImageRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			refs = append(refs, ImageRef(e.Name()))
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs, nil
}
