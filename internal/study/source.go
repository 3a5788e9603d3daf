package study

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// ImageSource resolves opaque image references into decoded images.
// Implementations are expected to be safe for use from a single loader
// goroutine at a time.
type ImageSource interface {
	Resolve(ref ImageRef) (image.Image, error)
}

// DirSource resolves references as image files inside a study directory.
// Frames larger than MaxEdge pixels on their longest side are downscaled so
// a single oversized export cannot exhaust texture memory.
type DirSource struct {
	Dir     string
	MaxEdge int
}

// NewDirSource creates a DirSource for the given directory. maxEdge <= 0
// disables downscaling.
func NewDirSource(dir string, maxEdge int) *DirSource {
	return &DirSource{Dir: dir, MaxEdge: maxEdge}
}

// Resolve decodes the referenced file, honoring EXIF orientation.
func (s *DirSource) Resolve(ref ImageRef) (image.Image, error) {
	path := filepath.Join(s.Dir, string(ref))
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return downscale(img, s.MaxEdge), nil
}

// downscale shrinks img so its longest edge is at most maxEdge, preserving
// aspect ratio. Images already within bounds are returned unchanged.
func downscale(img image.Image, maxEdge int) image.Image {
	if maxEdge <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxEdge
		nh = h * maxEdge / w
	} else {
		nh = maxEdge
		nw = w * maxEdge / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
