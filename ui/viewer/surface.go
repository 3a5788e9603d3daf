package viewer

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"dicom-viewer/internal/windowing"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// SurfaceState tracks the surface lifecycle. Destroyed is terminal; a new
// surface must be created for reuse.
type SurfaceState int

const (
	SurfaceUninitialized SurfaceState = iota
	SurfaceActive
	SurfaceDestroyed
)

// Surface owns one rendering engine instance bound to a display container:
// a flat 2-D stack viewport. It renders the current stack frame through the
// active window/level setting and view transform.
type Surface struct {
	engineID   string
	viewportID string
	manager    *SurfaceManager
	host       *fyne.Container
	raster     *fynecanvas.Raster

	mu     sync.Mutex
	state  SurfaceState
	frame  image.Image
	window windowing.Window
	zoom   float64
	panX   float64
	panY   float64
}

// EngineID returns the identity of the rendering engine instance.
func (s *Surface) EngineID() string { return s.engineID }

// ViewportID returns the logical viewport id the surface is bound to.
func (s *Surface) ViewportID() string { return s.viewportID }

// State returns the current lifecycle state.
func (s *Surface) State() SurfaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Alive reports whether the surface can still be rendered to.
func (s *Surface) Alive() bool {
	return s.State() == SurfaceActive
}

// SetFrame replaces the displayed image. A nil frame blanks the surface.
func (s *Surface) SetFrame(frame image.Image) {
	s.mu.Lock()
	s.frame = frame
	s.mu.Unlock()
}

// SetWindow sets the window/level applied during rendering.
func (s *Surface) SetWindow(w windowing.Window) {
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
}

// Window returns the current window/level.
func (s *Surface) Window() windowing.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// SetView sets the zoom factor and pan offset (in image pixels).
func (s *Surface) SetView(zoom, panX, panY float64) {
	s.mu.Lock()
	if zoom > 0 {
		s.zoom = zoom
	}
	s.panX, s.panY = panX, panY
	s.mu.Unlock()
}

// View returns the current zoom and pan.
func (s *Surface) View() (zoom, panX, panY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom, s.panX, s.panY
}

// Size returns the surface's current on-screen size.
func (s *Surface) Size() fyne.Size {
	if s.raster == nil {
		return fyne.Size{}
	}
	return s.raster.Size()
}

// Render schedules a redraw. Safe on a destroyed surface (no-op).
func (s *Surface) Render() {
	s.mu.Lock()
	raster := s.raster
	alive := s.state == SurfaceActive
	s.mu.Unlock()
	if alive && raster != nil {
		raster.Refresh()
	}
}

// draw is the raster drawing function: the frame mapped through the view
// transform and the window LUT over a black background.
func (s *Surface) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}

	s.mu.Lock()
	frame := s.frame
	win := s.window
	zoom, panX, panY := s.zoom, s.panX, s.panY
	s.mu.Unlock()

	if frame == nil || w == 0 || h == 0 {
		return out
	}
	if zoom <= 0 {
		zoom = 1
	}

	bounds := frame.Bounds()
	identity := win.IsIdentity()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcX := int(float64(x)/zoom-panX) + bounds.Min.X
			srcY := int(float64(y)/zoom-panY) + bounds.Min.Y
			if srcX < bounds.Min.X || srcX >= bounds.Max.X ||
				srcY < bounds.Min.Y || srcY >= bounds.Max.Y {
				continue
			}

			g := color.GrayModel.Convert(frame.At(srcX, srcY)).(color.Gray).Y
			v := g
			if !identity {
				v = win.Apply(float64(g))
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
		}
	}
	return out
}

// SurfaceManager creates and destroys rendering surfaces. It holds at most
// one live surface per logical viewport id, so independent viewer instances
// can coexist without identifier collisions.
type SurfaceManager struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	logger   *log.Logger
}

// NewSurfaceManager creates an empty manager. A nil logger disables
// lifecycle logging.
func NewSurfaceManager(logger *log.Logger) *SurfaceManager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SurfaceManager{
		surfaces: make(map[string]*Surface),
		logger:   logger,
	}
}

// Create allocates a rendering engine and viewport bound to host. It fails
// with ErrNilHost when the display element does not exist yet (the caller
// retries once it mounts), and with ErrViewportBusy when the viewport id
// still has a live surface.
func (m *SurfaceManager) Create(host *fyne.Container, viewportID string) (*Surface, error) {
	if host == nil {
		return nil, fmt.Errorf("create surface %q: %w", viewportID, ErrNilHost)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.surfaces[viewportID]; ok && existing.Alive() {
		return nil, fmt.Errorf("create surface %q: %w", viewportID, ErrViewportBusy)
	}

	s := &Surface{
		engineID:   uuid.NewString(),
		viewportID: viewportID,
		manager:    m,
		host:       host,
		zoom:       1,
		window:     windowing.Identity,
	}
	s.raster = fynecanvas.NewRaster(s.draw)
	s.raster.ScaleMode = fynecanvas.ImageScalePixels
	host.Add(s.raster)
	s.state = SurfaceActive
	m.surfaces[viewportID] = s

	m.logger.Debug("surface created", "viewport", viewportID, "engine", s.engineID)
	return s, nil
}

// Destroy releases the surface's rendering resources and frees its viewport
// id. Idempotent; safe to call multiple times and required before creating
// a replacement surface for the same viewport.
func (m *SurfaceManager) Destroy(s *Surface) {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.state == SurfaceDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = SurfaceDestroyed
	raster := s.raster
	s.raster = nil
	s.frame = nil
	s.mu.Unlock()

	if s.host != nil && raster != nil {
		s.host.Remove(raster)
	}

	m.mu.Lock()
	if m.surfaces[s.viewportID] == s {
		delete(m.surfaces, s.viewportID)
	}
	m.mu.Unlock()

	m.logger.Debug("surface destroyed", "viewport", s.viewportID, "engine", s.engineID)
}
