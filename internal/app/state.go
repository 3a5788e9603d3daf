// Package app provides application state, events, and configuration.
package app

import (
	"sync"

	"dicom-viewer/internal/detect"
	"dicom-viewer/internal/study"
	"dicom-viewer/pkg/geometry"
)

// EventType identifies different application events.
type EventType int

const (
	EventStackLoaded EventType = iota
	EventStackLoadFailed
	EventDetectionsChanged
	EventOverlayToggled
	EventOrientationChanged
	EventAnnotationCreated
	EventToolChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Annotation is the artifact an interactive measurement tool produces:
// the tool that made it and the raw points in image coordinates. Derived
// measurements (lengths, areas, angles) are the reporting collaborator's
// concern.
type Annotation struct {
	Tool     string             `json:"tool"`
	Viewport string             `json:"viewport"`
	Points   []geometry.Point2D `json:"points"`
}

// State holds the viewer's application state: the loaded stack, the
// detection feed, display settings, and collected annotations.
type State struct {
	mu sync.RWMutex

	Stack       *study.Stack
	Feed        detect.Feed
	Orientation study.Orientation
	ActiveTool  string
	Annotations []Annotation

	listeners map[EventType][]EventListener
}

// NewState creates a new application state.
func NewState() *State {
	return &State{
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetStack stores a freshly loaded stack and announces it with its refs.
func (s *State) SetStack(stack *study.Stack) {
	s.mu.Lock()
	s.Stack = stack
	s.mu.Unlock()
	s.Emit(EventStackLoaded, stack.Refs)
}

// SetLoadFailed announces a failed stack load. The previous stack stays in
// place so the display never goes blank.
func (s *State) SetLoadFailed(err error) {
	s.Emit(EventStackLoadFailed, err)
}

// SetFeed replaces the detection feed.
func (s *State) SetFeed(feed detect.Feed) {
	s.mu.Lock()
	s.Feed = feed
	s.mu.Unlock()
	s.Emit(EventDetectionsChanged, feed)
}

// SetOverlayVisible toggles the detection overlay.
func (s *State) SetOverlayVisible(visible bool) {
	s.mu.Lock()
	s.Feed.Visible = visible
	s.mu.Unlock()
	s.Emit(EventOverlayToggled, visible)
}

// OverlayVisible returns the overlay toggle.
func (s *State) OverlayVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Feed.Visible
}

// SetOrientation changes the displayed plane. Display-only: tool bindings
// are unaffected.
func (s *State) SetOrientation(o study.Orientation) {
	s.mu.Lock()
	s.Orientation = o
	s.mu.Unlock()
	s.Emit(EventOrientationChanged, o)
}

// SetActiveTool records the currently active exclusive tool.
func (s *State) SetActiveTool(name string) {
	s.mu.Lock()
	s.ActiveTool = name
	s.mu.Unlock()
	s.Emit(EventToolChanged, name)
}

// AddAnnotation appends a tool-produced annotation and announces it for the
// persistence collaborator.
func (s *State) AddAnnotation(a Annotation) {
	s.mu.Lock()
	s.Annotations = append(s.Annotations, a)
	s.mu.Unlock()
	s.Emit(EventAnnotationCreated, a)
}
