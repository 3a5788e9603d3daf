package viewer

import "errors"

// Surface lifecycle errors. Creation failures are recoverable by retrying
// once the display element exists; everything else is a programming error
// that should fail loudly during development.
var (
	// ErrNilHost is returned when a surface is created against a display
	// element that is not attached yet.
	ErrNilHost = errors.New("surface: display element is nil")

	// ErrViewportBusy is returned when a viewport id already has a live
	// surface. The old surface must be destroyed first.
	ErrViewportBusy = errors.New("surface: viewport already has an active surface")

	// ErrToolNotRegistered is returned when a tool is added to a group
	// without having been registered first.
	ErrToolNotRegistered = errors.New("tools: tool not registered")

	// ErrUnknownTool is returned when an activation names a tool outside
	// the group's exclusive set.
	ErrUnknownTool = errors.New("tools: unknown exclusive tool")

	// ErrNotInitialized is returned when a tool group is used before its
	// initialization protocol completed, or after it was destroyed.
	ErrNotInitialized = errors.New("tools: tool group not initialized")
)
