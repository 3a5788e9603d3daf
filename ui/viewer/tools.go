// Package viewer implements the diagnostic viewer core: the rendering
// surface lifecycle, the tool coordination engine, and the detection
// overlay.
package viewer

import "fmt"

// Binding identifies a pointer-input channel on the viewport.
type Binding int

const (
	BindPrimary   Binding = iota // primary button
	BindSecondary                // secondary button
	BindTertiary                 // auxiliary (middle) button
	BindWheel                    // continuous wheel
)

func (b Binding) String() string {
	switch b {
	case BindPrimary:
		return "primary"
	case BindSecondary:
		return "secondary"
	case BindTertiary:
		return "tertiary"
	case BindWheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// ToolClass separates exclusive tools (one active at a time, on the primary
// button) from always-on tools that keep their fixed channel regardless of
// the exclusive selection.
type ToolClass int

const (
	ClassExclusive ToolClass = iota
	ClassAlwaysOn
)

// Known tool names.
const (
	ToolWindowLevel = "window-level"
	ToolLength      = "length"
	ToolRectROI     = "rect-roi"
	ToolEllipseROI  = "ellipse-roi"
	ToolAngle       = "angle"
	ToolArrow       = "arrow"

	ToolPan         = "pan"
	ToolZoom        = "zoom"
	ToolStackScroll = "stack-scroll"
)

// ToolDescriptor describes one interaction tool. For always-on tools the
// Binding is the fixed channel; exclusive tools always bind to the primary
// button when active and the field is ignored.
type ToolDescriptor struct {
	Name    string
	Class   ToolClass
	Binding Binding
}

// ToolRegistry is the immutable set of known tools. Build it once before
// creating tool groups.
type ToolRegistry struct {
	tools map[string]ToolDescriptor
	order []string
}

// NewToolRegistry registers the given tools. Duplicate names are rejected.
func NewToolRegistry(descs []ToolDescriptor) (*ToolRegistry, error) {
	r := &ToolRegistry{tools: make(map[string]ToolDescriptor)}
	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("register tool: empty name")
		}
		if _, dup := r.tools[d.Name]; dup {
			return nil, fmt.Errorf("register tool %q: duplicate name", d.Name)
		}
		r.tools[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// DefaultRegistry returns the standard viewer tool set: six exclusive tools
// plus pan on the auxiliary button, zoom on the secondary button, and
// stack-scroll on the wheel.
func DefaultRegistry() *ToolRegistry {
	r, err := NewToolRegistry([]ToolDescriptor{
		{Name: ToolWindowLevel, Class: ClassExclusive},
		{Name: ToolLength, Class: ClassExclusive},
		{Name: ToolRectROI, Class: ClassExclusive},
		{Name: ToolEllipseROI, Class: ClassExclusive},
		{Name: ToolAngle, Class: ClassExclusive},
		{Name: ToolArrow, Class: ClassExclusive},
		{Name: ToolPan, Class: ClassAlwaysOn, Binding: BindTertiary},
		{Name: ToolZoom, Class: ClassAlwaysOn, Binding: BindSecondary},
		{Name: ToolStackScroll, Class: ClassAlwaysOn, Binding: BindWheel},
	})
	if err != nil {
		panic(err) // static tool table
	}
	return r
}

// Descriptor looks up a registered tool.
func (r *ToolRegistry) Descriptor(name string) (ToolDescriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Names returns all registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ExclusiveNames returns the registered exclusive tools in registration
// order.
func (r *ToolRegistry) ExclusiveNames() []string {
	var out []string
	for _, name := range r.order {
		if r.tools[name].Class == ClassExclusive {
			out = append(out, name)
		}
	}
	return out
}

// ToolGroup binds a registry's tools to the pointer channels of one
// viewport. At most one exclusive tool is active at a time; always-on tools
// never lose their channel.
type ToolGroup struct {
	registry   *ToolRegistry
	viewportID string
	added      map[string]bool
	addOrder   []string
	active     string
	bindings   map[Binding]string
	ready      bool
}

// NewToolGroup creates an empty tool group scoped to one viewport. Tools
// must be added and the group initialized before activation calls work.
func NewToolGroup(registry *ToolRegistry, viewportID string) *ToolGroup {
	return &ToolGroup{
		registry:   registry,
		viewportID: viewportID,
		added:      make(map[string]bool),
		bindings:   make(map[Binding]string),
	}
}

// NewDefaultToolGroup builds a group with the default registry, every tool
// added, and defaultTool active on the primary button.
func NewDefaultToolGroup(viewportID, defaultTool string) (*ToolGroup, error) {
	g := NewToolGroup(DefaultRegistry(), viewportID)
	for _, name := range g.registry.Names() {
		if err := g.AddTool(name); err != nil {
			return nil, err
		}
	}
	if err := g.Initialize(defaultTool); err != nil {
		return nil, err
	}
	return g, nil
}

// ViewportID returns the viewport this group is scoped to.
func (g *ToolGroup) ViewportID() string {
	return g.viewportID
}

// Registry returns the registry this group draws its tools from.
func (g *ToolGroup) Registry() *ToolRegistry {
	return g.registry
}

// AddTool adds a registered tool to the group. Adding an unregistered tool
// is a precondition violation.
func (g *ToolGroup) AddTool(name string) error {
	if _, ok := g.registry.Descriptor(name); !ok {
		return fmt.Errorf("%w: %q", ErrToolNotRegistered, name)
	}
	if !g.added[name] {
		g.added[name] = true
		g.addOrder = append(g.addOrder, name)
	}
	return nil
}

// Initialize completes the setup protocol: always-on tools take their fixed
// channels and defaultTool becomes the active exclusive tool on the primary
// button.
func (g *ToolGroup) Initialize(defaultTool string) error {
	d, ok := g.registry.Descriptor(defaultTool)
	if !ok || !g.added[defaultTool] || d.Class != ClassExclusive {
		return fmt.Errorf("%w: %q", ErrUnknownTool, defaultTool)
	}
	g.ready = true
	return g.ActivateExclusive(defaultTool)
}

// ActivateExclusive makes name the single active exclusive tool. Every
// other exclusive tool goes passive, and all always-on bindings are
// re-asserted afterwards, because rebinding any tool may reset the rest in
// the underlying engine. Idempotent.
func (g *ToolGroup) ActivateExclusive(name string) error {
	if !g.ready {
		return ErrNotInitialized
	}
	d, ok := g.registry.Descriptor(name)
	if !ok || !g.added[name] || d.Class != ClassExclusive {
		return fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	// Rebinding drops every channel; rebuild from scratch so the
	// post-condition never depends on the previous state.
	g.bindings = make(map[Binding]string)
	g.active = name
	g.bindings[BindPrimary] = name
	g.reassertAlwaysOn()
	return nil
}

// reassertAlwaysOn re-applies the fixed channel of every always-on tool in
// the group.
func (g *ToolGroup) reassertAlwaysOn() {
	for _, name := range g.addOrder {
		d, _ := g.registry.Descriptor(name)
		if d.Class == ClassAlwaysOn {
			g.bindings[d.Binding] = d.Name
		}
	}
}

// ActiveExclusive returns the currently active exclusive tool, or "" before
// initialization.
func (g *ToolGroup) ActiveExclusive() string {
	return g.active
}

// BoundTo returns the tool bound to the given channel, or "".
func (g *ToolGroup) BoundTo(b Binding) string {
	return g.bindings[b]
}

// Bindings returns a copy of the current channel table.
func (g *ToolGroup) Bindings() map[Binding]string {
	out := make(map[Binding]string, len(g.bindings))
	for b, name := range g.bindings {
		out[b] = name
	}
	return out
}

// Destroy releases the group's bindings. The group must be destroyed before
// the surface that owns the viewport; afterwards activation calls fail with
// ErrNotInitialized. Idempotent.
func (g *ToolGroup) Destroy() {
	g.ready = false
	g.active = ""
	g.bindings = make(map[Binding]string)
}
