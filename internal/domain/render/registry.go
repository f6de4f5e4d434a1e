package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

// RenderFunc produces the element for one node. depth is the node's depth
// with roots at 1. Container renderers should render children through
// Registry.DispatchChildren so the depth guard applies.
type RenderFunc func(node *tree.Node, h action.Handler, depth int) *Element

// Mode selects how unknown component types degrade
type Mode uint8

const (
	// ModeProduction renders unknown types as empty elements
	ModeProduction Mode = iota
	// ModeDevelopment renders unknown types as a diagnostic placeholder
	ModeDevelopment
)

func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "production"
}

// ParseMode accepts dev/development and prod/production
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return ModeDevelopment, nil
	case "", "prod", "production", "release":
		return ModeProduction, nil
	default:
		return ModeProduction, fmt.Errorf("unknown render mode %q", s)
	}
}

// ComponentNotFoundError describes a node whose type has no renderer. It is
// reported to observers and logs, never returned from Dispatch.
type ComponentNotFoundError struct {
	Type   string
	NodeID string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component not found: %s (node %s)", e.Type, e.NodeID)
}

var (
	ErrEmptyType     = errors.New("component type is required")
	ErrNilRenderer   = errors.New("renderer is nil")
	ErrNotRegistered = errors.New("component type is not registered")
)

// Observer receives render notifications, typically for metrics
type Observer interface {
	ElementRendered(componentType string)
	ComponentNotFound(err *ComponentNotFoundError)
	DepthLimitHit(depth int)
}

// Registry maps node types to renderers. Built-ins are checked first, then
// custom registrations. Registration is guarded by a RWMutex, so Register
// may safely run while other goroutines dispatch.
type Registry struct {
	mu       sync.RWMutex
	custom   map[string]RenderFunc
	builtins map[string]RenderFunc

	limits   tree.Limits
	mode     Mode
	logger   *zap.Logger
	observer Observer
}

// Option configures a Registry
type Option func(*Registry)

// WithMode sets how unknown types degrade
func WithMode(m Mode) Option {
	return func(r *Registry) { r.mode = m }
}

// WithLimits sets the depth guard and text length
func WithLimits(l tree.Limits) Option {
	return func(r *Registry) { r.limits = l.Normalize() }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithObserver sets the render observer
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry creates a registry with the built-in components installed
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		custom: make(map[string]RenderFunc),
		limits: tree.DefaultLimits(),
		mode:   ModeProduction,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.builtins = r.builtinTable()
	return r
}

// Mode returns the fallback mode
func (r *Registry) Mode() Mode { return r.mode }

// Limits returns the active limits
func (r *Registry) Limits() tree.Limits { return r.limits }

// Register installs or replaces the renderer for a custom type. The last
// registration wins. A type named like a built-in is stored but never
// dispatched while the built-in exists.
func (r *Registry) Register(componentType string, fn RenderFunc) error {
	if componentType == "" {
		return ErrEmptyType
	}
	if fn == nil {
		return ErrNilRenderer
	}
	r.mu.Lock()
	_, replaced := r.custom[componentType]
	r.custom[componentType] = fn
	r.mu.Unlock()

	if _, ok := r.builtins[componentType]; ok {
		r.logger.Warn("Registered component is shadowed by a built-in",
			zap.String("type", componentType))
		return nil
	}
	r.logger.Debug("Registered component",
		zap.String("type", componentType),
		zap.Bool("replaced", replaced))
	return nil
}

// Unregister removes a custom renderer
func (r *Registry) Unregister(componentType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.custom[componentType]; !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, componentType)
	}
	delete(r.custom, componentType)
	return nil
}

// IsRegistered reports whether a type is built-in or custom
func (r *Registry) IsRegistered(componentType string) bool {
	if _, ok := r.builtins[componentType]; ok {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.custom[componentType]
	return ok
}

// IsBuiltin reports whether a type is one of the built-in components
func (r *Registry) IsBuiltin(componentType string) bool {
	_, ok := r.builtins[componentType]
	return ok
}

// BuiltinTypes returns the built-in type names, sorted
func (r *Registry) BuiltinTypes() []string {
	out := make([]string, 0, len(r.builtins))
	for t := range r.builtins {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CustomTypes returns the registered custom type names, sorted
func (r *Registry) CustomTypes() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.custom))
	for t := range r.custom {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Render dispatches every root of a validated tree at depth 1
func (r *Registry) Render(t *tree.Tree, h action.Handler) []*Element {
	roots := t.Roots()
	out := make([]*Element, len(roots))
	for i, n := range roots {
		out[i] = r.Dispatch(n, h, 1)
	}
	return out
}

// Dispatch renders one node. It never fails: past the depth limit it
// returns an empty element, and unknown types become a placeholder or an
// empty element depending on the mode.
func (r *Registry) Dispatch(n *tree.Node, h action.Handler, depth int) *Element {
	if n == nil {
		return Empty()
	}
	if depth > r.limits.MaxDepth {
		r.logger.Warn("Render depth limit reached",
			zap.String("node_id", n.ID()),
			zap.Int("depth", depth),
			zap.Int("limit", r.limits.MaxDepth))
		if r.observer != nil {
			r.observer.DepthLimitHit(depth)
		}
		return Empty()
	}

	fn, ok := r.builtins[n.Type()]
	if !ok {
		r.mu.RLock()
		fn, ok = r.custom[n.Type()]
		r.mu.RUnlock()
	}
	if !ok {
		return r.fallback(n)
	}

	el := fn(n, h, depth)
	if el == nil {
		el = Empty()
	}
	if r.observer != nil {
		r.observer.ElementRendered(n.Type())
	}
	return el
}

// DispatchChildren renders a node's children at depth+1
func (r *Registry) DispatchChildren(n *tree.Node, h action.Handler, depth int) []*Element {
	children := n.Children()
	if len(children) == 0 {
		return nil
	}
	out := make([]*Element, len(children))
	for i, c := range children {
		out[i] = r.Dispatch(c, h, depth+1)
	}
	return out
}

func (r *Registry) fallback(n *tree.Node) *Element {
	notFound := &ComponentNotFoundError{Type: n.Type(), NodeID: n.ID()}
	if r.observer != nil {
		r.observer.ComponentNotFound(notFound)
	}

	if r.mode == ModeDevelopment {
		r.logger.Warn("Unknown component", zap.Error(notFound))
		return NewElement(ElementPlaceholder, n.ID(), PlaceholderConfig{
			ComponentType: n.Type(),
			Message:       "Unknown: " + n.Type(),
		})
	}
	r.logger.Debug("Unknown component", zap.Error(notFound))
	return Empty()
}
