package render

import (
	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Element types produced by the built-in renderers
const (
	ElementButton      = "button"
	ElementCard        = "card"
	ElementBadge       = "badge"
	ElementStack       = "stack"
	ElementText        = "text"
	ElementSpacer      = "spacer"
	ElementDivider     = "divider"
	ElementInput       = "input"
	ElementSwitch      = "switch"
	ElementSlider      = "slider"
	ElementPlaceholder = "placeholder"
	ElementEmpty       = "empty"
)

// Element is the backend-neutral output for one node. Props holds the
// typed config for the element type. Interactive elements carry callbacks
// that route back into the action handler given at dispatch time.
type Element struct {
	Type     string     `json:"type"`
	NodeID   string     `json:"nodeId,omitempty"`
	Props    any        `json:"props,omitempty"`
	Children []*Element `json:"children,omitempty"`

	tap    func()
	change func(value.Value) bool
}

// Empty returns the no-op element
func Empty() *Element {
	return &Element{Type: ElementEmpty}
}

// NewElement builds an element. Custom renderers use this together with
// OnTap and OnChange.
func NewElement(typ, nodeID string, props any, children ...*Element) *Element {
	return &Element{Type: typ, NodeID: nodeID, Props: props, Children: children}
}

// OnTap sets the tap callback and returns e
func (e *Element) OnTap(fn func()) *Element {
	e.tap = fn
	return e
}

// OnChange sets the change callback and returns e. fn reports whether it
// accepted the value.
func (e *Element) OnChange(fn func(value.Value) bool) *Element {
	e.change = fn
	return e
}

// IsEmpty reports whether e renders nothing
func (e *Element) IsEmpty() bool { return e == nil || e.Type == ElementEmpty }

// Interactive reports whether e has a tap or change callback
func (e *Element) Interactive() bool { return e != nil && (e.tap != nil || e.change != nil) }

// MarshalJSON adds an interactive flag so clients know which elements
// accept taps or edits
func (e *Element) MarshalJSON() ([]byte, error) {
	type plain Element
	return sonic.ConfigStd.Marshal(struct {
		*plain
		Interactive bool `json:"interactive,omitempty"`
	}{(*plain)(e), e.Interactive()})
}

// Tap simulates a user tap. It reports whether a callback ran.
func (e *Element) Tap() bool {
	if e == nil || e.tap == nil {
		return false
	}
	e.tap()
	return true
}

// Change simulates a user edit with the new value. It reports whether the
// element accepted the value.
func (e *Element) Change(v value.Value) bool {
	if e == nil || e.change == nil {
		return false
	}
	return e.change(v)
}

// Walk visits e and its descendants in pre-order without recursion
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil {
		return
	}
	stack := []*Element{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			return
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			if cur.Children[i] != nil {
				stack = append(stack, cur.Children[i])
			}
		}
	}
}

// Find returns the first element produced for nodeID
func (e *Element) Find(nodeID string) *Element {
	var found *Element
	e.Walk(func(el *Element) bool {
		if el.NodeID == nodeID {
			found = el
			return false
		}
		return true
	})
	return found
}

// Count returns the number of non-empty elements in the subtree
func (e *Element) Count() int {
	n := 0
	e.Walk(func(el *Element) bool {
		if !el.IsEmpty() {
			n++
		}
		return true
	})
	return n
}
