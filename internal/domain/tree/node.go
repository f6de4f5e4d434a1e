package tree

import (
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Node is one element of an SDUI tree. Nodes are immutable: constructors
// and accessors copy props and children.
type Node struct {
	id       string
	typ      string
	props    map[string]value.Value
	children []*Node
}

// NewNode builds a node. Nil children are dropped.
func NewNode(id, typ string, props map[string]value.Value, children ...*Node) *Node {
	n := &Node{
		id:    id,
		typ:   typ,
		props: copyProps(props),
	}
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

func copyProps(props map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// ID returns the node identifier
func (n *Node) ID() string { return n.id }

// Type returns the type tag used for renderer dispatch
func (n *Node) Type() string { return n.typ }

// Props returns a copy of the node's props
func (n *Node) Props() map[string]value.Value { return copyProps(n.props) }

// Prop returns a single prop
func (n *Node) Prop(key string) (value.Value, bool) {
	v, ok := n.props[key]
	return v, ok
}

// Children returns a copy of the child list
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// HasChildren reports whether the node has at least one child
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// ============================================================================
// Typed prop lookups (absent or mismatched props fall back to def)
// ============================================================================

// StringProp returns a string prop or def
func (n *Node) StringProp(key, def string) string {
	if s, ok := n.props[key].AsString(); ok {
		return s
	}
	return def
}

// OptionalString returns a string prop and whether it was present
func (n *Node) OptionalString(key string) (string, bool) {
	return n.props[key].AsString()
}

// IntProp returns an integer prop or def. A whole-valued Double is accepted.
func (n *Node) IntProp(key string, def int64) int64 {
	v := n.props[key]
	if i, ok := v.AsInt(); ok {
		return i
	}
	if f, ok := v.AsDouble(); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return def
}

// DoubleProp returns a numeric prop or def
func (n *Node) DoubleProp(key string, def float64) float64 {
	if f, ok := n.props[key].AsDouble(); ok {
		return f
	}
	return def
}

// OptionalDouble returns a numeric prop and whether it was present
func (n *Node) OptionalDouble(key string) (float64, bool) {
	return n.props[key].AsDouble()
}

// BoolProp returns a boolean prop or def
func (n *Node) BoolProp(key string, def bool) bool {
	if b, ok := n.props[key].AsBool(); ok {
		return b
	}
	return def
}

// ============================================================================
// Traversal
// ============================================================================

// TotalNodeCount counts this node and all descendants. The walk uses an
// explicit stack so adversarially deep trees cannot exhaust the goroutine
// stack.
func (n *Node) TotalNodeCount() int {
	if n == nil {
		return 0
	}
	count := 0
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, cur.children...)
	}
	return count
}

// MaxTreeDepth returns the depth of the deepest node, counting this node as
// depth 1.
func (n *Node) MaxTreeDepth() int {
	if n == nil {
		return 0
	}
	type frame struct {
		node  *Node
		depth int
	}
	maxDepth := 0
	stack := []frame{{n, 1}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.depth > maxDepth {
			maxDepth = cur.depth
		}
		for _, c := range cur.node.children {
			stack = append(stack, frame{c, cur.depth + 1})
		}
	}
	return maxDepth
}

// Walk visits nodes in pre-order with their depth (root = 1). Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	if n == nil {
		return
	}
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{n, 1}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur.node, cur.depth) {
			continue
		}
		for i := len(cur.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{cur.node.children[i], cur.depth + 1})
		}
	}
}

// Equal reports structural equality of two trees
func (n *Node) Equal(o *Node) bool {
	type pair struct{ a, b *Node }
	stack := []pair{{n, o}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.id != p.b.id || p.a.typ != p.b.typ || len(p.a.children) != len(p.b.children) {
			return false
		}
		if !value.EqualMaps(p.a.props, p.b.props) {
			return false
		}
		for i := range p.a.children {
			stack = append(stack, pair{p.a.children[i], p.b.children[i]})
		}
	}
	return true
}
