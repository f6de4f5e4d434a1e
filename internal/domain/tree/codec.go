package tree

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// wireNode is the JSON shape of a node. Pointers distinguish missing
// required fields from empty ones.
type wireNode struct {
	ID       *string                 `json:"id"`
	Type     *string                 `json:"type"`
	Props    *map[string]value.Value `json:"props"`
	Children []*wireNode             `json:"children,omitempty"`
}

// outNode is the encoded form of a Node
type outNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Props    map[string]value.Value `json:"props"`
	Children []*Node                `json:"children,omitempty"`
}

// DecodeTree parses a single node object or an array of root nodes.
// Syntax errors yield ErrInvalidJSON; JSON that does not have the node
// shape yields a *DecodingFailedError.
func DecodeTree(data []byte) ([]*Node, error) {
	return decodeTree(data, 0)
}

// decodeTree refuses payloads nested past MaxNesting before parsing. With
// maxDepth > 0 a node chain deeper than maxDepth is reported as a depth
// violation; other over-nesting is a decoding failure.
func decodeTree(data []byte, maxDepth int) ([]*Node, error) {
	if n := scanNesting(data); n.brackets > MaxNesting {
		if maxDepth > 0 && n.nodes > maxDepth {
			return nil, &MaxDepthExceededError{Limit: maxDepth, Depth: n.nodes}
		}
		return nil, &DecodingFailedError{Cause: fmt.Errorf("nesting depth %d exceeds %d", n.brackets, MaxNesting)}
	}
	if !sonic.ConfigStd.Valid(data) {
		return nil, ErrInvalidJSON
	}

	switch firstByte(data) {
	case '[':
		var wires []*wireNode
		if err := sonic.ConfigStd.Unmarshal(data, &wires); err != nil {
			return nil, &DecodingFailedError{Cause: err}
		}
		roots := make([]*Node, len(wires))
		for i, w := range wires {
			n, err := buildNode(w, "["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			roots[i] = n
		}
		return roots, nil
	case '{':
		var w wireNode
		if err := sonic.ConfigStd.Unmarshal(data, &w); err != nil {
			return nil, &DecodingFailedError{Cause: err}
		}
		n, err := buildNode(&w, "$")
		if err != nil {
			return nil, err
		}
		return []*Node{n}, nil
	default:
		return nil, &DecodingFailedError{Cause: errors.New("expected a node object or an array of nodes")}
	}
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

// buildNode converts a decoded wire tree into Nodes without recursion
func buildNode(root *wireNode, path string) (*Node, error) {
	type frame struct {
		wire *wireNode
		slot **Node
		path string
	}

	var out *Node
	stack := []frame{{root, &out, path}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := f.wire.check(); err != nil {
			return nil, &DecodingFailedError{Cause: fmt.Errorf("%s: %w", f.path, err)}
		}

		n := &Node{
			id:    *f.wire.ID,
			typ:   *f.wire.Type,
			props: *f.wire.Props,
		}
		if n.props == nil {
			n.props = map[string]value.Value{}
		}
		if len(f.wire.Children) > 0 {
			n.children = make([]*Node, len(f.wire.Children))
			for i, c := range f.wire.Children {
				stack = append(stack, frame{c, &n.children[i], f.path + ".children[" + strconv.Itoa(i) + "]"})
			}
		}
		*f.slot = n
	}
	return out, nil
}

func (w *wireNode) check() error {
	switch {
	case w == nil:
		return errors.New("node is null")
	case w.ID == nil:
		return errors.New(`missing required field "id"`)
	case w.Type == nil:
		return errors.New(`missing required field "type"`)
	case w.Props == nil:
		return errors.New(`missing required field "props"`)
	}
	return nil
}

// MarshalJSON encodes the node in the same shape DecodeTree accepts
func (n *Node) MarshalJSON() ([]byte, error) {
	return sonic.ConfigStd.Marshal(outNode{
		ID:       n.id,
		Type:     n.typ,
		Props:    n.props,
		Children: n.children,
	})
}

// EncodeTree encodes roots as a JSON array
func EncodeTree(roots []*Node) ([]byte, error) {
	if roots == nil {
		roots = []*Node{}
	}
	return sonic.ConfigStd.Marshal(roots)
}
