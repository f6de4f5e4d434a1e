package tree

import (
	"bytes"
	"errors"
)

// Tree is a set of root nodes that passed validation. The renderer only
// accepts a *Tree, so an unvalidated node can never be dispatched.
type Tree struct {
	roots     []*Node
	nodeCount int
	depth     int
	limits    Limits
}

// Roots returns the validated root nodes
func (t *Tree) Roots() []*Node {
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// NodeCount returns the total number of nodes across all roots
func (t *Tree) NodeCount() int { return t.nodeCount }

// Depth returns the deepest root's depth
func (t *Tree) Depth() int { return t.depth }

// Limits returns the limits the tree was validated against
func (t *Tree) Limits() Limits { return t.limits }

// MarshalJSON encodes the roots as an array
func (t *Tree) MarshalJSON() ([]byte, error) { return EncodeTree(t.roots) }

// Validator enforces payload size, depth and node count ceilings
type Validator struct {
	limits Limits
}

// NewValidator creates a validator. Zero-valued limits take defaults.
func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits.Normalize()}
}

// DefaultValidator returns a validator with the standard limits
func DefaultValidator() *Validator {
	return NewValidator(DefaultLimits())
}

// Limits returns the active limits
func (v *Validator) Limits() Limits { return v.limits }

// CheckPayloadSize rejects oversized payloads before any parsing
func (v *Validator) CheckPayloadSize(data []byte) error {
	if len(data) > v.limits.MaxPayloadBytes {
		return &PayloadTooLargeError{Size: len(data), Limit: v.limits.MaxPayloadBytes}
	}
	return nil
}

// DecodeTree parses data into root nodes. Limits are not checked, except
// that a payload too deeply nested to parse is reported against MaxDepth.
func (v *Validator) DecodeTree(data []byte) ([]*Node, error) {
	return decodeTree(data, v.limits.MaxDepth)
}

// measure sums node counts and takes the maximum depth across roots
func measure(roots []*Node) (count, depth int) {
	for _, r := range roots {
		count += r.TotalNodeCount()
		if d := r.MaxTreeDepth(); d > depth {
			depth = d
		}
	}
	return count, depth
}

// Validate measures every root and checks depth, then node count. It
// always walks the whole input before deciding.
func (v *Validator) Validate(roots []*Node) (*Tree, error) {
	count, depth := measure(roots)

	if depth > v.limits.MaxDepth {
		return nil, &MaxDepthExceededError{Limit: v.limits.MaxDepth, Depth: depth}
	}
	if count > v.limits.MaxNodeCount {
		return nil, &MaxNodeCountExceededError{Limit: v.limits.MaxNodeCount, Count: count}
	}

	kept := make([]*Node, 0, len(roots))
	for _, r := range roots {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &Tree{roots: kept, nodeCount: count, depth: depth, limits: v.limits}, nil
}

// Load runs the full pipeline: size check, decode, validate
func (v *Validator) Load(data []byte) (*Tree, error) {
	if err := v.CheckPayloadSize(data); err != nil {
		return nil, err
	}
	roots, err := v.DecodeTree(data)
	if err != nil {
		return nil, err
	}
	return v.Validate(roots)
}

// Report summarizes a payload for diagnostics
type Report struct {
	PayloadBytes int    `json:"payloadBytes"`
	Roots        int    `json:"roots"`
	NodeCount    int    `json:"nodeCount"`
	Depth        int    `json:"depth"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
	Err          error  `json:"-"`
}

// Inspect reports size, node count, depth and the first failing check.
// Unlike Load it keeps the measured counts when a limit is violated.
func (v *Validator) Inspect(data []byte) Report {
	r := Report{PayloadBytes: len(data)}

	fail := func(err error) Report {
		r.Err = err
		r.Error = err.Error()
		r.Reason = Reason(err)
		return r
	}

	if err := v.CheckPayloadSize(data); err != nil {
		return fail(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fail(ErrInvalidJSON)
	}

	roots, err := v.DecodeTree(data)
	if err != nil {
		var depthErr *MaxDepthExceededError
		if errors.As(err, &depthErr) {
			r.Depth = depthErr.Depth
		}
		return fail(err)
	}
	r.Roots = len(roots)
	r.NodeCount, r.Depth = measure(roots)

	if _, err := v.Validate(roots); err != nil {
		return fail(err)
	}
	r.Valid = true
	return r
}
