package tree

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below
var (
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrDecodingFailed       = errors.New("decoding failed")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrMaxDepthExceeded     = errors.New("max depth exceeded")
	ErrMaxNodeCountExceeded = errors.New("max node count exceeded")
)

// DecodingFailedError reports well-formed JSON that is not a node tree
type DecodingFailedError struct {
	Cause error
}

func (e *DecodingFailedError) Error() string {
	return fmt.Sprintf("decoding failed: %v", e.Cause)
}

func (e *DecodingFailedError) Unwrap() error        { return e.Cause }
func (e *DecodingFailedError) Is(target error) bool { return target == ErrDecodingFailed }

// PayloadTooLargeError reports a payload rejected before parsing
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload size %d bytes exceeds maximum %d bytes", e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// MaxDepthExceededError reports a tree deeper than the configured limit
type MaxDepthExceededError struct {
	Limit int
	Depth int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("tree depth %d exceeds maximum %d", e.Depth, e.Limit)
}

func (e *MaxDepthExceededError) Is(target error) bool { return target == ErrMaxDepthExceeded }

// MaxNodeCountExceededError reports a tree with too many nodes
type MaxNodeCountExceededError struct {
	Limit int
	Count int
}

func (e *MaxNodeCountExceededError) Error() string {
	return fmt.Sprintf("node count %d exceeds maximum %d", e.Count, e.Limit)
}

func (e *MaxNodeCountExceededError) Is(target error) bool { return target == ErrMaxNodeCountExceeded }

// Reason returns a stable snake_case label for err, suitable for metrics
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	case errors.Is(err, ErrDecodingFailed):
		return "decoding_failed"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "max_depth_exceeded"
	case errors.Is(err, ErrMaxNodeCountExceeded):
		return "max_node_count_exceeded"
	default:
		return "unknown"
	}
}

// IsStructural reports errors raised before any node exists
func IsStructural(err error) bool {
	return errors.Is(err, ErrInvalidJSON) || errors.Is(err, ErrDecodingFailed)
}

// IsLimit reports limit violations
func IsLimit(err error) bool {
	return errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrMaxDepthExceeded) ||
		errors.Is(err, ErrMaxNodeCountExceeded)
}
