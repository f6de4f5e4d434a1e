package action

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Kind classifies a dispatched event
type Kind uint8

const (
	KindAction Kind = iota + 1
	KindNavigation
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindNavigation:
		return "navigation"
	case KindBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	if k < KindAction || k > KindBlocked {
		return nil, fmt.Errorf("action: invalid kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "action":
		*k = KindAction
	case "navigation":
		*k = KindNavigation
	case "blocked":
		*k = KindBlocked
	default:
		return fmt.Errorf("action: unknown kind %q", text)
	}
	return nil
}

// Event records one inbound action or navigation call. ID is the action id
// or the route. Target tells which channel a blocked event was aimed at;
// for permitted events it equals Kind.
type Event struct {
	EntryID   string                 `json:"entryId"`
	ID        string                 `json:"id"`
	Payload   map[string]value.Value `json:"payload,omitempty"`
	Kind      Kind                   `json:"kind"`
	Target    Kind                   `json:"target"`
	Timestamp time.Time              `json:"timestamp"`
}

// Blocked reports whether the allow-list rejected the event
func (e Event) Blocked() bool { return e.Kind == KindBlocked }
