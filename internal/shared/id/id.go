// Package id mints the ULID-based identifiers carried by events, sessions
// and trace spans.
//
// ULIDs sort lexicographically by creation time, so event ids double as an
// ordering key when entries are mirrored to external stores.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind tags an identifier with what it names
type Kind string

const (
	KindEvent   Kind = "evt"
	KindSession Kind = "sess"
	KindTrace   Kind = "trc"
)

// Source mints ULIDs. It is safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	entropy io.Reader
	clock   func() time.Time
}

var (
	shared     *Source
	sharedOnce sync.Once
)

// Shared returns the process-wide source
func Shared() *Source {
	sharedOnce.Do(func() { shared = NewSource(nil, nil) })
	return shared
}

// NewSource builds a source. A nil entropy reader uses monotonic
// crypto/rand; a nil clock uses time.Now.
func NewSource(entropy io.Reader, clock func() time.Time) *Source {
	if entropy == nil {
		entropy = ulid.Monotonic(rand.Reader, 0)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Source{entropy: entropy, clock: clock}
}

// Next returns a bare ULID string
func (s *Source) Next() string {
	s.mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(s.clock()), s.entropy)
	s.mu.Unlock()
	return u.String()
}

// Mint returns kind_ULID
func (s *Source) Mint(k Kind) string {
	return string(k) + "_" + s.Next()
}

// Event mints an event log entry id
func Event() string { return Shared().Mint(KindEvent) }

// Session mints a session id
func Session() string { return Shared().Mint(KindSession) }

// Trace mints a trace id
func Trace() string { return Shared().Mint(KindTrace) }
