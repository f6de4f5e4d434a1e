package session

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/shared/id"
)

// DefaultMaxSessions bounds live sessions
const DefaultMaxSessions = 1000

// MaxIDLength bounds session ids
const MaxIDLength = 128

var safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ErrInvalidID is returned for empty or malformed session ids
var ErrInvalidID = errors.New("invalid session id")

// ValidateID checks a session id
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength || !safeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Manager creates and tracks sessions. All sessions share one allow-list.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	allow       *action.AllowList
	logCapacity int
	maxSessions int
	consumers   []Sink
	observers   []Sink
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithMaxSessions caps live sessions; the least recently used is evicted
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithLogCapacity sets each session's event log size
func WithLogCapacity(n int) Option {
	return func(m *Manager) { m.logCapacity = n }
}

// WithConsumer adds a sink for permitted events
func WithConsumer(s Sink) Option {
	return func(m *Manager) { m.consumers = append(m.consumers, s) }
}

// WithObserver adds a sink for every event, blocked ones included
func WithObserver(s Sink) Option {
	return func(m *Manager) { m.observers = append(m.observers, s) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager
func NewManager(allow *action.AllowList, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		allow:       allow,
		logCapacity: action.DefaultLogCapacity,
		maxSessions: DefaultMaxSessions,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AllowList returns the shared allow-list
func (m *Manager) AllowList() *action.AllowList { return m.allow }

// GetOrCreate returns the session for id, creating it if needed
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if len(m.sessions) >= m.maxSessions {
		m.evictLocked()
	}

	s := m.newSession(id)
	m.sessions[id] = s
	m.logger.Debug("Session created", zap.String("session_id", id), zap.Int("active", len(m.sessions)))
	return s, nil
}

// Create starts a session under a freshly minted id
func (m *Manager) Create() *Session {
	s, err := m.GetOrCreate(id.Session())
	if err != nil {
		panic(err) // minted ids always validate
	}
	return s
}

func (m *Manager) newSession(id string) *Session {
	now := m.now()
	s := &Session{
		id:        id,
		log:       action.NewLog(m.logCapacity),
		subs:      make(map[int]chan Event),
		createdAt: now,
		lastSeen:  now,
		now:       m.now,
	}

	opts := []action.Option{
		action.WithLog(s.log),
		action.WithLogger(m.logger.With(zap.String("session_id", id))),
		action.WithClock(m.now),
		action.WithObserver(func(e action.Event) {
			ev := Event{SessionID: id, Event: e}
			s.broadcast(ev)
			for _, o := range m.observers {
				o.Publish(ev)
			}
		}),
	}
	if len(m.consumers) > 0 {
		opts = append(opts, action.WithConsumer(action.ConsumerFunc(func(e action.Event) {
			ev := Event{SessionID: id, Event: e}
			for _, c := range m.consumers {
				c.Publish(ev)
			}
		})))
	}
	s.dispatcher = action.NewDispatcher(m.allow, opts...)
	return s
}

// evictLocked drops the least recently used session. Callers hold m.mu.
func (m *Manager) evictLocked() {
	var oldest *Session
	var oldestSeen time.Time
	for _, s := range m.sessions {
		seen := s.LastSeen()
		if oldest == nil || seen.Before(oldestSeen) {
			oldest, oldestSeen = s, seen
		}
	}
	if oldest == nil {
		return
	}
	delete(m.sessions, oldest.id)
	oldest.close()
	m.logger.Info("Session evicted", zap.String("session_id", oldest.id))
}

// Get returns an existing session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session and closes its subscriptions
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns live session ids, sorted
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
