package session

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Event is an action event tagged with the session that produced it
type Event struct {
	SessionID string `json:"sessionId"`
	action.Event
}

// Sink receives session events
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Publish calls f(e)
func (f SinkFunc) Publish(e Event) { f(e) }

// Session owns a dispatcher and its event log
type Session struct {
	id string

	mu         sync.Mutex
	dispatcher *action.Dispatcher
	log        *action.Log
	subs       map[int]chan Event
	nextSub    int
	closed     bool

	createdAt time.Time
	lastSeen  time.Time
	now       func() time.Time
}

// Info is a snapshot of session metadata
type Info struct {
	ID          string    `json:"id"`
	Events      int       `json:"events"`
	Capacity    int       `json:"capacity"`
	Subscribers int       `json:"subscribers"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeen    time.Time `json:"lastSeen"`
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// HandleAction implements action.Handler
func (s *Session) HandleAction(id string, payload map[string]value.Value) {
	s.Action(id, payload)
}

// HandleNavigation implements action.Handler
func (s *Session) HandleNavigation(route string, params map[string]value.Value) {
	s.Navigate(route, params)
}

// Action dispatches an action through the allow-list
func (s *Session) Action(id string, payload map[string]value.Value) action.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.dispatcher.Action(id, payload)
}

// Navigate dispatches a navigation request through the allow-list
func (s *Session) Navigate(route string, params map[string]value.Value) action.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.dispatcher.Navigate(route, params)
}

// Events returns the log, newest first when recent is set
func (s *Session) Events(recent bool) []action.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if recent {
		return s.log.Recent()
	}
	return s.log.Entries()
}

// ClearEvents empties the log
func (s *Session) ClearEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.log.Clear()
}

// AllowList returns the session's allow-list
func (s *Session) AllowList() *action.AllowList { return s.dispatcher.AllowList() }

// Subscribe streams every subsequent event. Slow subscribers drop events
// rather than block dispatch. The returned func unsubscribes and closes
// the channel.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[key]; ok {
				delete(s.subs, key)
				close(c)
			}
		})
	}
}

// Info returns a metadata snapshot
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.id,
		Events:      s.log.Len(),
		Capacity:    s.log.Capacity(),
		Subscribers: len(s.subs),
		CreatedAt:   s.createdAt,
		LastSeen:    s.lastSeen,
	}
}

// LastSeen returns the time of the last call
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// broadcast runs with s.mu held, from inside the dispatcher
func (s *Session) broadcast(e Event) {
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// close ends all subscriptions
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, ch := range s.subs {
		delete(s.subs, key)
		close(ch)
	}
}

func (s *Session) touch() { s.lastSeen = s.now() }
