// Package session provides playground sessions for interactive SDUI trees.
//
// A session is the owning context for one action dispatcher and its bounded
// event log. The dispatcher and log do no locking of their own; Session
// serializes every call to them behind a mutex so HTTP handlers and
// websocket readers can share a session safely.
//
// Components:
//   - Session: dispatcher + log + live subscribers
//   - Manager: session lookup, creation and LRU eviction
//   - Sink: host hooks for permitted events (consumers) and all events
//     (observers), used for webhook forwarding, Redis mirroring and metrics
//
// Example Usage:
//
//	mgr := session.NewManager(allow, session.WithMaxSessions(100))
//	s, err := mgr.GetOrCreate("sess_01J...")
//	ev := s.Action("login", nil)
//	recent := s.Events(true)
package session
