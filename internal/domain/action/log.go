package action

// DefaultLogCapacity is the standard event log size
const DefaultLogCapacity = 50

// Log is a fixed-capacity FIFO of events. When full, the oldest entries are
// evicted. Log does no locking: the owner must serialize Append and Clear.
type Log struct {
	entries  []Event
	capacity int
}

// NewLog creates a log holding at most capacity entries. Non-positive
// capacities use DefaultLogCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{
		entries:  make([]Event, 0, capacity+1),
		capacity: capacity,
	}
}

// Append adds an entry at the end and evicts from the front until the log
// is back at capacity.
func (l *Log) Append(e Event) {
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.capacity; over > 0 {
		n := copy(l.entries, l.entries[over:])
		for i := n; i < len(l.entries); i++ {
			l.entries[i] = Event{}
		}
		l.entries = l.entries[:n]
	}
}

// Clear removes all entries
func (l *Log) Clear() {
	for i := range l.entries {
		l.entries[i] = Event{}
	}
	l.entries = l.entries[:0]
}

// Len returns the number of stored entries
func (l *Log) Len() int { return len(l.entries) }

// Capacity returns the maximum number of entries
func (l *Log) Capacity() int { return l.capacity }

// Entries returns a copy in insertion order
func (l *Log) Entries() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns a copy with the newest entry first. Storage order is
// never changed.
func (l *Log) Recent() []Event {
	out := make([]Event, len(l.entries))
	for i, e := range l.entries {
		out[len(out)-1-i] = e
	}
	return out
}
