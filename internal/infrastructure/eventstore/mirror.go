package eventstore

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/session"
)

// Recorder receives write outcomes
type Recorder interface {
	RecordDelivery(sink string, err error)
}

// Mirror is a session.Sink that copies every event, blocked ones included,
// into a Store. Publish and Clear enqueue; Run applies the queue in order.
type Mirror struct {
	store    *Store
	queue    chan mirrorOp
	logger   *zap.Logger
	recorder Recorder
	dropped  atomic.Int64
}

// mirrorOp is an event to append, or a session to clear when done is set
type mirrorOp struct {
	event session.Event
	clear string
	done  chan error
}

// NewMirror creates a mirror with a bounded queue
func NewMirror(store *Store, queueSize int, logger *zap.Logger, recorder Recorder) *Mirror {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		store:    store,
		queue:    make(chan mirrorOp, queueSize),
		logger:   logger,
		recorder: recorder,
	}
}

// Publish implements session.Sink
func (m *Mirror) Publish(e session.Event) {
	select {
	case m.queue <- mirrorOp{event: e}:
	default:
		m.dropped.Add(1)
		m.logger.Warn("Event mirror queue full, dropping event",
			zap.String("session_id", e.SessionID),
			zap.String("entry_id", e.EntryID))
	}
}

// Clear deletes a session's mirrored events after every event queued ahead
// of it has been written, so earlier writes cannot resurrect them. It waits
// for the delete or ctx.
func (m *Mirror) Clear(ctx context.Context, sessionID string) error {
	done := make(chan error, 1)
	select {
	case m.queue <- mirrorOp{clear: sessionID, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued writes until ctx is done
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-m.queue:
			if op.done != nil {
				op.done <- m.store.Clear(ctx, op.clear)
				continue
			}
			e := op.event
			err := m.store.Append(ctx, e)
			if m.recorder != nil {
				m.recorder.RecordDelivery("redis", err)
			}
			if err != nil && ctx.Err() == nil {
				m.logger.Warn("Event mirror write failed",
					zap.String("session_id", e.SessionID),
					zap.Error(err))
			}
		}
	}
}

// Dropped returns how many events were dropped on a full queue
func (m *Mirror) Dropped() int64 { return m.dropped.Load() }

// Store returns the backing store
func (m *Mirror) Store() *Store { return m.store }

var _ session.Sink = (*Mirror)(nil)
