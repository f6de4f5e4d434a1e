package action

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/shared/id"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Handler is the callback surface interactive elements invoke
type Handler interface {
	HandleAction(id string, payload map[string]value.Value)
	HandleNavigation(route string, params map[string]value.Value)
}

// Consumer is the host's downstream sink for permitted events
type Consumer interface {
	Consume(e Event)
}

// ConsumerFunc adapts a function to Consumer
type ConsumerFunc func(e Event)

// Consume calls f(e)
func (f ConsumerFunc) Consume(e Event) { f(e) }

// Consumers fans one event out to several consumers in order
type Consumers []Consumer

// Consume forwards e to every consumer
func (cs Consumers) Consume(e Event) {
	for _, c := range cs {
		c.Consume(e)
	}
}

// Dispatcher gates events through an AllowList. Every call is recorded in
// the log (when one is attached); only permitted events reach the consumer.
// The dispatcher holds no locks; its owner serializes calls, which also
// serializes access to the attached Log.
type Dispatcher struct {
	allow     *AllowList
	log       *Log
	consumer  Consumer
	observers []func(Event)
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLog records every event in l
func WithLog(l *Log) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithConsumer sets the downstream consumer for permitted events
func WithConsumer(c Consumer) Option {
	return func(d *Dispatcher) { d.consumer = c }
}

// WithObserver registers fn to see every event, blocked ones included
func WithObserver(fn func(Event)) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, fn) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDFunc overrides the entry id source
func WithIDFunc(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// NewDispatcher creates a dispatcher. A nil allow-list denies everything.
func NewDispatcher(allow *AllowList, opts ...Option) *Dispatcher {
	if allow == nil {
		allow = DenyAll()
	}
	d := &Dispatcher{
		allow:  allow,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return id.Event() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AllowList returns the active allow-list
func (d *Dispatcher) AllowList() *AllowList { return d.allow }

// Log returns the attached log, or nil
func (d *Dispatcher) Log() *Log { return d.log }

// HandleAction implements Handler
func (d *Dispatcher) HandleAction(actionID string, payload map[string]value.Value) {
	d.Action(actionID, payload)
}

// HandleNavigation implements Handler
func (d *Dispatcher) HandleNavigation(route string, params map[string]value.Value) {
	d.Navigate(route, params)
}

// Action dispatches an action and returns the recorded event
func (d *Dispatcher) Action(actionID string, payload map[string]value.Value) Event {
	return d.dispatch(KindAction, actionID, payload, d.allow.AllowsAction(actionID))
}

// Navigate dispatches a navigation request and returns the recorded event
func (d *Dispatcher) Navigate(route string, params map[string]value.Value) Event {
	return d.dispatch(KindNavigation, route, params, d.allow.AllowsRoute(route))
}

func (d *Dispatcher) dispatch(target Kind, key string, payload map[string]value.Value, allowed bool) Event {
	e := Event{
		EntryID:   d.newID(),
		ID:        key,
		Payload:   copyPayload(payload),
		Kind:      target,
		Target:    target,
		Timestamp: d.now(),
	}
	if !allowed {
		e.Kind = KindBlocked
	}

	if d.log != nil {
		d.log.Append(e)
	}
	for _, fn := range d.observers {
		fn(e)
	}

	if !allowed {
		d.logger.Warn("Blocked SDUI event",
			zap.String("target", target.String()),
			zap.String("id", key))
		return e
	}

	d.logger.Debug("Dispatching SDUI event",
		zap.String("kind", target.String()),
		zap.String("id", key),
		zap.Int("payload_keys", len(payload)))
	if d.consumer != nil {
		d.consumer.Consume(e)
	}
	return e
}

func copyPayload(p map[string]value.Value) map[string]value.Value {
	if p == nil {
		return nil
	}
	out := make(map[string]value.Value, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NoopHandler logs events for diagnostics and never forwards them. It is
// the handler used when no live host is attached.
type NoopHandler struct {
	logger *zap.Logger
}

// NewNoopHandler creates a NoopHandler. A nil logger discards output.
func NewNoopHandler(logger *zap.Logger) *NoopHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopHandler{logger: logger}
}

// HandleAction implements Handler
func (h *NoopHandler) HandleAction(actionID string, payload map[string]value.Value) {
	h.logger.Debug("SDUI action (no host)", zap.String("id", actionID), zap.Int("payload_keys", len(payload)))
}

// HandleNavigation implements Handler
func (h *NoopHandler) HandleNavigation(route string, params map[string]value.Value) {
	h.logger.Debug("SDUI navigation (no host)", zap.String("route", route), zap.Int("param_keys", len(params)))
}
