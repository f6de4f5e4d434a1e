// Package forward delivers permitted SDUI events to a host webhook.
//
// The forwarder is a session.Sink. Publish only enqueues, since sessions
// call their sinks while holding the session lock; Run drains the queue and
// posts each event through a circuit breaker. A full queue drops events.
package forward

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Headers set on every delivery
const (
	HeaderDeliveryID = "X-Delivery-ID"
	HeaderEventKind  = "X-SDUI-Event"
	HeaderSessionID  = "X-SDUI-Session"
)

// ErrRejected is returned when the webhook answers 4xx. Rejections don't
// count against the breaker and are not retried.
var ErrRejected = errors.New("webhook rejected event")

// Recorder receives delivery outcomes
type Recorder interface {
	RecordDelivery(sink string, err error)
}

// Config configures the forwarder
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
	QueueSize  int
	UserAgent  string
}

// Delivery is the JSON body posted to the webhook
type Delivery struct {
	DeliveryID string                 `json:"deliveryId"`
	SessionID  string                 `json:"sessionId"`
	EntryID    string                 `json:"entryId"`
	Kind       action.Kind            `json:"kind"`
	ID         string                 `json:"id"`
	Payload    map[string]value.Value `json:"payload,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Forwarder posts events to a webhook
type Forwarder struct {
	url      string
	client   *resty.Client
	breaker  *resilience.Breaker
	queue    chan session.Event
	logger   *zap.Logger
	recorder Recorder
	tracer   *tracing.Tracer
	newID    func() string

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Forwarder
type Option func(*Forwarder)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *Forwarder) { f.logger = logger }
}

// WithRecorder reports delivery outcomes, typically to metrics
func WithRecorder(r Recorder) Option {
	return func(f *Forwarder) { f.recorder = r }
}

// WithBreaker replaces the default circuit breaker
func WithBreaker(b *resilience.Breaker) Option {
	return func(f *Forwarder) { f.breaker = b }
}

// WithTracer records a span per delivery. Deliveries carry trace headers
// either way.
func WithTracer(t *tracing.Tracer) Option {
	return func(f *Forwarder) { f.tracer = t }
}

// WithDeliveryIDFunc overrides delivery id generation
func WithDeliveryIDFunc(fn func() string) Option {
	return func(f *Forwarder) { f.newID = fn }
}

// New creates a forwarder for cfg.URL
func New(cfg Config, opts ...Option) (*Forwarder, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sdui-forwarder/1.0"
	}

	// pooled transport from retryablehttp; retries themselves are resty's
	transport := retryablehttp.NewClient().HTTPClient.Transport

	client := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.ConfigStd.Marshal).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	f := &Forwarder{
		url:    cfg.URL,
		client: client,
		queue:  make(chan session.Event, cfg.QueueSize),
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.breaker == nil {
		f.breaker = resilience.New("webhook", resilience.Settings{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
			IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, ErrRejected) },
			OnStateChange: func(name string, from, to resilience.State) {
				f.logger.Warn("Webhook breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return f, nil
}

// Publish implements session.Sink. Blocked events are ignored.
func (f *Forwarder) Publish(e session.Event) {
	if e.Blocked() {
		return
	}
	select {
	case f.queue <- e:
	default:
		f.dropped.Add(1)
		f.logger.Warn("Webhook queue full, dropping event",
			zap.String("session_id", e.SessionID),
			zap.String("entry_id", e.EntryID))
	}
}

// Run delivers queued events until ctx is done
func (f *Forwarder) Run(ctx context.Context) error {
	f.logger.Info("Webhook forwarder started", zap.String("url", f.url))
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Webhook forwarder stopped",
				zap.Int64("delivered", f.delivered.Load()),
				zap.Int64("failed", f.failed.Load()),
				zap.Int64("dropped", f.dropped.Load()))
			return ctx.Err()
		case e := <-f.queue:
			if err := f.Deliver(ctx, e); err != nil && ctx.Err() == nil {
				f.logger.Warn("Webhook delivery failed",
					zap.String("session_id", e.SessionID),
					zap.String("entry_id", e.EntryID),
					zap.Error(err))
			}
		}
	}
}

// Deliver posts one event synchronously
func (f *Forwarder) Deliver(ctx context.Context, e session.Event) error {
	d := Delivery{
		DeliveryID: f.newID(),
		SessionID:  e.SessionID,
		EntryID:    e.EntryID,
		Kind:       e.Kind,
		ID:         e.ID,
		Payload:    e.Payload,
		Timestamp:  e.Timestamp,
	}

	var span *tracing.Span
	if f.tracer != nil {
		span, ctx = f.tracer.StartSpan(ctx, "webhook.deliver")
		span.SetTag("session_id", d.SessionID)
		span.SetTag("entry_id", d.EntryID)
	}
	trace := make(http.Header)
	tracing.Inject(ctx, trace)

	status := 0
	err := f.breaker.Do(ctx, func(ctx context.Context) error {
		resp, err := f.client.R().
			SetContext(ctx).
			SetHeaderMultiValues(trace).
			SetHeader(HeaderDeliveryID, d.DeliveryID).
			SetHeader(HeaderEventKind, d.Kind.String()).
			SetHeader(HeaderSessionID, d.SessionID).
			SetBody(d).
			Post(f.url)
		if err != nil {
			return fmt.Errorf("webhook request: %w", err)
		}
		status = resp.StatusCode()
		switch code := status; {
		case code >= 500:
			return fmt.Errorf("webhook returned %d", code)
		case code >= 400:
			return fmt.Errorf("%w: status %d", ErrRejected, code)
		}
		return nil
	})

	if err != nil {
		f.failed.Add(1)
	} else {
		f.delivered.Add(1)
		f.logger.Debug("Webhook delivered",
			zap.String("delivery_id", d.DeliveryID),
			zap.String("entry_id", d.EntryID))
	}
	if f.recorder != nil {
		f.recorder.RecordDelivery("webhook", err)
	}
	if span != nil {
		span.StatusCode = status
		span.SetError(err)
		span.Finish()
		f.tracer.Submit(span)
	}
	return err
}

// Stats reports delivered, failed and dropped counts
func (f *Forwarder) Stats() (delivered, failed, dropped int64) {
	return f.delivered.Load(), f.failed.Load(), f.dropped.Load()
}

// BreakerState returns the breaker state
func (f *Forwarder) BreakerState() resilience.State { return f.breaker.State() }

var _ session.Sink = (*Forwarder)(nil)
