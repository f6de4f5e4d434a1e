package forward

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

type received struct {
	headers http.Header
	body    map[string]interface{}
}

type hook struct {
	mu     sync.Mutex
	got    []received
	status atomic.Int32
	calls  atomic.Int32
}

func newHook(t *testing.T) (*hook, *httptest.Server) {
	t.Helper()
	h := &hook{}
	h.status.Store(http.StatusNoContent)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(data, &body)

		h.mu.Lock()
		h.got = append(h.got, received{headers: r.Header.Clone(), body: body})
		h.mu.Unlock()
		w.WriteHeader(int(h.status.Load()))
	}))
	t.Cleanup(srv.Close)
	return h, srv
}

func (h *hook) received() []received {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]received(nil), h.got...)
}

func event(kind action.Kind, id string) session.Event {
	return session.Event{
		SessionID: "s1",
		Event: action.Event{
			EntryID:   "evt_1",
			ID:        id,
			Kind:      kind,
			Target:    kind,
			Payload:   map[string]value.Value{"value": value.String("ada")},
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) RecordDelivery(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestNewValidatesURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://x", "not a url", "http://"} {
		_, err := New(Config{URL: raw})
		assert.Error(t, err, raw)
	}
}

func TestDeliver(t *testing.T) {
	h, srv := newHook(t)
	rec := &recorder{}
	f, err := New(Config{URL: srv.URL}, WithRecorder(rec), WithDeliveryIDFunc(func() string { return "del-1" }))
	require.NoError(t, err)

	require.NoError(t, f.Deliver(context.Background(), event(action.KindAction, "login")))

	got := h.received()
	require.Len(t, got, 1)
	assert.Equal(t, "del-1", got[0].headers.Get(HeaderDeliveryID))
	assert.Equal(t, "action", got[0].headers.Get(HeaderEventKind))
	assert.Equal(t, "s1", got[0].headers.Get(HeaderSessionID))
	assert.Equal(t, "application/json", got[0].headers.Get("Content-Type"))

	body := got[0].body
	assert.Equal(t, "login", body["id"])
	assert.Equal(t, "action", body["kind"])
	assert.Equal(t, "s1", body["sessionId"])
	assert.Equal(t, map[string]interface{}{"value": "ada"}, body["payload"])

	delivered, failed, _ := f.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, []error{nil}, rec.errs)
}

func TestDeliverPropagatesCallerTrace(t *testing.T) {
	h, srv := newHook(t)
	f, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	ctx := tracing.WithTrace(context.Background(), "trc_caller", "span-1")
	require.NoError(t, f.Deliver(ctx, event(action.KindAction, "login")))

	got := h.received()
	require.Len(t, got, 1)
	traceID, spanID := tracing.Extract(got[0].headers)
	assert.Equal(t, tracing.TraceID("trc_caller"), traceID)
	assert.Equal(t, tracing.SpanID("span-1"), spanID)
}

func TestDeliverRecordsSpan(t *testing.T) {
	h, srv := newHook(t)
	core, logs := observer.New(zap.DebugLevel)
	tracer := tracing.New("test", zap.New(core))
	f, err := New(Config{URL: srv.URL}, WithTracer(tracer))
	require.NoError(t, err)

	require.NoError(t, f.Deliver(context.Background(), event(action.KindAction, "login")))
	tracer.Close()

	got := h.received()
	require.Len(t, got, 1)
	traceID, spanID := tracing.Extract(got[0].headers)
	assert.Contains(t, string(traceID), "trc_")
	assert.NotEmpty(t, spanID)

	spans := logs.FilterMessage("Span completed").AllUntimed()
	require.Len(t, spans, 1)
	fields := spans[0].ContextMap()
	assert.Equal(t, "webhook.deliver", fields["operation"])
	assert.Equal(t, string(traceID), fields["trace_id"])
	assert.Equal(t, string(spanID), fields["span_id"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])

	// A closed tracer drops further spans instead of panicking
	require.NoError(t, f.Deliver(context.Background(), event(action.KindAction, "logout")))
	assert.Len(t, h.received(), 2)
}

func TestDeliveryIDsAreUnique(t *testing.T) {
	h, srv := newHook(t)
	f, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, f.Deliver(context.Background(), event(action.KindAction, "a")))
	require.NoError(t, f.Deliver(context.Background(), event(action.KindAction, "b")))

	got := h.received()
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].headers.Get(HeaderDeliveryID))
	assert.NotEqual(t, got[0].headers.Get(HeaderDeliveryID), got[1].headers.Get(HeaderDeliveryID))
}

func TestRejectedDoesNotTripOrRetry(t *testing.T) {
	h, srv := newHook(t)
	h.status.Store(http.StatusUnprocessableEntity)
	f, err := New(Config{URL: srv.URL, RetryCount: 3})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		err := f.Deliver(context.Background(), event(action.KindAction, "login"))
		assert.ErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, int32(10), h.calls.Load())
	assert.Equal(t, resilience.StateClosed, f.BreakerState())
}

func TestServerErrorsRetryThenTrip(t *testing.T) {
	h, srv := newHook(t)
	h.status.Store(http.StatusBadGateway)

	breaker := resilience.New("test", resilience.Settings{
		Timeout:     time.Hour,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
	})
	f, err := New(Config{URL: srv.URL, RetryCount: 1}, WithBreaker(breaker))
	require.NoError(t, err)

	assert.Error(t, f.Deliver(context.Background(), event(action.KindAction, "a")))
	assert.Equal(t, int32(2), h.calls.Load(), "one retry")

	assert.Error(t, f.Deliver(context.Background(), event(action.KindAction, "b")))
	assert.Equal(t, resilience.StateOpen, f.BreakerState())

	err = f.Deliver(context.Background(), event(action.KindAction, "c"))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(4), h.calls.Load())

	_, failed, _ := f.Stats()
	assert.Equal(t, int64(3), failed)
}

func TestPublishAndRun(t *testing.T) {
	h, srv := newHook(t)
	f, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	f.Publish(event(action.KindAction, "login"))
	f.Publish(event(action.KindBlocked, "logout"))
	f.Publish(event(action.KindNavigation, "settings"))

	require.Eventually(t, func() bool { return len(h.received()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	got := h.received()
	assert.Equal(t, "login", got[0].body["id"])
	assert.Equal(t, "settings", got[1].body["id"])
}

func TestPublishDropsWhenFull(t *testing.T) {
	_, srv := newHook(t)
	f, err := New(Config{URL: srv.URL, QueueSize: 1})
	require.NoError(t, err)

	f.Publish(event(action.KindAction, "a"))
	f.Publish(event(action.KindAction, "b"))

	_, _, dropped := f.Stats()
	assert.Equal(t, int64(1), dropped)
}

func TestSessionIntegration(t *testing.T) {
	h, srv := newHook(t)
	f, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	allow := action.NewAllowList(action.Policy{Actions: []string{"login"}})
	mgr := session.NewManager(allow, session.WithConsumer(f))
	s, err := mgr.GetOrCreate("s1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	s.Action("login", nil)
	s.Action("logout", nil)

	require.Eventually(t, func() bool { return len(h.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, h.received(), 1)
}
