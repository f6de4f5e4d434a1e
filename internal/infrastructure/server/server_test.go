package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sdui/internal/infrastructure/config"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/eventstore"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/forward"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.GinMode = "test"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.RateLimit.Enabled = false
	cfg.Policy.AllowedActions = []string{"login"}
	cfg.Policy.AllowedRoutes = []string{"settings"}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	s, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"root", "GET", "/", "", http.StatusOK},
		{"health", "GET", "/health", "", http.StatusOK},
		{"validate", "POST", "/v1/validate", `{"id":"1","type":"text","props":{}}`, http.StatusOK},
		{"render", "POST", "/v1/render", `[{"id":"1","type":"text","props":{"content":"hi"}}]`, http.StatusOK},
		{"render bad json", "POST", "/v1/render", `[{`, http.StatusBadRequest},
		{"components", "GET", "/v1/components", "", http.StatusOK},
		{"templates", "GET", "/v1/templates", "", http.StatusOK},
		{"template", "GET", "/v1/templates/login-form", "", http.StatusOK},
		{"template render", "GET", "/v1/templates/login-form/render?mode=dev", "", http.StatusOK},
		{"template missing", "GET", "/v1/templates/nope", "", http.StatusNotFound},
		{"policy", "GET", "/v1/policy", "", http.StatusOK},
		{"create session", "POST", "/v1/sessions", "", http.StatusCreated},
		{"list sessions", "GET", "/v1/sessions", "", http.StatusOK},
		{"allowed action", "POST", "/v1/sessions/s1/actions", `{"id":"login"}`, http.StatusAccepted},
		{"blocked action", "POST", "/v1/sessions/s1/actions", `{"id":"drop_tables"}`, http.StatusForbidden},
		{"navigate", "POST", "/v1/sessions/s1/navigate", `{"route":"settings"}`, http.StatusAccepted},
		{"events", "GET", "/v1/sessions/s1/events", "", http.StatusOK},
		{"history without redis", "GET", "/v1/sessions/s1/history", "", http.StatusServiceUnavailable},
		{"metrics", "GET", "/metrics", "", http.StatusOK},
		{"log level", "GET", "/log/level", "", http.StatusOK},
		{"set log level", "PUT", "/log/level", `{"level":"debug"}`, http.StatusOK},
		{"unknown", "GET", "/v2/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s.Handler(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := do(t, s.Handler(), "GET", "/metrics", "")
	assert.Contains(t, w.Body.String(), "sdui_http_requests_total")
	assert.Contains(t, w.Body.String(), "sdui_events_total")
}

func TestResponsesCarryTraceHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := do(t, s.Handler(), "GET", "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestDevPlaceholdersDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Render.DevPlaceholders = true
	s := newTestServer(t, cfg)

	w := do(t, s.Handler(), "POST", "/v1/render", `{"id":"1","type":"chart","props":{}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Mode     string `json:"mode"`
		Elements []struct {
			Type string `json:"type"`
		} `json:"elements"`
	}
	require.NoError(t, sonic.ConfigStd.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "development", body.Mode)
	require.Len(t, body.Elements, 1)
	assert.Equal(t, "placeholder", body.Elements[0].Type)
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxNodeCount = 2
	s := newTestServer(t, cfg)

	w := do(t, s.Handler(), "POST", "/v1/render",
		`[{"id":"1","type":"text","props":{}},{"id":"2","type":"text","props":{}},{"id":"3","type":"text","props":{}}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// built-in templates over the limit are unavailable, not fatal
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), "GET", "/v1/templates/full-example", "").Code)

	var health struct {
		Status           string   `json:"status"`
		TemplatesSkipped []string `json:"templatesSkipped"`
	}
	w = do(t, s.Handler(), "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, sonic.ConfigStd.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.TemplatesSkipped, "hello-world")
	assert.Contains(t, health.TemplatesSkipped, "full-example")
}

func TestLowDepthLimitStillStarts(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxDepth = 1
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "GET", "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "POST", "/v1/render", `{"id":"1","type":"text","props":{}}`).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), "GET", "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s.Handler(), "GET", "/", "").Code)
}

func TestNewServerErrors(t *testing.T) {
	t.Run("bad webhook url", func(t *testing.T) {
		cfg := testConfig()
		cfg.Webhook.URL = "ftp://example.com"
		_, err := NewServer(cfg, WithLogger(logging.NewNop()))
		assert.Error(t, err)
	})

	t.Run("missing templates dir", func(t *testing.T) {
		cfg := testConfig()
		cfg.Templates.Dir = t.TempDir() + "/missing"
		_, err := NewServer(cfg, WithLogger(logging.NewNop()))
		assert.ErrorContains(t, err, "failed to load templates")
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := testConfig()
		cfg.Logging.Level = "loud"
		_, err := NewServer(cfg)
		assert.Error(t, err)
	})
}

func TestRunForwardsAndMirrors(t *testing.T) {
	var (
		mu         sync.Mutex
		deliveries []forward.Delivery
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var d forward.Delivery
		if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&d); err == nil {
			mu.Lock()
			deliveries = append(deliveries, d)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Webhook.URL = hook.URL
	s := newTestServer(t, cfg, WithEventStore(eventstore.New(mr.Addr(), "", 0)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Equal(t, http.StatusAccepted, do(t, s.Handler(), "POST", "/v1/sessions/run1/actions", `{"id":"login"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(t, s.Handler(), "POST", "/v1/sessions/run1/actions", `{"id":"nope"}`).Code)

	// Webhook sees permitted events only
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(deliveries) == 1
	}, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "login", deliveries[0].ID)
	assert.Equal(t, "run1", deliveries[0].SessionID)
	mu.Unlock()

	// Mirror sees everything
	require.Eventually(t, func() bool {
		w := do(t, s.Handler(), "GET", "/v1/sessions/run1/history", "")
		if w.Code != http.StatusOK {
			return false
		}
		var body struct {
			Events []map[string]interface{} `json:"events"`
		}
		return sonic.ConfigStd.Unmarshal(w.Body.Bytes(), &body) == nil && len(body.Events) == 2
	}, 5*time.Second, 20*time.Millisecond)

	health := do(t, s.Handler(), "GET", "/health", "")
	assert.Contains(t, health.Body.String(), `"redis":"ok"`)

	// A clear issued right after a dispatch is not undone by its queued write
	for i := 0; i < 5; i++ {
		do(t, s.Handler(), "POST", "/v1/sessions/run1/actions", `{"id":"nope"}`)
	}
	assert.Equal(t, http.StatusNoContent, do(t, s.Handler(), "DELETE", "/v1/sessions/run1/events", "").Code)
	time.Sleep(100 * time.Millisecond)
	w := do(t, s.Handler(), "GET", "/v1/sessions/run1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Events []map[string]interface{} `json:"events"`
	}
	require.NoError(t, sonic.ConfigStd.Unmarshal(w.Body.Bytes(), &history))
	assert.Empty(t, history.Events)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := NewServer(testConfig(), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
