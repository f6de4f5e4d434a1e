package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

func TestInstancesDoNotCollide(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ElementRendered("text")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ElementsRendered.WithLabelValues("text")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ElementsRendered.WithLabelValues("text")))
}

func TestRenderObserver(t *testing.T) {
	m := NewMetrics()
	reg := render.NewRegistry(render.WithObserver(m), render.WithMode(render.ModeDevelopment))

	tr, err := tree.DefaultValidator().Load([]byte(`[
		{"id": "1", "type": "text", "props": {"content": "hi"}},
		{"id": "2", "type": "carousel", "props": {}}
	]`))
	require.NoError(t, err)
	reg.Render(tr, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ElementsRendered.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentsNotFound.WithLabelValues("carousel")))
}

func TestTreeAndRejection(t *testing.T) {
	m := NewMetrics()
	tr, err := tree.DefaultValidator().Load([]byte(`{"id": "1", "type": "text", "props": {}}`))
	require.NoError(t, err)

	m.RecordTree(tr)
	m.RecordRejection(tree.ErrInvalidJSON)
	m.RecordRejection(&tree.MaxDepthExceededError{Limit: 20, Depth: 21})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreesValidated.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreesValidated.WithLabelValues("invalid_json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreesValidated.WithLabelValues("max_depth_exceeded")))
	assert.Equal(t, int64(1), m.Snapshot().TreesRendered)
}

func TestSessionSink(t *testing.T) {
	m := NewMetrics()
	allow := action.NewAllowList(action.Policy{Actions: []string{"login"}})
	mgr := session.NewManager(allow, session.WithObserver(m))
	s, err := mgr.GetOrCreate("metrics")
	require.NoError(t, err)

	s.Action("login", nil)
	s.Action("logout", nil)
	s.Navigate("admin", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("action", "action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("blocked", "action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("blocked", "navigation")))
	assert.Equal(t, int64(2), m.Snapshot().EventsBlocked)
}

func TestDeliveriesAndGauges(t *testing.T) {
	m := NewMetrics()
	m.RecordDelivery("webhook", nil)
	m.RecordDelivery("webhook", errors.New("boom"))
	m.SetSessionsActive(3)
	done := m.WSConnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkDeliveries.WithLabelValues("webhook", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WSConnections))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/v1/sessions/:id/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/events", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/v1/sessions/:id/events", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "sdui_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
