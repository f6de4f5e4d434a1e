package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/template"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/eventstore"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Deps are the components the handlers serve. Metrics, Store and Mirror
// are optional. When Mirror is set, clears go through its queue.
type Deps struct {
	Validator   *tree.Validator
	Production  *render.Registry
	Development *render.Registry
	DefaultMode render.Mode
	Catalog     *template.Catalog
	Sessions    *session.Manager
	Metrics     *monitoring.Metrics
	Store       *eventstore.Store
	Mirror      *eventstore.Mirror
	Logger      *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	deps    Deps
	started time.Time
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Validator == nil {
		deps.Validator = tree.DefaultValidator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handlers{deps: deps, started: time.Now(), logger: deps.Logger}
}

func (h *Handlers) registry(mode render.Mode) *render.Registry {
	if mode == render.ModeDevelopment && h.deps.Development != nil {
		return h.deps.Development
	}
	return h.deps.Production
}

func (h *Handlers) mode(c *gin.Context) (render.Mode, error) {
	raw, ok := c.GetQuery("mode")
	if !ok {
		return h.deps.DefaultMode, nil
	}
	m, err := render.ParseMode(raw)
	if err != nil {
		return m, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return m, nil
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"status":  "online",
		"service": "sdui",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	reg := h.registry(render.ModeProduction)
	body := gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"components": gin.H{
			"builtin": len(reg.BuiltinTypes()),
			"custom":  len(reg.CustomTypes()),
		},
		"limits":    h.deps.Validator.Limits(),
		"templates": h.deps.Catalog.Len(),
		"sessions":  h.deps.Sessions.Count(),
	}
	if skipped := h.deps.Catalog.Skipped(); len(skipped) > 0 {
		body["templatesSkipped"] = skipped
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.SetSessionsActive(h.deps.Sessions.Count())
		body["metrics"] = h.deps.Metrics.Snapshot()
	}
	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := h.deps.Store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["redis"] = err.Error()
		} else {
			body["redis"] = "ok"
		}
	}
	respond(c, http.StatusOK, body)
}

// Validate reports on a payload without rendering it. Always 200 once the
// body is read; the report carries the verdict.
func (h *Handlers) Validate(c *gin.Context) {
	data, err := readPayload(c, h.deps.Validator.Limits().MaxPayloadBytes)
	if err != nil {
		fail(c, err)
		return
	}

	report := h.deps.Validator.Inspect(data)
	if errors.Is(report.Err, tree.ErrPayloadTooLarge) {
		report.PayloadBytes = declaredSize(c, report.PayloadBytes)
		report.Error = withDeclaredSize(c, report.Err).Error()
	}
	if h.deps.Metrics != nil && report.Err != nil {
		h.deps.Metrics.RecordRejection(report.Err)
	}
	respond(c, http.StatusOK, report)
}

// renderResponse is the body of every render endpoint
type renderResponse struct {
	Mode      string            `json:"mode"`
	NodeCount int               `json:"nodeCount"`
	Depth     int               `json:"depth"`
	Elements  []*render.Element `json:"elements"`
}

func (h *Handlers) render(c *gin.Context, t *tree.Tree, handler action.Handler) {
	mode, err := h.mode(c)
	if err != nil {
		fail(c, err)
		return
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordTree(t)
	}
	respond(c, http.StatusOK, renderResponse{
		Mode:      mode.String(),
		NodeCount: t.NodeCount(),
		Depth:     t.Depth(),
		Elements:  h.registry(mode).Render(t, handler),
	})
}

// Render validates and renders a payload
func (h *Handlers) Render(c *gin.Context) {
	data, err := readPayload(c, h.deps.Validator.Limits().MaxPayloadBytes)
	if err != nil {
		fail(c, err)
		return
	}

	t, err := h.deps.Validator.Load(data)
	if err != nil {
		err = withDeclaredSize(c, err)
		if h.deps.Metrics != nil {
			h.deps.Metrics.RecordRejection(err)
		}
		h.logger.Debug("Rejected payload", zap.String("reason", tree.Reason(err)), zap.Error(err))
		fail(c, err)
		return
	}
	h.render(c, t, nil)
}

// Components lists renderable node types
func (h *Handlers) Components(c *gin.Context) {
	reg := h.registry(render.ModeProduction)
	respond(c, http.StatusOK, gin.H{
		"builtin": reg.BuiltinTypes(),
		"custom":  reg.CustomTypes(),
	})
}

// ListTemplates lists template summaries, optionally by category
func (h *Handlers) ListTemplates(c *gin.Context) {
	category := template.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		fail(c, fmt.Errorf("%w: unknown category %q", errBadRequest, category))
		return
	}

	list := h.deps.Catalog.List(category)
	summaries := make([]template.Template, len(list))
	for i, t := range list {
		summaries[i] = t.Summary()
	}
	respond(c, http.StatusOK, gin.H{
		"categories": template.Categories(),
		"templates":  summaries,
	})
}

// GetTemplate returns one template with its payload
func (h *Handlers) GetTemplate(c *gin.Context) {
	t, err := h.deps.Catalog.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, t)
}

// RenderTemplate renders a catalog template
func (h *Handlers) RenderTemplate(c *gin.Context) {
	t, err := h.deps.Catalog.Tree(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.render(c, t, nil)
}

// actionRequest is the body of POST /sessions/:id/actions
type actionRequest struct {
	ID      string                 `json:"id"`
	Payload map[string]value.Value `json:"payload"`
}

// navigateRequest is the body of POST /sessions/:id/navigate
type navigateRequest struct {
	Route  string                 `json:"route"`
	Params map[string]value.Value `json:"params"`
}

// eventResponse reports one dispatch. Blocked events answer 403 but are
// still logged.
type eventResponse struct {
	Allowed bool         `json:"allowed"`
	Event   action.Event `json:"event"`
}

func (h *Handlers) decode(c *gin.Context, v interface{}) error {
	data, err := readPayload(c, h.deps.Validator.Limits().MaxPayloadBytes)
	if err != nil {
		return err
	}
	if len(data) > h.deps.Validator.Limits().MaxPayloadBytes {
		return &tree.PayloadTooLargeError{Size: declaredSize(c, len(data)), Limit: h.deps.Validator.Limits().MaxPayloadBytes}
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func dispatched(c *gin.Context, e action.Event) {
	code := http.StatusAccepted
	if e.Blocked() {
		code = http.StatusForbidden
	}
	respond(c, code, eventResponse{Allowed: !e.Blocked(), Event: e})
}

// CreateSession starts a session under a server-minted id
func (h *Handlers) CreateSession(c *gin.Context) {
	s := h.deps.Sessions.Create()
	c.Header("Location", "/v1/sessions/"+s.ID())
	respond(c, http.StatusCreated, s.Info())
}

// ListSessions reports every live session
func (h *Handlers) ListSessions(c *gin.Context) {
	infos := make([]session.Info, 0, h.deps.Sessions.Count())
	for _, id := range h.deps.Sessions.IDs() {
		if s, ok := h.deps.Sessions.Get(id); ok {
			infos = append(infos, s.Info())
		}
	}
	respond(c, http.StatusOK, gin.H{"sessions": infos, "count": len(infos)})
}

// SessionAction dispatches an action in a session, creating it on demand
func (h *Handlers) SessionAction(c *gin.Context) {
	var req actionRequest
	if err := h.decode(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.ID == "" {
		fail(c, fmt.Errorf("%w: id is required", errBadRequest))
		return
	}
	s, err := h.deps.Sessions.GetOrCreate(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	dispatched(c, s.Action(req.ID, req.Payload))
}

// SessionNavigate dispatches a navigation request in a session
func (h *Handlers) SessionNavigate(c *gin.Context) {
	var req navigateRequest
	if err := h.decode(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Route == "" {
		fail(c, fmt.Errorf("%w: route is required", errBadRequest))
		return
	}
	s, err := h.deps.Sessions.GetOrCreate(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	dispatched(c, s.Navigate(req.Route, req.Params))
}

func (h *Handlers) session(c *gin.Context) (*session.Session, error) {
	id := c.Param("id")
	if err := session.ValidateID(id); err != nil {
		return nil, err
	}
	s, ok := h.deps.Sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return s, nil
}

// SessionEvents lists the session's event log. order=recent lists newest
// first.
func (h *Handlers) SessionEvents(c *gin.Context) {
	s, err := h.session(c)
	if err != nil {
		fail(c, err)
		return
	}
	info := s.Info()
	respond(c, http.StatusOK, gin.H{
		"sessionId": s.ID(),
		"capacity":  info.Capacity,
		"events":    s.Events(c.Query("order") == "recent"),
	})
}

// ClearSessionEvents empties the session's log and its mirror
func (h *Handlers) ClearSessionEvents(c *gin.Context) {
	s, err := h.session(c)
	if err != nil {
		fail(c, err)
		return
	}
	s.ClearEvents()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	var clearErr error
	switch {
	case h.deps.Mirror != nil:
		clearErr = h.deps.Mirror.Clear(ctx, s.ID())
	case h.deps.Store != nil:
		clearErr = h.deps.Store.Clear(ctx, s.ID())
	}
	if clearErr != nil {
		h.logger.Warn("Failed to clear mirrored events", zap.String("session_id", s.ID()), zap.Error(clearErr))
	}
	c.Status(http.StatusNoContent)
}

// SessionHistory reads the Redis mirror, which outlives the in-memory
// session
func (h *Handlers) SessionHistory(c *gin.Context) {
	id := c.Param("id")
	if err := session.ValidateID(id); err != nil {
		fail(c, err)
		return
	}
	if h.deps.Store == nil {
		fail(c, fmt.Errorf("event mirror %w", errUnavailable))
		return
	}

	var (
		events []session.Event
		err    error
	)
	if c.Query("order") == "recent" {
		events, err = h.deps.Store.Recent(c.Request.Context(), id)
	} else {
		events, err = h.deps.Store.Entries(c.Request.Context(), id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"sessionId": id, "events": events})
}

// DeleteSession drops a session
func (h *Handlers) DeleteSession(c *gin.Context) {
	if !h.deps.Sessions.Delete(c.Param("id")) {
		fail(c, fmt.Errorf("%w: %s", errSessionNotFound, c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

// SessionPolicy returns the shared allow-list
func (h *Handlers) SessionPolicy(c *gin.Context) {
	respond(c, http.StatusOK, h.deps.Sessions.AllowList().Policy())
}
