package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/template"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sdui/internal/shared/value"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	outboundBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware owns origin policy
	},
}

// Message is a client to server frame
type Message struct {
	Type     string                 `json:"type"`
	Payload  json.RawMessage        `json:"payload,omitempty"`
	Template string                 `json:"template,omitempty"`
	Mode     string                 `json:"mode,omitempty"`
	NodeID   string                 `json:"nodeId,omitempty"`
	Value    value.Value            `json:"value"`
	ID       string                 `json:"id,omitempty"`
	Route    string                 `json:"route,omitempty"`
	Params   map[string]value.Value `json:"params,omitempty"`

	// hasValue is set when the frame carries a "value" key, null included
	hasValue bool
}

// Deps are the components a stream needs. Metrics is optional.
type Deps struct {
	Validator   *tree.Validator
	Production  *render.Registry
	Development *render.Registry
	DefaultMode render.Mode
	Catalog     *template.Catalog
	Sessions    *session.Manager
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
}

// Handler manages WebSocket connections
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(deps Deps) *Handler {
	if deps.Validator == nil {
		deps.Validator = tree.DefaultValidator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{deps: deps, logger: deps.Logger}
}

// HandleConnection upgrades GET /sessions/:id/stream. The session is
// created on demand.
func (h *Handler) HandleConnection(c *gin.Context) {
	s, err := h.deps.Sessions.GetOrCreate(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "invalid_session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	if h.deps.Metrics != nil {
		done := h.deps.Metrics.WSConnected()
		defer done()
	}

	st := newStream(h, conn, s)
	st.run()
}

// stream is one connection bound to one session. Only the writer goroutine
// touches the socket for writes.
type stream struct {
	h    *Handler
	conn *websocket.Conn
	sess *session.Session
	log  *zap.Logger

	out  chan interface{}
	done chan struct{}
	stop sync.Once

	// elements from the last render, read only by the reader goroutine
	elements []*render.Element
}

func newStream(h *Handler, conn *websocket.Conn, s *session.Session) *stream {
	return &stream{
		h:    h,
		conn: conn,
		sess: s,
		log:  h.logger.With(zap.String("session_id", s.ID())),
		out:  make(chan interface{}, outboundBuffer),
		done: make(chan struct{}),
	}
}

func (st *stream) close() {
	st.stop.Do(func() { close(st.done) })
}

func (st *stream) run() {
	events, unsubscribe := st.sess.Subscribe(outboundBuffer)
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		st.writeLoop(events)
	}()

	st.send(gin.H{
		"type":      "system",
		"sessionId": st.sess.ID(),
		"policy":    st.sess.AllowList().Policy(),
	})
	st.readLoop()

	st.close()
	wg.Wait()
	st.conn.Close()
	st.log.Debug("Stream closed")
}

func (st *stream) readLoop() {
	limit := int64(st.h.deps.Validator.Limits().MaxPayloadBytes) + 4096
	st.conn.SetReadLimit(limit)
	st.conn.SetReadDeadline(time.Now().Add(pongWait))
	st.conn.SetPongHandler(func(string) error {
		return st.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := st.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				st.log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		select {
		case <-st.done:
			return
		default:
		}

		var msg Message
		if err := sonic.ConfigStd.Unmarshal(data, &msg); err != nil {
			st.sendError("malformed message")
			continue
		}
		if msg.Type == "change" {
			_, err := sonic.Get(data, "value")
			msg.hasValue = err == nil
		}
		st.handle(msg)
	}
}

func (st *stream) writeLoop(events <-chan session.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-st.done:
			st.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case e, ok := <-events:
			if !ok {
				// session deleted or evicted
				st.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				st.close()
				st.conn.Close()
				return
			}
			if err := st.writeJSON(gin.H{"type": "event", "event": e}); err != nil {
				st.close()
				return
			}
		case msg := <-st.out:
			if err := st.writeJSON(msg); err != nil {
				st.close()
				return
			}
		case <-ticker.C:
			if err := st.write(websocket.PingMessage, nil); err != nil {
				st.close()
				return
			}
		}
	}
}

func (st *stream) writeJSON(v interface{}) error {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		st.log.Error("Failed to encode frame", zap.Error(err))
		return nil
	}
	return st.write(websocket.TextMessage, data)
}

func (st *stream) write(kind int, data []byte) error {
	st.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return st.conn.WriteMessage(kind, data)
}

// send queues a frame for the writer
func (st *stream) send(v interface{}) {
	select {
	case st.out <- v:
	case <-st.done:
	}
}

func (st *stream) sendError(msg string) {
	st.send(gin.H{"type": "error", "message": msg})
}

func (st *stream) handle(msg Message) {
	switch msg.Type {
	case "ping":
		st.send(gin.H{"type": "pong", "timestamp": time.Now().Unix()})
	case "render":
		st.handleRender(msg)
	case "template":
		st.handleTemplate(msg)
	case "tap":
		st.handleTap(msg)
	case "change":
		st.handleChange(msg)
	case "action":
		if msg.ID == "" {
			st.sendError("id is required")
			return
		}
		st.ack(!st.sess.Action(msg.ID, msg.Params).Blocked())
	case "navigate":
		if msg.Route == "" {
			st.sendError("route is required")
			return
		}
		st.ack(!st.sess.Navigate(msg.Route, msg.Params).Blocked())
	default:
		st.sendError("unknown message type")
	}
}

func (st *stream) mode(raw string) (render.Mode, error) {
	if raw == "" {
		return st.h.deps.DefaultMode, nil
	}
	return render.ParseMode(raw)
}

func (st *stream) registry(m render.Mode) *render.Registry {
	if m == render.ModeDevelopment && st.h.deps.Development != nil {
		return st.h.deps.Development
	}
	return st.h.deps.Production
}

func (st *stream) handleRender(msg Message) {
	if len(msg.Payload) == 0 {
		st.sendError("payload is required")
		return
	}
	data := []byte(msg.Payload)
	// a JSON string carries the payload text itself
	var text string
	if msg.Payload[0] == '"' && sonic.ConfigStd.Unmarshal(msg.Payload, &text) == nil {
		data = []byte(text)
	}

	t, err := st.h.deps.Validator.Load(data)
	if err != nil {
		if st.h.deps.Metrics != nil {
			st.h.deps.Metrics.RecordRejection(err)
		}
		st.send(gin.H{"type": "rejected", "reason": tree.Reason(err), "message": err.Error()})
		return
	}
	st.rendered(t, msg.Mode)
}

func (st *stream) handleTemplate(msg Message) {
	t, err := st.h.deps.Catalog.Tree(msg.Template)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			st.sendError(fmt.Sprintf("template not found: %s", msg.Template))
			return
		}
		st.sendError(err.Error())
		return
	}
	st.rendered(t, msg.Mode)
}

func (st *stream) rendered(t *tree.Tree, rawMode string) {
	m, err := st.mode(rawMode)
	if err != nil {
		st.sendError(err.Error())
		return
	}
	if st.h.deps.Metrics != nil {
		st.h.deps.Metrics.RecordTree(t)
	}
	st.elements = st.registry(m).Render(t, st.sess)
	st.send(gin.H{
		"type":      "rendered",
		"mode":      m.String(),
		"nodeCount": t.NodeCount(),
		"depth":     t.Depth(),
		"elements":  st.elements,
	})
}

func (st *stream) find(nodeID string) *render.Element {
	for _, el := range st.elements {
		if found := el.Find(nodeID); found != nil {
			return found
		}
	}
	return nil
}

func (st *stream) handleTap(msg Message) {
	el := st.find(msg.NodeID)
	if el == nil {
		st.sendError(fmt.Sprintf("no rendered node %q", msg.NodeID))
		return
	}
	st.ack(el.Tap())
}

func (st *stream) handleChange(msg Message) {
	el := st.find(msg.NodeID)
	if el == nil {
		st.sendError(fmt.Sprintf("no rendered node %q", msg.NodeID))
		return
	}
	if !msg.hasValue {
		st.sendError("value is required")
		return
	}
	st.ack(el.Change(msg.Value))
}

func (st *stream) ack(ok bool) {
	st.send(gin.H{"type": "ack", "ok": ok})
}
