package http

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/template"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

var (
	errBadRequest      = errors.New("bad request")
	errSessionNotFound = errors.New("session not found")
	errUnavailable     = errors.New("not configured")
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, tree.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case tree.IsStructural(err):
		return http.StatusBadRequest
	case errors.Is(err, tree.ErrMaxDepthExceeded), errors.Is(err, tree.ErrMaxNodeCountExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, template.ErrNotFound), errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidID), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errUnsupportedEncoding):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respond writes v as JSON with sonic
func respond(c *gin.Context, code int, v interface{}) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		code = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	c.Data(code, "application/json; charset=utf-8", data)
}

// fail aborts with err's mapped status
func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	reason := tree.Reason(err)
	if reason == "unknown" {
		reason = ""
	}
	c.Abort()
	respond(c, code, errorBody{Error: err.Error(), Reason: reason})
}
