package http

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

var errUnsupportedEncoding = errors.New("unsupported content encoding")

// readPayload reads the request body, decompressing gzip or zstd, and stops
// one byte past limit so oversize payloads are detected without buffering
// them whole. The size check itself belongs to the validator.
func readPayload(c *gin.Context, limit int) ([]byte, error) {
	body := c.Request.Body
	if body == nil {
		return nil, nil
	}

	var r io.Reader = body
	switch enc := contentEncoding(c); enc {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip body: %w", errBadRequest, err)
		}
		defer gz.Close()
		r = gz
	case "zstd":
		zr, err := zstd.NewReader(body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd body: %w", errBadRequest, err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEncoding, enc)
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", errBadRequest, err)
	}
	return data, nil
}

func contentEncoding(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
}

// declaredSize is the size to report for a body cut off at limit+1 bytes:
// the Content-Length when the body was sent unencoded, otherwise what was read.
func declaredSize(c *gin.Context, read int) int {
	if enc := contentEncoding(c); enc != "" && enc != "identity" {
		return read
	}
	if n := c.Request.ContentLength; n > int64(read) {
		return int(n)
	}
	return read
}

// withDeclaredSize rewrites a PayloadTooLargeError in err to carry the
// declared body size.
func withDeclaredSize(c *gin.Context, err error) error {
	var tooLarge *tree.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		tooLarge.Size = declaredSize(c, tooLarge.Size)
	}
	return err
}
