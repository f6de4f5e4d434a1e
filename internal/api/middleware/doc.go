// Package middleware provides gin middleware shared by the HTTP API:
// CORS and per-IP rate limiting.
package middleware
