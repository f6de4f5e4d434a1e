// Package main is the entry point for the SDUI server.
//
// The server validates and renders server-driven UI payloads, serves the
// template catalog, and hosts playground sessions whose actions and
// navigation requests pass through the allow-list.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Optional policy file merged over SDUI_ALLOWED_* values
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -policy configs/playground-policy.yaml
//
//	# Development mode (console logs, debug level, placeholders)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
