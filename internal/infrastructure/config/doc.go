// Package config provides 12-factor configuration for the SDUI service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, gin mode)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting
//   - Limits: Tree validation ceilings
//   - Policy: Action and route allow-list, optionally from a YAML/TOML file
//   - Render: Development placeholders
//   - Templates: Extra template directory
//   - Sessions, Webhook, Redis: Playground sessions and event sinks
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	allow := action.NewAllowList(cfg.Policy.Policy())
//
// Environment Variables:
//   - PORT, HOST, GIN_MODE, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SDUI_MAX_DEPTH, SDUI_MAX_NODE_COUNT, SDUI_MAX_PAYLOAD_BYTES
//   - SDUI_ALLOWED_ACTIONS, SDUI_ALLOWED_ROUTES, SDUI_ALLOWED_ROUTE_PREFIXES
//   - SDUI_POLICY_FILE, SDUI_TEMPLATES_DIR, SDUI_DEV_PLACEHOLDERS
//   - SDUI_WEBHOOK_URL, SDUI_REDIS_ADDR
package config
