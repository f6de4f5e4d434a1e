// Package server provides HTTP server setup and initialization for the
// SDUI service.
//
// This package wires every component from configuration:
//   - Tree validator and the production/development render registries
//   - Template catalog (embedded plus SDUI_TEMPLATES_DIR)
//   - Allow-list and the session manager
//   - Optional webhook forwarder and Redis event mirror
//   - Middleware stack (recovery, tracing, metrics, CORS, rate limiting)
//   - HTTP and WebSocket routes
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger, metrics and tracer
//  3. Build the validator, registries and catalog
//  4. Attach event sinks to the session manager
//  5. Setup HTTP routes and middleware
//  6. Run: start sinks, serve until the context ends
//  7. Close: flush tracer, close the event store, sync the logger
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
