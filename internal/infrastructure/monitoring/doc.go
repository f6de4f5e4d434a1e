/*
Package monitoring provides Prometheus metrics for the SDUI service.

# Overview

Metrics live on a private registry per instance, so tests and multiple
servers in one process never collide on registration.

# Features

- HTTP request metrics (latency, throughput, size) via gin middleware
- Validator outcomes by rejection reason
- Rendered elements and unknown components (render.Observer)
- Dispatched and blocked events (session.Sink)
- Event sink delivery outcomes, sessions, websocket streams

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	reg := render.NewRegistry(render.WithObserver(metrics))
	mgr := session.NewManager(allow, session.WithObserver(metrics))
*/
package monitoring
