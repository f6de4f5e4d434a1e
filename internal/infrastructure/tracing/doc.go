/*
Package tracing provides lightweight request tracing.

# Overview

Every HTTP request gets a span. Trace ids arrive in X-Trace-ID and are
carried through the request context. Webhook deliveries run outside any
request, so each gets a span of its own and sends it in the same headers.

# Usage

	tracer := tracing.New("sdui", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	// outbound
	tracing.Inject(ctx, req.Header)

# Trace Format

- X-Trace-ID: identifier for the entire request flow
- X-Span-ID: identifier for the current operation

Finished spans are buffered (1000) and logged by a background collector;
a full buffer drops spans rather than slow requests.
*/
package tracing
