/*
Package tracing provides lightweight spans for debugging coordinator runs.

# Overview

Each coordinator execution is one trace; every rank's entry point runs inside
its own span, tagged with the rank, so a slow or failing rank stands out in the
logs. The HTTP surface uses the same tracer through HTTPMiddleware.

# Usage

	tracer := tracing.New("threadcomm", logger)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "rank.run")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("rank", "2")

# Performance

Spans are buffered (1000) and logged by a single collector goroutine. When the
buffer is full new spans are dropped with a warning rather than blocking the
rank that produced them.
*/
package tracing
