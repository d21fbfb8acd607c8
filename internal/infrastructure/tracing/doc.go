/*
Package tracing provides lightweight request tracing for the gateway.

# Overview

Each HTTP request gets a span; the dispatcher opens a child span per
dispatched operation, tagged with service and operation. Trace context
arrives and leaves through the X-Trace-ID / X-Span-ID headers. Finished
spans are logged through zap by a buffered background collector.

# Usage

	tracer := tracing.New("gateway", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "dispatch")
	span.SetTag("service", "postgres")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
