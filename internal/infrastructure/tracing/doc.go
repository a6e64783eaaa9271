/*
Package tracing provides lightweight request tracing for the bridge.

Spans carry a trace id and a parent span id through context.Context and
are logged by a background collector when submitted. Trace context crosses
HTTP boundaries via the X-Trace-ID and X-Span-ID headers.

# Usage

	tracer := tracing.New("tribunal-bridge", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "captcha.solve")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Spans are buffered; when the buffer is full new spans are dropped with a
warning rather than blocking the caller.
*/
package tracing
