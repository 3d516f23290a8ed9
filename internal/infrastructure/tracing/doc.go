/*
Package tracing records lightweight spans for API requests and acquisition
cycles.

Spans are buffered, logged through zap and the most recent ones are kept
in memory for the /traces endpoint. Requests carrying X-Trace-ID and
X-Span-ID continue the shell's trace; the response echoes the ids.

	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
