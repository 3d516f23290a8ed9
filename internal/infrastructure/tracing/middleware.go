package tracing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/casdk/internal/domain/acquisition"
)

// HTTPMiddleware traces every request, continuing traces from the shell.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if traceID := c.GetHeader(TraceHeader); traceID != "" {
			ctx = context.WithValue(ctx, traceIDKey, TraceID(traceID))
		}
		if parentID := c.GetHeader(SpanHeader); parentID != "" {
			ctx = context.WithValue(ctx, spanIDKey, SpanID(parentID))
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.Status = c.Writer.Status()
		span.SetTag("http.status", strconv.Itoa(span.Status))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}

// CycleRecorder turns acquisition reports into spans. Install it with
// acquisition.OnCycle.
func CycleRecorder(tracer *Tracer) func(acquisition.Report) {
	return func(r acquisition.Report) {
		span := &Span{
			TraceID:   TraceID(r.ID),
			SpanID:    SpanID(r.ID),
			Name:      "acquisition.cycle",
			Service:   tracer.service,
			StartTime: r.StartedAt,
			Duration:  r.Duration,
		}
		span.SetTag("loaded", strconv.Itoa(r.Loaded))
		span.SetTag("to_load", strconv.Itoa(r.ToLoad))
		if r.Failed > 0 {
			span.Error = fmt.Sprintf("%d of %d tables failed", r.Failed, r.ToLoad)
		}
		tracer.Submit(span)
	}
}
