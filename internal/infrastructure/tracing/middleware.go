package tracing

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/capgate/internal/shared/id"
)

// HTTPMiddleware opens a span per request and echoes the trace headers
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// malformed inbound ids start a fresh trace
		if traceID := c.GetHeader(TraceHeader); id.IsValid(traceID) {
			var parent id.SpanID
			if spanID := c.GetHeader(SpanHeader); id.IsValid(spanID) {
				parent = id.SpanID(spanID)
			}
			ctx = WithRemoteParent(ctx, id.TraceID(traceID), parent)
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, span.TraceID.String())
		c.Header(SpanHeader, span.SpanID.String())

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last().Err)
		}
		span.Finish()
		tracer.Submit(span)
	}
}
