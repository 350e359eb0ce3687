package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps each request in a span via otelgin, then tags the
// transport and message id once the handler has populated them via
// gin.Context values (set by the webhook handlers right after parsing).
// When tracing is disabled, observability.Init installs no provider and
// otel's default no-op TracerProvider keeps this middleware cheap.
func Tracing() gin.HandlerFunc {
	otelHandler := otelgin.Middleware("chatbot-leads-startfranchise")
	return func(c *gin.Context) {
		otelHandler(c)

		span := trace.SpanFromContext(c.Request.Context())
		if transport, ok := c.Get("transport"); ok {
			span.SetAttributes(attribute.String("transport", transport.(string)))
		}
		if messageID, ok := c.Get("message_id"); ok {
			span.SetAttributes(attribute.String("message_id", messageID.(string)))
		}
	}
}
