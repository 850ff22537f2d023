package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/tool"
)

const RequestIDHeader = "X-Request-ID"

// TraceMiddleware reads X-Request-ID if provided by the client, otherwise
// generates one, and stores it on both gin.Context and the request context.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(RequestIDHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = tool.GenerateUUIDV7()
		}
		c.Set(logctx.GinTraceIDKey, traceID)
		c.Request = c.Request.WithContext(logctx.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}
