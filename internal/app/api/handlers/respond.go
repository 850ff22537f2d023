package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paymint/paymint/pkg/logctx"
	"github.com/paymint/paymint/pkg/response"
)

// writeError maps err onto the response envelope. Server-side failures are
// logged with the request logger; their text is not returned.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	_ = c.Error(err)
	status, body := response.FromError(err)
	if status >= http.StatusInternalServerError {
		logctx.FromGin(c, log).Errorw("request failed", "status", status, "error", err)
	}
	c.JSON(status, body)
}

// baseURL prefers the configured public origin, falling back to the
// forwarded scheme and the request host.
func baseURL(c *gin.Context, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = strings.TrimSpace(strings.SplitN(p, ",", 2)[0])
	}
	return scheme + "://" + c.Request.Host
}
