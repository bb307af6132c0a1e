package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"everwatt-battery-optimizer/internal/xlog"
)

// Logger records one structured log line per request via xlog, the way
// gin.Logger() records one text line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		xlog.Ctx(c.Request.Context()).Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
