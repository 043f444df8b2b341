package api

import (
	"strings"
	"time"

	"resort/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// requestID reuses the caller's id when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(logger *zerolog.Logger) gin.HandlerFunc {
	base := logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncHTTP(c.Request.Method + " " + route)

		ev := base.Info()
		switch {
		case c.Writer.Status() >= 500:
			ev = base.Error()
			if err := c.Errors.Last(); err != nil {
				ev = ev.Err(err.Err)
			}
		case c.Writer.Status() >= 400:
			ev = base.Warn()
		}
		ev.Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("remote", c.ClientIP()).
			Str("client", c.GetString(ctxClientName)).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
