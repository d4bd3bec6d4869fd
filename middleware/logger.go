package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/CristhianMazon/ecommerce-api-main/pkg/ctxmanage"
	"github.com/CristhianMazon/ecommerce-api-main/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger assigns a trace id to every request and logs the request line and
// its outcome with that id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := uuid.NewString()
		ctx := ctxmanage.WithTraceId(c.Request.Context(), traceId)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		slog.Info("request started", slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method), slog.String("URL", c.Request.URL.Path))

		c.Next()

		status := c.Writer.Status()
		logFn := slog.Info
		if status >= http.StatusInternalServerError {
			logFn = slog.Error
		}
		logFn("request completed", slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method), slog.String("URL", c.Request.URL.Path),
			slog.Int("Status", status), slog.Duration("Duration", time.Since(start)))
	}
}
