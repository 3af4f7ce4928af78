package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinOptions names the request attributes the access log correlates on
type GinOptions struct {
	// RequestIDKey is the gin context key the request id middleware sets
	RequestIDKey string
	// CompanyHeader carries the acting company; empty disables it
	CompanyHeader string
	// QuietPaths are logged at debug when they succeed, e.g. /health
	QuietPaths []string
}

// GinMiddleware writes one access record per request and attaches a request
// scoped logger to the request context for FromContext and For.
func GinMiddleware(base *zap.Logger, opts GinOptions) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(opts.QuietPaths))
	for _, p := range opts.QuietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		log := base.With(zap.String("method", c.Request.Method), zap.String("route", c.FullPath()))

		if opts.RequestIDKey != "" {
			if id := c.GetString(opts.RequestIDKey); id != "" {
				ctx, log = WithRequestID(ctx, log, id)
			}
		}
		if opts.CompanyHeader != "" {
			if company := c.GetHeader(opts.CompanyHeader); company != "" {
				ctx, log = WithCompanyID(ctx, log, company)
			}
		}
		c.Request = c.Request.WithContext(WithContext(ctx, log))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		_, isQuiet := quiet[c.Request.URL.Path]
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		case isQuiet:
			log.Debug("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope and logs the stack
// with the request's correlation fields.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			For(c.Request.Context(), base).Error("panic recovered",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "ERR_INTERNAL", "message": "Internal server error"},
			})
		}()
		c.Next()
	}
}
