// Package logging provides structured logging utilities.
package logging

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewLogger creates a new zerolog logger configured for the service.
func NewLogger(serviceName string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// NewPrettyLogger creates a logger with pretty console output (for development).
func NewPrettyLogger(serviceName string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(consoleWriter).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// RequestLogger returns a Gin middleware for HTTP request logging.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		statusCode := c.Writer.Status()
		requestID := c.GetHeader("X-Request-ID")

		event := logger.Info()
		if statusCode >= 400 && statusCode < 500 {
			event = logger.Warn()
		} else if statusCode >= 500 {
			event = logger.Error()
		}

		event.
			Str("type", "http_request").
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Int("status", statusCode).
			Str("clientIp", clientIP).
			Dur("latency", latency).
			Int("bodySize", c.Writer.Size()).
			Str("userAgent", c.Request.UserAgent())

		if requestID != "" {
			event.Str("requestId", requestID)
		}

		if len(c.Errors) > 0 {
			event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// LoggerFromContext extracts the logger from context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}

// LockLogger creates a logger scoped to a single resource acquisition attempt.
func LockLogger(logger zerolog.Logger, resource string, token string) zerolog.Logger {
	return logger.With().
		Str("resource", resource).
		Str("token", token).
		Logger()
}

// HTTPMiddleware returns a standard http.Handler middleware for logging.
func HTTPMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		latency := time.Since(start)

		event := logger.Info()
		if rw.statusCode >= 400 && rw.statusCode < 500 {
			event = logger.Warn()
		} else if rw.statusCode >= 500 {
			event = logger.Error()
		}

		event.
			Str("type", "http_request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", rw.statusCode).
			Str("remoteAddr", r.RemoteAddr).
			Dur("latency", latency).
			Str("userAgent", r.UserAgent()).
			Msg("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
