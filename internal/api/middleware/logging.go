// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

// RequestLogger returns a middleware that logs HTTP requests and carries the chi
// request ID into the context for handler loggers. Polled read endpoints log at
// debug level so the dashboard's timers do not flood the log.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			requestID := middleware.GetReqID(r.Context())
			r = r.WithContext(logger.ContextWithRequestID(r.Context(), requestID))

			defer func() {
				level := slog.LevelInfo
				if isPoll(r) && ww.Status() < http.StatusBadRequest {
					level = slog.LevelDebug
				}
				log.Log(r.Context(), level, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", requestID,
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func isPoll(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	switch {
	case r.URL.Path == "/api/activity", r.URL.Path == "/api/executions", r.URL.Path == "/health":
		return true
	case strings.HasPrefix(r.URL.Path, "/api/status/"):
		return true
	}
	return false
}
