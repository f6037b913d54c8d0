package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/builder-dashboard/internal/api/handlers"
)

// Recovery returns a middleware that recovers from panics, logs them and answers
// with a JSON internal error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					logger.Error("panic recovered",
						"error", rec,
						"stack_trace", string(debug.Stack()),
						"request_id", middleware.GetReqID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					handlers.WriteInternalError(w, "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
