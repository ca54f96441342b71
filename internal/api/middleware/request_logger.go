package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger returns a middleware that logs each request and stores a
// request-scoped logger in the context.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			reqLogger := logger.With().Str("request_id", reqID).Logger()
			r = r.WithContext(reqLogger.WithContext(r.Context()))

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			evt := reqLogger.Info()
			if ww.status >= http.StatusInternalServerError {
				evt = reqLogger.Error()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Str("api_key_id", GetKeyID(r.Context())).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
