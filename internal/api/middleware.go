package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/sift/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
)

const (
	SessionHeader = "X-Session-ID"
	TraceHeader   = "X-Request-ID"

	sessionPrefix = "sess_"
)

// NewSessionID returns a fresh session key.
func NewSessionID() string {
	return sessionPrefix + ulid.Make().String()
}

// withSession reads the session key from the request header, generating one
// when absent, and echoes it on the response.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			id = NewSessionID()
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithSessionID(r.Context(), id)))
	})
}

func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(TraceHeader))
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.From(r.Context()).Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
