// Package middleware contains the request logging middleware.
//
// A middleware wraps an http.Handler:
//
//	func M(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before
//	        next.ServeHTTP(w, r)
//	        // after
//	    })
//	}
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/tasklist/internal/auth"
)

// responseWriter records the status code and body size, which
// http.ResponseWriter does not expose.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestInfo is filled in by inner handlers and read by Logger once the
// request is done. The auth middleware stores the user in a derived
// context that Logger never sees, so TagUser copies the id here.
type requestInfo struct {
	userID int64
}

type infoKey struct{}

// Logger logs one line per request: method, path, status, duration, bytes,
// the chi request id and, for authenticated requests, the user id.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			info := &requestInfo{}
			ctx := context.WithValue(r.Context(), infoKey{}, info)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			}
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("requestID", id))
			}
			if info.userID != 0 {
				attrs = append(attrs, slog.Int64("userID", info.userID))
			}

			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request completed", attrs...)
		})
	}
}

// TagUser records the authenticated user for Logger. Mount it after
// auth.RequireAuth or auth.RequireLogin.
func TagUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := auth.UserFromContext(r.Context()); ok {
			if info, ok := r.Context().Value(infoKey{}).(*requestInfo); ok {
				info.userID = user.ID
			}
		}
		next.ServeHTTP(w, r)
	})
}
