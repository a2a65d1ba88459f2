// Package requesttime pins one "now" per HTTP request so every timeline event,
// custody record, and alert written while serving it carries the same
// timestamp.
package requesttime

import (
	"net/http"
	"time"

	"sampletrack/pkg/requestcontext"
)

// Middleware stamps the request context with the UTC arrival time. A time
// already present, for example from a test, is left alone.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := requestcontext.TimeFrom(ctx); !ok {
			ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
