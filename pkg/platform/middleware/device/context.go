// Package device carries the identity of a sensor or gateway device that
// posts readings without a user actor.
package device

import (
	"context"
	"net/http"
	"strings"
)

// HeaderDeviceID is set by field gateways that batch readings for many probes.
const HeaderDeviceID = "X-Device-ID"

const maxDeviceIDLen = 128

type contextKeyDeviceID struct{}

// Middleware copies X-Device-ID into the context when present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderDeviceID))
		if id == "" || len(id) > maxDeviceIDLen {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

// GetDeviceID returns the device identifier, or "" when none was sent.
func GetDeviceID(ctx context.Context) string {
	if deviceID, ok := ctx.Value(contextKeyDeviceID{}).(string); ok {
		return deviceID
	}
	return ""
}

// WithDeviceID injects a device identifier into a context.
// Useful for handler tests that don't run the full middleware chain.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceID{}, deviceID)
}
