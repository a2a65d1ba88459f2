package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sampletrack/pkg/requestcontext"
)

func capture(t *testing.T, req *http.Request) time.Time {
	t.Helper()
	var got time.Time
	var ok bool
	Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = requestcontext.TimeFrom(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	return got
}

func TestMiddlewareStampsUTC(t *testing.T) {
	before := time.Now().UTC()
	got := capture(t, httptest.NewRequest(http.MethodGet, "/samples", nil))
	assert.Equal(t, time.UTC, got.Location())
	assert.False(t, got.Before(before.Add(-time.Second)))
}

func TestMiddlewareKeepsExistingTime(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := httptest.NewRequest(http.MethodGet, "/samples", nil)
	req = req.WithContext(requestcontext.WithTime(req.Context(), fixed))
	assert.Equal(t, fixed, capture(t, req))
}
