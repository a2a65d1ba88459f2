package testutil

import (
	"net/http"
	"time"

	"sampletrack/pkg/requestcontext"
)

// AsActor attaches an actor ID to the request context, as the metadata
// middleware does for requests carrying X-Actor-ID.
func AsActor(req *http.Request, actorID string) *http.Request {
	return req.WithContext(requestcontext.WithActorID(req.Context(), actorID))
}

// WithRequestID attaches a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// AtTime pins the request clock, as the requesttime middleware does.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
