package testutil

import (
	"context"
	"net/http"
	"time"

	"supplierflow/pkg/requestcontext"
)

// WithActor sets the caller identity the front end would forward.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request-scoped clock, as the request time
// middleware would.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// Context returns a background context pinned to now and carrying a request
// id, for service-level tests.
func Context(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithRequestID(ctx, "test-request")
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

// WithActorContext sets the caller identity on a service-level context.
func WithActorContext(ctx context.Context, actor string) context.Context {
	return requestcontext.WithActor(ctx, actor)
}
