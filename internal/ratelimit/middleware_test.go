package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierflow/internal/ratelimit/metrics"
	"supplierflow/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, method, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/submissions", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if actor != "" {
		req = req.WithContext(requestcontext.WithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareLimitsWrites(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	mw := NewMiddleware(NewInMemory(WithClock(func() time.Time { return now })), 2, time.Minute, WithMetrics(m))
	h := mw.Writes(okHandler())

	first := serve(h, http.MethodPost, "li.wei@example.org")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPut, "li.wei@example.org").Code)

	rejected := serve(h, http.MethodPost, "li.wei@example.org")
	require.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.NotEmpty(t, rejected.Header().Get("Retry-After"))
	var body ExceededResponse
	require.NoError(t, json.Unmarshal(rejected.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Positive(t, body.RetryAfter)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Rejected))

	t.Run("reads are not counted", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "li.wei@example.org")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("anonymous callers are keyed by IP", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, "").Code)
	})
}

func TestMiddlewareFailsOpen(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := NewMiddleware(failingStore{}, 1, time.Minute, WithMetrics(m)).Writes(okHandler())

	for range 3 {
		assert.Equal(t, http.StatusNoContent, serve(h, http.MethodPost, "li.wei@example.org").Code)
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(m.StoreErrors))
}
