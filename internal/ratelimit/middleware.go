package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"supplierflow/internal/platform/middleware"
	"supplierflow/internal/ratelimit/metrics"
	"supplierflow/pkg/platform/httputil"
	"supplierflow/pkg/requestcontext"
)

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware applies one write limit to every caller.
type Middleware struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type MiddlewareOption func(*Middleware)

func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) MiddlewareOption {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// NewMiddleware allows limit writes per caller per window.
func NewMiddleware(store Store, limit int, window time.Duration, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Writes limits POST, PUT, PATCH and DELETE requests. Reads pass through.
// A store failure lets the request through.
func (m *Middleware) Writes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := callerKey(r)
		result, err := m.store.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.metrics.IncrementStoreErrors()
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if result.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		m.metrics.IncrementRejected()
		retry := result.RetryAfter(requestcontext.Now(ctx))
		m.logger.WarnContext(ctx, "rate limit exceeded",
			"caller", key,
			"request_id", requestcontext.RequestID(ctx),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
			Error:      "rate_limit_exceeded",
			Message:    "Too many write requests. Please try again later.",
			RetryAfter: retry,
		})
	})
}

func callerKey(r *http.Request) string {
	if actor := requestcontext.Actor(r.Context()); actor != "" {
		return "actor:" + actor
	}
	return "ip:" + middleware.ClientIP(r)
}
