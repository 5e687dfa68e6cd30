package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierflow/internal/effects"
	"supplierflow/internal/platform/metrics"
	"supplierflow/internal/platform/middleware"
	"supplierflow/internal/ratelimit"
	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/handler"
	submissionmetrics "supplierflow/internal/submission/metrics"
	"supplierflow/internal/submission/models"
	"supplierflow/internal/submission/service"
	"supplierflow/internal/submission/store"
	"supplierflow/pkg/testutil"
)

type testServer struct {
	router    http.Handler
	publisher *effects.MemoryPublisher
}

func newTestServer(t *testing.T, checks map[string]HealthCheck, opts ...func(*Deps)) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	publisher := effects.NewMemoryPublisher()
	svc := service.New(store.NewInMemory(),
		service.WithLogger(logger),
		service.WithPublisher(publisher),
		service.WithMetrics(submissionmetrics.New(reg)),
	)
	h, err := handler.New(svc, logger)
	require.NoError(t, err)

	deps := Deps{
		Submissions:    h,
		Logger:         logger,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: 5 * time.Second,
		Checks:         checks,
		Clock:          func() time.Time { return fixtures.Now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testServer{router: NewRouter(deps), publisher: publisher}
}

func (s *testServer) call(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set(middleware.HeaderActor, "priya.shah@example.org")
	return testutil.DoRequest(s.router, req)
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	fields := fixtures.LimitedCompanyFields()

	rec := srv.call(t, http.MethodPost, "/submissions", map[string]any{
		"fields":           fields,
		"documents":        fixtures.CompleteDocuments(fields),
		"alemba_reference": "ALM-100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	var draft models.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "priya.shah@example.org", draft.SubmittedBy, "submitter falls back to the actor header")
	base := "/submissions/" + draft.ID.String()

	steps := []struct {
		path string
		body any
		want models.Status
	}{
		{base + "/submit", nil, models.StatusPendingPBP},
		{base + "/reviews/pbp", map[string]any{"signer": "pbp@example.org", "decision": "approved"}, models.StatusPendingProcurement},
		{base + "/reviews/procurement", map[string]any{"signer": "proc@example.org", "decision": "approved", "supplier_classification": "standard"}, models.StatusPendingAP},
		{base + "/reviews/ap_control", map[string]any{
			"signer": "ap@example.org", "decision": "approved",
			"bank_details_verified": true, "company_details_verified": true, "supplier_number": "S-1001",
		}, models.StatusCompletedOracle},
	}
	for _, step := range steps {
		rec := srv.call(t, http.MethodPost, step.path, step.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
		var resp handler.TransitionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, step.want, resp.Submission.Status, step.path)
	}

	rec = srv.call(t, http.MethodPost, base+"/reviews/ap_control", map[string]any{"signer": "ap@example.org", "decision": "approved"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.call(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := testutil.UnmarshalResponse[handler.HistoryResponse](t, rec)
	assert.Len(t, history.Entries, 5)

	assert.Contains(t, srv.publisher.Kinds(), effects.KindCloseExternalTicket)

	rec = srv.call(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `supplierflow_status_entered_total{status="completed_oracle"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/submissions/{id}/reviews/{role}"`)
}

func TestHealthz(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		rec := newTestServer(t, nil).call(t, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		srv := newTestServer(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
		})
		rec := srv.call(t, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"dial tcp: connection refused"}}`, rec.Body.String())
	})
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, nil, func(d *Deps) {
		d.RateLimit = ratelimit.NewMiddleware(ratelimit.NewInMemory(), 2, time.Minute).Writes
	})
	screen := map[string]string{"name": "Acme Health Ltd"}

	for range 2 {
		rec := srv.call(t, http.MethodPost, "/screening", screen)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := srv.call(t, http.MethodPost, "/screening", screen)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/submissions", nil).Code)
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/healthz", nil).Code)
}
