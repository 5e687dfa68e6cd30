package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "supplierflow/pkg/domain-errors"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("validation lists what is missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.NewWithDetails(dErrors.CodeValidation, "submission is incomplete", []string{"City", "Final acknowledgement"}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, []any{"City", "Final acknowledgement"}, body["missing"])
	})

	t.Run("guard violation includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeGuardViolation, "a rejection reason is required"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "a rejection reason is required", body["error_description"])
		assert.NotContains(t, body, "missing")
	})
}

func TestStatusFor(t *testing.T) {
	tests := map[dErrors.Code]int{
		dErrors.CodeValidation:     http.StatusUnprocessableEntity,
		dErrors.CodeGuardViolation: http.StatusBadRequest,
		dErrors.CodeTerminalState:  http.StatusConflict,
		dErrors.CodeIntegrity:      http.StatusConflict,
		dErrors.CodeConflict:       http.StatusConflict,
		dErrors.CodeNotFound:       http.StatusNotFound,
		dErrors.CodeUnavailable:    http.StatusServiceUnavailable,
		dErrors.CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

type createBody struct {
	Name string `json:"name"`
}

func (b *createBody) Validate() error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*createBody, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		got, ok := DecodeAndPrepare[createBody](w, r, nil, r.Context(), "req-1")
		return got, w, ok
	}

	got, _, ok := decode(`{"name":"  Acme  "}`)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Name)

	for name, body := range map[string]string{
		"empty body":    ``,
		"malformed":     `{"name":`,
		"unknown field": `{"name":"Acme","extra":1}`,
		"invalid":       `{"name":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, w, ok := decode(body)
			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", decodeError(t, w)["error"])
		})
	}
}
