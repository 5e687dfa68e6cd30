package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"supplierflow/pkg/requestcontext"
)

func TestWithClock(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 9, 30, 0, 0, time.FixedZone("BST", 3600))
	var seen time.Time
	h := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, seen.Equal(fixed))
	assert.Equal(t, time.UTC, seen.Location())
}
