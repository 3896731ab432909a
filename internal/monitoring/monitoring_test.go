package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker("paper")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetConnected(true)
	h.RecordBracket("42", false)
	for i := 0; i < maxHealthErrors+3; i++ {
		h.RecordError("stop leg failed")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "42", status.LastBracketRef)
	assert.Equal(t, 1, status.UnprotectedSeen)
	assert.Len(t, status.Errors, maxHealthErrors)
}

func TestVenueCallMetrics(t *testing.T) {
	before := testutil.ToFloat64(venueCallsTotal.WithLabelValues("paper", "submit_order", "error"))
	ObserveVenueCall("paper", "submit_order", errors.New("rejected"), 10*time.Millisecond)
	after := testutil.ToFloat64(venueCallsTotal.WithLabelValues("paper", "submit_order", "error"))

	assert.Equal(t, before+1, after)
}

func TestMetricsHandlerExposesBracketCounters(t *testing.T) {
	RecordBracket("BTCUSDT", "LONG", "completed")

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "bracket_bot_brackets_total"))
}
