package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-sensor-dashboard/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestAndHandler(t *testing.T) {
	before := testutil.ToFloat64(metrics.APIRequests.WithLabelValues("GET", "418"))
	metrics.ObserveRequest("GET", 418)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.APIRequests.WithLabelValues("GET", "418")))

	metrics.PollTicks.WithLabelValues(metrics.OutcomeSuccess).Inc()

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `sensordash_api_requests_total{method="GET",status="418"}`)
	require.Contains(t, string(body), "sensordash_poll_ticks_total")
}
