package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every dashboard collector. A dedicated registry keeps the
// Go runtime collectors out unless the caller adds them.
var Registry = prometheus.NewRegistry()

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensordash",
		Name:      "api_requests_total",
		Help:      "Backend requests by method and response status (0 for transport failures).",
	}, []string{"method", "status"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensordash",
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts by outcome.",
	}, []string{"outcome"})

	PollTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensordash",
		Name:      "poll_ticks_total",
		Help:      "Realtime poll fetches by outcome.",
	}, []string{"outcome"})
)

const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeAuthRequired = "auth_required"
)

func init() {
	Registry.MustRegister(APIRequests, TokenRefreshes, PollTicks)
}

// ObserveRequest counts one backend round trip.
func ObserveRequest(method string, status int) {
	APIRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
