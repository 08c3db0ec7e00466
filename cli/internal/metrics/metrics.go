// Package metrics defines the console's Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)

var (
	// Outbound API request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddpay_console_api_requests_total",
			Help: "Total number of backend API requests by method and status class",
		},
		[]string{"method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ddpay_console_api_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Token refresh metrics
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddpay_console_token_refresh_total",
			Help: "Total number of access token refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// Forced logouts triggered by a failed refresh
	ForcedLogoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddpay_console_forced_logouts_total",
			Help: "Total number of sessions cleared after a failed refresh",
		},
	)
)

// StatusClass buckets an HTTP status as "2xx", "4xx" and so on.
// Zero means the request never produced a response.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
