package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathfinder_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_predictions_total",
			Help: "Total number of career predictions by outcome",
		},
		[]string{"outcome"},
	)

	PredictionResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathfinder_prediction_results",
			Help:    "Number of career matches returned per prediction",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		},
	)

	AdviceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathfinder_advice_requests_total",
			Help: "Total number of advice requests by outcome",
		},
		[]string{"outcome"},
	)
)

const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeMisconfigured = "misconfigured"
	OutcomeUnavailable   = "unavailable"
)
