package idealistaclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeAPIError  = "api_error"
	outcomeDecode    = "decoding_error"
	outcomeTransport = "transport_error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idealista_requests_total",
		Help: "Search requests sent to the idealista API by country and outcome.",
	}, []string{"country", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idealista_request_duration_seconds",
		Help:    "Latency of search requests to the idealista API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"country"})
)
