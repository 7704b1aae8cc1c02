package airtable

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copycat_airtable_requests_total",
		Help: "Airtable API requests by table, method and response status",
	}, []string{"table", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "copycat_airtable_request_duration_seconds",
		Help:    "Airtable API request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"table", "method"})
)

func observeRequest(table, method string, resp *http.Response, start time.Time) {
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	requestTotal.WithLabelValues(table, method, status).Inc()
	requestDuration.WithLabelValues(table, method).Observe(time.Since(start).Seconds())
}
