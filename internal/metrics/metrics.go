package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archfolio_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archfolio_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archfolio_http_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archfolio_admin_login_attempts_total",
			Help: "Admin login attempts by outcome",
		},
		[]string{"result"}, // "success", "invalid", "error"
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archfolio_upload_bytes_total",
			Help: "Bytes of image data accepted by the upload endpoint",
		},
	)

	ProjectWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archfolio_project_writes_total",
			Help: "Successful project mutations by operation",
		},
		[]string{"operation"},
	)
)

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

func RecordUpload(size int64) {
	UploadBytes.Add(float64(size))
}

func RecordProjectWrite(operation string) {
	ProjectWrites.WithLabelValues(operation).Inc()
}
