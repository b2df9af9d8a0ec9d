// Package metrics defines Prometheus metrics for the blobstore server.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bleepstore/blobstore/blobstore"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// sizeBuckets are exponential buckets for request/response size histograms (bytes).
var sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864}

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blobstore_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPRequestSize observes request body size in bytes.
	HTTPRequestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_http_request_size_bytes",
			Help:    "Request body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize observes response body size in bytes.
	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_http_response_size_bytes",
			Help:    "Response body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "path"},
	)
)

// Engine metrics.
var (
	// OperationsTotal counts engine operations by operation name and outcome.
	// The status label is "success" or the error code.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blobstore_operations_total",
			Help: "Engine operations by type and outcome",
		},
		[]string{"operation", "status"},
	)

	// BytesReceivedTotal counts total bytes received in request bodies.
	BytesReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blobstore_bytes_received_total",
			Help: "Total bytes received (request bodies)",
		},
	)

	// BytesSentTotal counts total bytes sent in response bodies.
	BytesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blobstore_bytes_sent_total",
			Help: "Total bytes sent (response bodies)",
		},
	)
)

// Register registers all package-level collectors with the default registry.
// This must be called explicitly (typically from main) so that metrics
// registration can be made conditional on configuration. It is safe to call
// multiple times; subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPRequestSize,
			HTTPResponseSize,
			OperationsTotal,
			BytesReceivedTotal,
			BytesSentTotal,
		)
		// Initialize OperationsTotal so it appears in /metrics output
		// even before any operation has been performed.
		OperationsTotal.WithLabelValues(blobstore.OpListContainers, StatusSuccess)
	})
}

// StatusSuccess is the status label recorded for operations that succeed.
const StatusSuccess = "success"

// Observer feeds engine operation outcomes into OperationsTotal. It
// implements blobstore.Observer.
type Observer struct{}

// ObserveOperation implements blobstore.Observer.
func (Observer) ObserveOperation(op string, err error) {
	OperationsTotal.WithLabelValues(op, OperationStatus(err)).Inc()
}

// OperationStatus returns the status label for an operation outcome.
func OperationStatus(err error) string {
	if err == nil {
		return StatusSuccess
	}
	return blobstore.Code(err)
}

// NormalizePath maps actual request paths to normalized path templates
// suitable for use as Prometheus metric labels. This avoids high-cardinality
// labels from individual container/object names.
func NormalizePath(path string) string {
	// Known fixed paths.
	switch path {
	case "/health", "/metrics", "/stats", "/copy", "/move", "/containers":
		return path
	case "/containers/":
		return "/containers"
	case "/docs", "/docs/":
		return "/docs"
	case "/", "":
		return "/"
	}

	// Docs assets and the generated OpenAPI documents.
	if strings.HasPrefix(path, "/docs") {
		return "/docs"
	}
	if strings.HasPrefix(path, "/openapi") || strings.HasPrefix(path, "/schemas") {
		return "/openapi"
	}

	rest, ok := strings.CutPrefix(path, "/containers/")
	if !ok {
		return "/other"
	}

	// Find first slash to separate the container from the sub-resource.
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "/containers/{container}"
	}
	sub := rest[idx+1:]
	switch {
	case sub == "":
		return "/containers/{container}"
	case sub == "objects" || sub == "objects/":
		return "/containers/{container}/objects"
	case sub == "delete":
		return "/containers/{container}/delete"
	case strings.HasPrefix(sub, "objects/"):
		return "/containers/{container}/objects/{object}"
	}
	return "/other"
}
