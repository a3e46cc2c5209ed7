package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sheetAssemblies prometheus.Counter
	gradeBatches    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewMetricsService registers the core collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sheetAssemblies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_sheet_assemblies_total",
		Help: "Number of grade sheets assembled",
	})

	gradeBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_batch_submissions_total",
		Help: "Grade sheet edit batches by outcome",
	}, []string{"outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "response_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})

	registry.MustRegister(requestDuration, requestTotal, sheetAssemblies, gradeBatches, cacheLookups)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sheetAssemblies: sheetAssemblies,
		gradeBatches:    gradeBatches,
		cacheLookups:    cacheLookups,
	}
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// CountSheetAssembly records one assembled grade sheet.
func (s *MetricsService) CountSheetAssembly() {
	s.sheetAssemblies.Inc()
}

// CountGradeBatch records a grade batch submission outcome.
func (s *MetricsService) CountGradeBatch(outcome string) {
	s.gradeBatches.WithLabelValues(outcome).Inc()
}

// CountCacheLookup records a response cache hit or miss.
func (s *MetricsService) CountCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.cacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}
