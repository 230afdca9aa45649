package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	fusionRequestsTotal    *prometheus.CounterVec
	collectionsSearched    *prometheus.HistogramVec
	collectionsFailedTotal *prometheus.CounterVec
	candidatesFused        *prometheus.HistogramVec
	chunksSelected         *prometheus.HistogramVec
	contextTokens          *prometheus.HistogramVec
	fusionDuration         *prometheus.HistogramVec
	cacheHitsTotal         *prometheus.CounterVec
	cacheMissesTotal       *prometheus.CounterVec
	cacheInvalidations     *prometheus.CounterVec
	ragNoContextTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fusion",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	fusionRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total completed fusion requests by outcome.",
		},
		[]string{"service", "endpoint", "outcome"},
	)
	collectionsSearched := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "collections_searched",
			Help:      "Distribution of collections searched per fusion request.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	collectionsFailedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "collections_failed_total",
			Help:      "Total per-collection search failures absorbed by fusion.",
		},
		[]string{"service", "endpoint"},
	)
	candidatesFused := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "candidates_fused",
			Help:      "Distribution of unique candidates entering rank fusion.",
			Buckets:   []float64{0, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "endpoint"},
	)
	chunksSelected := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "chunks_selected",
			Help:      "Distribution of chunks surviving token budget selection.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	contextTokens := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "context_tokens",
			Help:      "Distribution of estimated tokens in assembled contexts.",
			Buckets:   []float64{0, 250, 500, 1000, 2000, 4000, 8000, 16000},
		},
		[]string{"service", "endpoint"},
	)
	fusionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Fusion pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	cacheHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total fusion result cache hits.",
		},
		[]string{"service"},
	)
	cacheMissesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total fusion result cache misses.",
		},
		[]string{"service"},
	)
	cacheInvalidations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Total cache invalidations triggered by collection changes.",
		},
		[]string{"service"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total RAG answers generated without retrieved context.",
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		fusionRequestsTotal,
		collectionsSearched,
		collectionsFailedTotal,
		candidatesFused,
		chunksSelected,
		contextTokens,
		fusionDuration,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheInvalidations,
		ragNoContextTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		fusionRequestsTotal:    fusionRequestsTotal,
		collectionsSearched:    collectionsSearched,
		collectionsFailedTotal: collectionsFailedTotal,
		candidatesFused:        candidatesFused,
		chunksSelected:         chunksSelected,
		contextTokens:          contextTokens,
		fusionDuration:         fusionDuration,
		cacheHitsTotal:         cacheHitsTotal,
		cacheMissesTotal:       cacheMissesTotal,
		cacheInvalidations:     cacheInvalidations,
		ragNoContextTotal:      ragNoContextTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordFusion(service, endpoint string, searched, failed, candidates, selected, tokens int, duration time.Duration) {
	outcome := "full"
	if failed > 0 {
		outcome = "partial"
	}
	m.fusionRequestsTotal.WithLabelValues(service, endpoint, outcome).Inc()
	m.collectionsSearched.WithLabelValues(service, endpoint).Observe(float64(searched))
	if failed > 0 {
		m.collectionsFailedTotal.WithLabelValues(service, endpoint).Add(float64(failed))
	}
	m.candidatesFused.WithLabelValues(service, endpoint).Observe(float64(candidates))
	m.chunksSelected.WithLabelValues(service, endpoint).Observe(float64(selected))
	m.contextTokens.WithLabelValues(service, endpoint).Observe(float64(tokens))
	m.fusionDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordCacheHit(service string) {
	m.cacheHitsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCacheMiss(service string) {
	m.cacheMissesTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCacheInvalidation(service string) {
	m.cacheInvalidations.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordNoContext(service, endpoint string) {
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
