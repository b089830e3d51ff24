// Package metrics provides Prometheus metrics for precovery runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for precovery runs.
type Metrics struct {
	// Chunk metrics
	ChunksProcessed prometheus.Counter
	ChunksFailed    prometheus.Counter
	InFlightChunks  prometheus.Gauge

	// Orbit metrics
	OrbitsRefined  prometheus.Counter
	RefineDuration prometheus.Histogram

	// Result metrics
	CandidatesFound prometheus.Counter

	// Store metrics
	StorePuts  prometheus.Counter
	StoreBytes prometheus.Counter

	// Error metrics
	IndexErrors   *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
	CatalogErrors prometheus.Counter
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ipod"
	}

	m := &Metrics{
		ChunksProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_processed_total",
				Help:      "Total number of orbit chunks processed",
			},
		),
		ChunksFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_failed_total",
				Help:      "Total number of orbit chunks that failed processing",
			},
		),
		InFlightChunks: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_chunks",
				Help:      "Number of chunk tasks currently outstanding",
			},
		),
		OrbitsRefined: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orbits_refined_total",
				Help:      "Total number of orbits refined",
			},
		),
		RefineDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refine_duration_seconds",
				Help:      "Time to iteratively refine a single orbit",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~160s
			},
		),
		CandidatesFound: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_found_total",
				Help:      "Total number of precovery candidates found",
			},
		),
		StorePuts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_puts_total",
				Help:      "Total number of objects placed in the shared store",
			},
		),
		StoreBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_bytes_total",
				Help:      "Total compressed bytes written to the shared store",
			},
		),
		IndexErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_errors_total",
				Help:      "Total number of precovery index errors",
			},
			[]string{"operation"},
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of result storage errors",
			},
			[]string{"backend"},
		),
		CatalogErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_errors_total",
				Help:      "Total number of run catalog errors",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncChunksProcessed increments the chunks processed counter.
func (m *Metrics) IncChunksProcessed() {
	m.ChunksProcessed.Inc()
}

// IncChunksFailed increments the chunks failed counter.
func (m *Metrics) IncChunksFailed() {
	m.ChunksFailed.Inc()
}

// SetInFlightChunks sets the number of outstanding chunk tasks.
func (m *Metrics) SetInFlightChunks(count float64) {
	m.InFlightChunks.Set(count)
}

// IncOrbitsRefined increments the orbits refined counter.
func (m *Metrics) IncOrbitsRefined() {
	m.OrbitsRefined.Inc()
}

// ObserveRefineDuration records the time spent refining one orbit.
func (m *Metrics) ObserveRefineDuration(seconds float64) {
	m.RefineDuration.Observe(seconds)
}

// AddCandidatesFound adds to the candidates found counter.
func (m *Metrics) AddCandidatesFound(count float64) {
	m.CandidatesFound.Add(count)
}

// IncStorePuts increments the shared-store put counter.
func (m *Metrics) IncStorePuts() {
	m.StorePuts.Inc()
}

// AddStoreBytes adds to the shared-store bytes counter.
func (m *Metrics) AddStoreBytes(n float64) {
	m.StoreBytes.Add(n)
}

// IncIndexErrors increments the index errors counter for an operation.
func (m *Metrics) IncIndexErrors(operation string) {
	m.IndexErrors.WithLabelValues(operation).Inc()
}

// IncStorageErrors increments the storage errors counter for a backend.
func (m *Metrics) IncStorageErrors(backend string) {
	m.StorageErrors.WithLabelValues(backend).Inc()
}

// IncCatalogErrors increments the catalog errors counter.
func (m *Metrics) IncCatalogErrors() {
	m.CatalogErrors.Inc()
}
