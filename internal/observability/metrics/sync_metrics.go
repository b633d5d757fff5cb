package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks ingestion runs: how long a full entity sync takes,
// how many records land in each result bucket, and when an entity last
// synced successfully.
type SyncMetrics struct {
	syncDuration     *prometheus.HistogramVec
	recordsProcessed *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
	lastSuccess      *prometheus.GaugeVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "beacon"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	syncDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "beacon_ingest_sync_duration_seconds",
			Help: "Wall time of one full entity sync.",
			Buckets: []float64{
				1,
				5,
				15,
				60,
				300,  // 5m
				900,  // 15m
				3600, // 1h
			},
			ConstLabels: constLabels,
		},
		[]string{"source", "entity"},
	)

	recordsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "beacon_ingest_records_total",
			Help:        "Ingested records by result.",
			ConstLabels: constLabels,
		},
		[]string{"source", "entity", "result"}, // success | error | duplicate
	)

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "beacon_ingest_runs_total",
			Help:        "Completed sync runs by status.",
			ConstLabels: constLabels,
		},
		[]string{"source", "entity", "status"},
	)

	lastSuccess := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "beacon_ingest_last_success_timestamp_seconds",
			Help:        "Unix time of the last fully successful sync per entity.",
			ConstLabels: constLabels,
		},
		[]string{"source", "entity"},
	)

	registerer.MustRegister(
		syncDuration,
		recordsProcessed,
		runsTotal,
		lastSuccess,
	)

	return &SyncMetrics{
		syncDuration:     syncDuration,
		recordsProcessed: recordsProcessed,
		runsTotal:        runsTotal,
		lastSuccess:      lastSuccess,
	}
}

func (m *SyncMetrics) ObserveSyncDuration(source, entity string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(source, entity).Observe(elapsed.Seconds())
}

func (m *SyncMetrics) AddRecords(source, entity, result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsProcessed.WithLabelValues(source, entity, result).Add(float64(count))
}

func (m *SyncMetrics) IncRun(source, entity, status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(source, entity, status).Inc()
}

func (m *SyncMetrics) SetLastSuccess(source, entity string, at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.WithLabelValues(source, entity).Set(float64(at.Unix()))
}
