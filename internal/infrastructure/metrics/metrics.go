package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "custos"

type Metrics struct {
	registry *prometheus.Registry

	backupsTotal    *prometheus.CounterVec
	backupDuration  prometheus.Histogram
	prunedTotal     prometheus.Counter
	restoresTotal   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	schedulerArmed  prometheus.Gauge
	lastBackupEpoch prometheus.Gauge
}

// New registers every collector on a fresh registry, so tests can build as
// many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		backupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backups attempted, by result.",
		}, []string{"result"}),
		backupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backup_duration_seconds",
			Help:      "Wall time of the dump utility.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_pruned_total",
			Help:      "Archives deleted by retention.",
		}),
		restoresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Restores attempted, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Admin API requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		schedulerArmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_armed",
			Help:      "1 while the automatic backup scheduler is armed.",
		}),
		lastBackupEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_backup_timestamp_seconds",
			Help:      "Unix time of the last successful backup.",
		}),
	}

	reg.MustRegister(
		m.backupsTotal,
		m.backupDuration,
		m.prunedTotal,
		m.restoresTotal,
		m.httpRequests,
		m.httpDuration,
		m.schedulerArmed,
		m.lastBackupEpoch,
	)

	return m
}

func (m *Metrics) ObserveBackup(result string, duration time.Duration) {
	m.backupsTotal.WithLabelValues(result).Inc()
	if result == "success" {
		m.backupDuration.Observe(duration.Seconds())
		m.lastBackupEpoch.SetToCurrentTime()
	}
}

func (m *Metrics) ObserveRestore(result string) {
	m.restoresTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AddPruned(n int) {
	m.prunedTotal.Add(float64(n))
}

func (m *Metrics) SetSchedulerArmed(armed bool) {
	if armed {
		m.schedulerArmed.Set(1)
		return
	}
	m.schedulerArmed.Set(0)
}

// RecordHTTPRequest buckets the status into classes to keep cardinality low.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	status := "unknown"
	if statusCode >= 100 && statusCode < 600 {
		status = strconv.Itoa(statusCode/100) + "xx"
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
