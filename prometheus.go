package bitsieve

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a MetricsCollector backed by Prometheus metrics.
type PrometheusMetrics struct {
	selects           *prometheus.CounterVec
	selectDuration    prometheus.Histogram
	requestedIDs      prometheus.Counter
	translationMisses prometheus.Counter
	matches           prometheus.Counter
	idMapLookups      *prometheus.CounterVec
	idMapBuilds       *prometheus.CounterVec
	idMapBuildSeconds prometheus.Histogram
	refreshes         *prometheus.CounterVec
	appendedDocs      prometheus.Counter
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the metrics and registers them to reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	var m PrometheusMetrics

	m.selects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "select_requests_total",
		Help:      "Total number of select requests by outcome.",
	}, []string{"status"})

	m.selectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bitsieve",
		Name:      "select_duration_seconds",
		Help:      "Time spent serving select requests.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	m.requestedIDs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "requested_ids_total",
		Help:      "Total number of ids received in request bitsets.",
	})

	m.translationMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "translation_misses_total",
		Help:      "Total number of requested ids without a document in the current generation.",
	})

	m.matches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "matches_total",
		Help:      "Total number of documents returned.",
	})

	m.idMapLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "idmap_lookups_total",
		Help:      "Id map cache lookups by result.",
	}, []string{"result"})

	m.idMapBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "idmap_builds_total",
		Help:      "Id map builds by outcome.",
	}, []string{"status"})

	m.idMapBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bitsieve",
		Name:      "idmap_build_duration_seconds",
		Help:      "Time spent scanning id columns to build id maps.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	m.refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "refreshes_total",
		Help:      "Refresh attempts by result.",
	}, []string{"result"})

	m.appendedDocs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bitsieve",
		Name:      "appended_documents_total",
		Help:      "Total number of documents committed through Append.",
	})

	reg.MustRegister(
		m.selects, m.selectDuration, m.requestedIDs, m.translationMisses, m.matches,
		m.idMapLookups, m.idMapBuilds, m.idMapBuildSeconds, m.refreshes, m.appendedDocs,
	)
	return &m
}

// RecordSelect implements MetricsCollector.
func (m *PrometheusMetrics) RecordSelect(s SelectMetrics) {
	m.selectDuration.Observe(s.Duration.Seconds())
	m.selects.WithLabelValues(selectStatus(s.Err)).Inc()
	if s.Err != nil {
		return
	}
	m.requestedIDs.Add(float64(s.Requested))
	m.translationMisses.Add(float64(s.Misses))
	m.matches.Add(float64(s.Matches))
	if s.IDMapHit {
		m.idMapLookups.WithLabelValues("hit").Inc()
	} else {
		m.idMapLookups.WithLabelValues("miss").Inc()
	}
}

// RecordIDMapBuild implements MetricsCollector.
func (m *PrometheusMetrics) RecordIDMapBuild(d time.Duration, err error) {
	m.idMapBuildSeconds.Observe(d.Seconds())
	if err != nil {
		m.idMapBuilds.WithLabelValues("failed").Inc()
		return
	}
	m.idMapBuilds.WithLabelValues("ok").Inc()
}

// RecordRefresh implements MetricsCollector.
func (m *PrometheusMetrics) RecordRefresh(changed bool, _ time.Duration, err error) {
	switch {
	case err != nil:
		m.refreshes.WithLabelValues("failed").Inc()
	case changed:
		m.refreshes.WithLabelValues("published").Inc()
	default:
		m.refreshes.WithLabelValues("unchanged").Inc()
	}
}

// RecordAppend implements MetricsCollector.
func (m *PrometheusMetrics) RecordAppend(docs int, _ time.Duration, err error) {
	if err == nil {
		m.appendedDocs.Add(float64(docs))
	}
}

func selectStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsClientError(err):
		return "bad_request"
	case errors.Is(err, ErrTimeAllowedExceeded):
		return "timeout"
	case errors.Is(err, ErrOverloaded):
		return "overloaded"
	default:
		return "error"
	}
}
