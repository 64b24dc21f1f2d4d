package bitsieve

import (
	"sync/atomic"
	"time"
)

// SelectMetrics describe one Select call.
type SelectMetrics struct {
	Duration time.Duration
	// Requested is the number of ids in the input bitset.
	Requested int
	Misses    int
	Matches   int
	// IDMapHit reports that the generation's id map was cached.
	IDMapHit bool
	Err      error
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusMetrics for a ready-made implementation.
type MetricsCollector interface {
	// RecordSelect is called after each Select.
	RecordSelect(m SelectMetrics)

	// RecordIDMapBuild is called after each id map build attempt.
	RecordIDMapBuild(duration time.Duration, err error)

	// RecordRefresh is called after each Refresh. changed reports whether a
	// new generation was published.
	RecordRefresh(changed bool, duration time.Duration, err error)

	// RecordAppend is called after each Append.
	RecordAppend(docs int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSelect(SelectMetrics)               {}
func (NoopMetricsCollector) RecordIDMapBuild(time.Duration, error)    {}
func (NoopMetricsCollector) RecordRefresh(bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordAppend(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SelectCount       atomic.Int64
	SelectErrors      atomic.Int64
	SelectTotalNanos  atomic.Int64
	RequestedIDs      atomic.Int64
	TranslationMisses atomic.Int64
	Matches           atomic.Int64
	IDMapHits         atomic.Int64
	IDMapMisses       atomic.Int64
	IDMapBuilds       atomic.Int64
	IDMapBuildErrors  atomic.Int64
	RefreshCount      atomic.Int64
	RefreshPublished  atomic.Int64
	RefreshErrors     atomic.Int64
	AppendCount       atomic.Int64
	AppendDocs        atomic.Int64
	AppendErrors      atomic.Int64
}

// RecordSelect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelect(m SelectMetrics) {
	b.SelectCount.Add(1)
	b.SelectTotalNanos.Add(m.Duration.Nanoseconds())
	if m.Err != nil {
		b.SelectErrors.Add(1)
		return
	}
	b.RequestedIDs.Add(int64(m.Requested))
	b.TranslationMisses.Add(int64(m.Misses))
	b.Matches.Add(int64(m.Matches))
	if m.IDMapHit {
		b.IDMapHits.Add(1)
	} else {
		b.IDMapMisses.Add(1)
	}
}

// RecordIDMapBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIDMapBuild(_ time.Duration, err error) {
	b.IDMapBuilds.Add(1)
	if err != nil {
		b.IDMapBuildErrors.Add(1)
	}
}

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(changed bool, _ time.Duration, err error) {
	b.RefreshCount.Add(1)
	if err != nil {
		b.RefreshErrors.Add(1)
	}
	if changed {
		b.RefreshPublished.Add(1)
	}
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(docs int, _ time.Duration, err error) {
	b.AppendCount.Add(1)
	if err != nil {
		b.AppendErrors.Add(1)
		return
	}
	b.AppendDocs.Add(int64(docs))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SelectCount:       b.SelectCount.Load(),
		SelectErrors:      b.SelectErrors.Load(),
		SelectAvgNanos:    b.getAvgSelectNanos(),
		RequestedIDs:      b.RequestedIDs.Load(),
		TranslationMisses: b.TranslationMisses.Load(),
		Matches:           b.Matches.Load(),
		IDMapHits:         b.IDMapHits.Load(),
		IDMapMisses:       b.IDMapMisses.Load(),
		IDMapBuilds:       b.IDMapBuilds.Load(),
		IDMapBuildErrors:  b.IDMapBuildErrors.Load(),
		RefreshCount:      b.RefreshCount.Load(),
		RefreshPublished:  b.RefreshPublished.Load(),
		RefreshErrors:     b.RefreshErrors.Load(),
		AppendCount:       b.AppendCount.Load(),
		AppendDocs:        b.AppendDocs.Load(),
		AppendErrors:      b.AppendErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSelectNanos() int64 {
	count := b.SelectCount.Load()
	if count == 0 {
		return 0
	}
	return b.SelectTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SelectCount       int64
	SelectErrors      int64
	SelectAvgNanos    int64
	RequestedIDs      int64
	TranslationMisses int64
	Matches           int64
	IDMapHits         int64
	IDMapMisses       int64
	IDMapBuilds       int64
	IDMapBuildErrors  int64
	RefreshCount      int64
	RefreshPublished  int64
	RefreshErrors     int64
	AppendCount       int64
	AppendDocs        int64
	AppendErrors      int64
}
