package bitsieve

import (
	"time"

	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/column"
	"github.com/hupe1980/bitsieve/internal/engine"
	"github.com/hupe1980/bitsieve/internal/idmap"
	"github.com/hupe1980/bitsieve/model"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	idField          string
	idMapCapacity    int
	retryInterval    time.Duration
	buildConcurrency int
	columnCacheBytes int64
	maxBitsetBytes   int64
	schema           model.Schema
	compression      column.Compression
	maxSelects       int64
	selectMemory     int64
}

func defaultOptions() options {
	return options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NewLogger(nil),
		idField:          engine.DefaultIDField,
		idMapCapacity:    idmap.DefaultCapacity,
		retryInterval:    idmap.DefaultRetryInterval,
		columnCacheBytes: engine.DefaultColumnCacheBytes,
		compression:      column.CompressionLZ4,
	}
}

// Option configures Open.
type Option func(*options)

// WithCodec configures the codec used for structured responses.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector sets the metrics sink. nil disables metrics.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets the logger. nil disables logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithIDField names the integer field holding external ids of new indexes.
// Existing indexes keep the id field recorded in their manifest.
func WithIDField(name string) Option {
	return func(o *options) {
		if name != "" {
			o.idField = name
		}
	}
}

// WithIDMapCapacity sets how many generations keep a cached id map.
func WithIDMapCapacity(n int) Option {
	return func(o *options) {
		o.idMapCapacity = n
	}
}

// WithRetryInterval sets the minimum time between rebuild attempts of an id
// map whose build failed. Negative retries on every request.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		o.retryInterval = d
	}
}

// WithBuildConcurrency sets how many segments an id map build scans in
// parallel. 0 uses GOMAXPROCS.
func WithBuildConcurrency(n int) Option {
	return func(o *options) {
		o.buildConcurrency = n
	}
}

// WithColumnCacheBytes sets the budget of decoded columns kept in memory.
func WithColumnCacheBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.columnCacheBytes = n
		}
	}
}

// WithMaxBitsetBytes bounds the decompressed size of request bitsets.
// 0 means unbounded.
func WithMaxBitsetBytes(n int64) Option {
	return func(o *options) {
		o.maxBitsetBytes = n
	}
}

// WithSchema declares the fields of a new index for Append.
func WithSchema(schema model.Schema) Option {
	return func(o *options) {
		o.schema = schema.Clone()
	}
}

// WithCompression sets the column compression of appended segments:
// "none", "lz4" or "zstd". Unknown names keep the default.
func WithCompression(name string) Option {
	return func(o *options) {
		if c, err := column.ParseCompression(name); err == nil {
			o.compression = c
		}
	}
}

// WithMaxConcurrentSelects bounds selects executing at once. Further
// selects wait for a slot or their context. 0 is unlimited.
func WithMaxConcurrentSelects(n int64) Option {
	return func(o *options) {
		o.maxSelects = n
	}
}

// WithSelectMemoryLimit bounds the decoded bitset bytes held by in-flight
// selects. A select over the limit fails with ErrOverloaded. 0 is unlimited.
func WithSelectMemoryLimit(n int64) Option {
	return func(o *options) {
		o.selectMemory = n
	}
}
