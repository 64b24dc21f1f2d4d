package bitsieve

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/internal/collector"
	"github.com/hupe1980/bitsieve/internal/engine"
	"github.com/hupe1980/bitsieve/internal/filter"
	"github.com/hupe1980/bitsieve/internal/idmap"
	"github.com/hupe1980/bitsieve/internal/resource"
	"github.com/hupe1980/bitsieve/internal/segment"
	"github.com/hupe1980/bitsieve/model"
)

// RowIDField selects the external ids of the matches as a bitset.
const RowIDField = collector.RowIDField

// Order selects the order matches are delivered in.
type Order = engine.Order

const (
	// OrderIndex delivers matches in row order.
	OrderIndex = engine.OrderIndex
	// OrderReverseSegments delivers the newest segment first.
	OrderReverseSegments = engine.OrderReverseSegments
)

// SelectRequest is one filtered field selection.
type SelectRequest struct {
	// Bitset is the zlib compressed encoded bit vector of external ids.
	// Select closes it.
	Bitset io.ReadCloser
	// Query restricts the matches further. Empty matches every document.
	Query string
	// Fields are the requested field names, RowIDField included.
	Fields []string
	// Renames maps a requested field to its output name.
	Renames map[string]string
	// TimeAllowed bounds query execution. 0 means unbounded.
	TimeAllowed time.Duration
	Order       Order
}

// SelectResponse is the result of Select.
type SelectResponse struct {
	Generation model.Generation `json:"generation"`
	Matches    int              `json:"matches"`
	Misses     int              `json:"misses"`
	// Fields maps output names to value slices in match order. The row-id
	// entry holds the compressed bitset bytes.
	Fields map[string]any `json:"fields"`
	// Skipped counts documents without a value per output, when a column
	// could not be read.
	Skipped map[string]int `json:"skipped,omitempty"`
	// Bitset is the compressed row-id bitset when RowIDField was requested.
	Bitset []byte `json:"-"`
}

// Service answers filtered selections over the current index generation.
type Service struct {
	opts    options
	store   blobstore.BlobStore
	engine  *engine.Engine
	idmaps  *idmap.Cache
	stream  *codec.Stream
	limits  *resource.Controller
	logger  *Logger
	metrics MetricsCollector

	writerOnce sync.Once
	writer     *engine.Writer

	closed atomic.Bool
}

// Open opens the index in store. An empty store opens as an empty index.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Service, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	s := &Service{
		opts:    o,
		store:   store,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}

	var streamOpts []codec.StreamOption
	if o.maxBitsetBytes > 0 {
		streamOpts = append(streamOpts, codec.WithMaxDecompressedBytes(o.maxBitsetBytes))
	}
	s.stream = codec.NewFastestStream(streamOpts...)
	s.limits = resource.NewController(resource.Config{
		MaxConcurrentSelects: o.maxSelects,
		MemoryLimitBytes:     o.selectMemory,
	})

	s.idmaps = idmap.NewCache(idmap.Options{
		Capacity:      o.idMapCapacity,
		RetryInterval: o.retryInterval,
		Concurrency:   o.buildConcurrency,
		Logger:        o.logger.Logger,
		OnBuild: func(_ model.Generation, d time.Duration, err error) {
			s.metrics.RecordIDMapBuild(d, err)
		},
	})

	eng, err := engine.Open(ctx, store,
		engine.WithLogger(o.logger.Logger),
		engine.WithColumnCache(segment.NewColumnCache(o.columnCacheBytes)))
	if err != nil {
		return nil, translateError(err)
	}
	eng.OnRefresh(func(snap *engine.Snapshot) {
		s.idmaps.Retain(snap.Generation())
	})
	s.engine = eng
	return s, nil
}

// Generation returns the token of the current generation.
func (s *Service) Generation() model.Generation {
	return s.engine.Snapshot().Generation()
}

// Schema returns the field types of the current generation.
func (s *Service) Schema() model.Schema {
	return s.engine.Snapshot().Schema().Clone()
}

// NumDocs returns the number of documents in the current generation.
func (s *Service) NumDocs() int {
	return int(s.engine.Snapshot().NumRows())
}

// Codec returns the codec of structured responses.
func (s *Service) Codec() codec.Codec { return s.opts.codec }

// IDMapStats returns the id map cache counters.
func (s *Service) IDMapStats() idmap.Stats { return s.idmaps.Stats() }

// Select runs req against the current generation.
func (s *Service) Select(ctx context.Context, req SelectRequest) (*SelectResponse, error) {
	start := time.Now()
	resp, out, err := s.doSelect(ctx, req)
	err = translateError(err)

	m := SelectMetrics{Duration: time.Since(start), Err: err}
	if out != nil {
		m.Requested = out.Requested
		m.Misses = out.Misses
		m.IDMapHit = out.IDMapHit
	}
	if resp != nil {
		m.Matches = resp.Matches
	}
	s.metrics.RecordSelect(m)

	logger := s.logger
	if req.Query != "" {
		logger = logger.WithQuery(req.Query)
	}
	logger.LogSelect(ctx, m.Requested, m.Misses, m.Matches, m.Duration, err)
	return resp, err
}

func (s *Service) doSelect(ctx context.Context, req SelectRequest) (*SelectResponse, *filter.Outcome, error) {
	closeInput := func() {
		if req.Bitset != nil {
			_ = req.Bitset.Close()
		}
	}
	if s.closed.Load() {
		closeInput()
		return nil, nil, ErrClosed
	}

	snap := s.engine.Snapshot()

	var q engine.Query = engine.MatchAll{}
	if req.Query != "" {
		parsed, err := engine.Parse(req.Query)
		if err != nil {
			closeInput()
			return nil, nil, err
		}
		q = parsed
	}

	specs, err := collector.FieldSpecsFromSchema(snap.Schema(), req.Fields, req.Renames)
	if err != nil {
		closeInput()
		return nil, nil, err
	}

	if err := s.limits.AcquireSelect(ctx); err != nil {
		closeInput()
		return nil, nil, err
	}
	defer s.limits.ReleaseSelect()

	stage := filter.NewStage(filter.Config{
		IDMaps:    s.idmaps,
		Stream:    s.stream,
		Logger:    s.logger.WithGeneration(snap.Generation()).Logger,
		Resources: s.limits,
	})
	out, err := stage.Run(ctx, snap, filter.Request{
		Bitset:      req.Bitset,
		Query:       q,
		Fields:      specs,
		TimeAllowed: req.TimeAllowed,
		Order:       req.Order,
	})
	if err != nil {
		return nil, out, err
	}

	resp := &SelectResponse{
		Generation: out.Generation,
		Matches:    out.Result.Matches,
		Misses:     out.Misses,
		Fields:     out.Result.Fields(),
		Skipped:    out.Result.Skipped(),
	}
	if e, ok := out.Result.Bitset(); ok {
		resp.Bitset = e.Bitset
	}
	return resp, out, nil
}

// Refresh publishes the newest committed generation. It reports whether
// the generation changed.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	start := time.Now()
	changed, err := s.engine.Refresh(ctx)
	err = translateError(err)
	s.metrics.RecordRefresh(changed, time.Since(start), err)
	s.logger.LogRefresh(ctx, s.Generation(), changed, err)
	return changed, err
}

// Append commits docs as a new segment and publishes the resulting
// generation. A new index needs WithSchema.
func (s *Service) Append(ctx context.Context, docs []model.Document) (model.Generation, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	s.writerOnce.Do(func() {
		s.writer = engine.NewWriter(s.store, engine.WriterOptions{
			IDField:     s.opts.idField,
			Schema:      s.opts.schema,
			Compression: s.opts.compression,
			Logger:      s.logger.Logger,
		})
	})

	start := time.Now()
	m, err := s.writer.Append(ctx, docs)
	if err == nil {
		_, err = s.engine.Refresh(ctx)
	}
	err = translateError(err)
	s.metrics.RecordAppend(len(docs), time.Since(start), err)

	var gen model.Generation
	if m != nil {
		gen = m.Generation()
	}
	s.logger.LogAppend(ctx, len(docs), gen, err)
	return gen, err
}

// Close releases the service.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if err := s.engine.Close(); err != nil && !errors.Is(err, engine.ErrClosed) {
		return err
	}
	return nil
}
