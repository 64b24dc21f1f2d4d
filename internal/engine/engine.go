package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/internal/manifest"
	"github.com/hupe1980/bitsieve/internal/segment"
)

// RefreshListener is notified after a new generation has been published.
type RefreshListener func(snap *Snapshot)

// Engine serves snapshots of the generation CURRENT points to.
type Engine struct {
	store     blobstore.BlobStore
	manifests *manifest.Store
	columns   segment.ColumnCache
	logger    *slog.Logger

	current atomic.Pointer[Snapshot]

	// mu serializes Refresh and guards listeners.
	mu        sync.Mutex
	listeners []RefreshListener

	closed atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithColumnCache shares decoded columns across generations.
func WithColumnCache(c segment.ColumnCache) Option {
	return func(e *Engine) {
		e.columns = c
	}
}

// DefaultColumnCacheBytes is the column cache budget when none is configured.
const DefaultColumnCacheBytes = 256 << 20

// Open loads the current generation from store.
// An index without a committed manifest opens as an empty generation.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Engine, error) {
	e := &Engine{
		store:     store,
		manifests: manifest.NewStore(store),
		logger:    slog.Default(),
	}
	for _, fn := range optFns {
		fn(e)
	}
	if e.columns == nil {
		e.columns = segment.NewColumnCache(DefaultColumnCacheBytes)
	}

	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.current.Store(snap)

	e.logger.Info("engine opened",
		"generation", string(snap.Generation()),
		"segments", len(snap.Segments()),
		"rows", snap.NumRows())
	return e, nil
}

func (e *Engine) load(ctx context.Context) (*Snapshot, error) {
	m, err := e.manifests.Load(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return emptySnapshot(), nil
		}
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	segments := make([]SegmentReader, 0, len(m.Segments))
	var base uint32
	var size int64
	for _, info := range m.Segments {
		segments = append(segments, segment.Open(e.store, info, base, m.Schema,
			segment.WithColumnCache(e.columns),
			segment.WithLogger(e.logger)))
		base += info.Rows
		size += info.Size
	}

	e.logger.Debug("generation loaded",
		"manifest", m.ID,
		"segments", len(segments),
		"stored", humanize.Bytes(uint64(size)))
	return NewSnapshot(m, segments), nil
}

func emptySnapshot() *Snapshot {
	return NewSnapshot(&manifest.Manifest{Version: manifest.CurrentVersion}, nil)
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// OnRefresh registers a listener called after every published generation.
func (e *Engine) OnRefresh(fn RefreshListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Refresh reloads CURRENT and publishes it if the generation changed.
// It reports whether a new generation was published.
func (e *Engine) Refresh(ctx context.Context) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.load(ctx)
	if err != nil {
		return false, err
	}

	prev := e.current.Load()
	if prev != nil && prev.Generation() == snap.Generation() {
		return false, nil
	}
	e.current.Store(snap)

	e.logger.Info("generation published",
		"generation", string(snap.Generation()),
		"segments", len(snap.Segments()),
		"rows", snap.NumRows())

	for _, fn := range e.listeners {
		fn(snap)
	}
	return true, nil
}

// Close releases the engine. Snapshots already handed out stay readable.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	e.columns.Invalidate(func(string) bool { return true })
	return nil
}
