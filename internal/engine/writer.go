package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/internal/column"
	"github.com/hupe1980/bitsieve/internal/manifest"
	"github.com/hupe1980/bitsieve/internal/segment"
	"github.com/hupe1980/bitsieve/model"
)

// DefaultIDField is the external id field name.
const DefaultIDField = "id"

// WriterOptions configure a Writer.
type WriterOptions struct {
	// IDField names the integer field holding external ids. Default "id".
	IDField string
	// Schema declares the stored fields. Required for a new index; for an
	// existing index it must match the committed schema when set.
	Schema model.Schema
	// Compression is applied to every column file.
	Compression column.Compression
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Writer appends segments and commits new generations.
// Writes from one Writer are serialized.
type Writer struct {
	store     blobstore.BlobStore
	manifests *manifest.Store
	opts      WriterOptions
	mu        sync.Mutex
}

// NewWriter creates a writer over store.
func NewWriter(store blobstore.BlobStore, opts WriterOptions) *Writer {
	if opts.IDField == "" {
		opts.IDField = DefaultIDField
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Writer{
		store:     store,
		manifests: manifest.NewStore(store),
		opts:      opts,
	}
}

// Append writes docs as one new segment and commits the next manifest.
func (w *Writer) Append(ctx context.Context, docs []model.Document) (*manifest.Manifest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := w.base(ctx)
	if err != nil {
		return nil, err
	}
	return w.commit(ctx, m, docs)
}

// Replace commits a generation holding only docs. Segments of the previous
// generation stay in the store until Prune.
func (w *Writer) Replace(ctx context.Context, docs []model.Document) (*manifest.Manifest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := w.base(ctx)
	if err != nil {
		return nil, err
	}
	m.Segments = nil
	return w.commit(ctx, m, docs)
}

// Prune deletes column files of segments the current manifest no longer lists.
func (w *Writer) Prune(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	m, err := w.manifests.Load(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(m.Segments))
	for _, s := range m.Segments {
		live[s.ID.String()] = struct{}{}
	}

	names, err := w.store.List(ctx, "seg-")
	if err != nil {
		return 0, err
	}
	var deleted int
	for _, name := range names {
		dir, _, ok := strings.Cut(name, "/")
		if !ok {
			continue
		}
		if _, keep := live[dir]; keep {
			continue
		}
		if err := w.store.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (w *Writer) base(ctx context.Context) (*manifest.Manifest, error) {
	m, err := w.manifests.Load(ctx)
	if errors.Is(err, manifest.ErrNotFound) {
		if len(w.opts.Schema) == 0 {
			return nil, fmt.Errorf("%w: new index requires a schema", ErrSchemaMismatch)
		}
		return manifest.New(w.opts.IDField, w.opts.Schema), nil
	}
	if err != nil {
		return nil, err
	}

	if m.IDField != w.opts.IDField {
		return nil, fmt.Errorf("%w: index id field is %q, writer uses %q", ErrSchemaMismatch, m.IDField, w.opts.IDField)
	}
	if len(w.opts.Schema) > 0 && !maps.Equal(m.Schema, w.opts.Schema) {
		return nil, fmt.Errorf("%w: schema differs from committed manifest %d", ErrSchemaMismatch, m.ID)
	}
	return m.Clone(), nil
}

func (w *Writer) commit(ctx context.Context, m *manifest.Manifest, docs []model.Document) (*manifest.Manifest, error) {
	if len(docs) > 0 {
		id := m.NextSegmentID
		info, err := segment.Build(ctx, w.store, id, m.Schema, docs, segment.BuildOptions{
			IDField:     m.IDField,
			Compression: w.opts.Compression,
		})
		if err != nil {
			return nil, err
		}
		m.Segments = append(m.Segments, info)
		m.NextSegmentID = id + 1

		w.opts.Logger.Info("segment written",
			"segment", id.String(),
			"rows", info.Rows,
			"size", humanize.Bytes(uint64(info.Size)),
			"compression", info.Compression)
	}

	if err := w.manifests.Save(ctx, m); err != nil {
		return nil, err
	}
	w.opts.Logger.Info("manifest committed",
		"manifest", m.ID,
		"generation", string(m.Generation()),
		"rows", m.NumRows())
	return m, nil
}
