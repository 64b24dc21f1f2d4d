package manifest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/bitsieve/blobstore"
	"github.com/hupe1980/bitsieve/codec"
)

// Store manages manifest blobs and atomic updates of CURRENT.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a new manifest store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store, codec: codec.Default}
}

// Load loads the current manifest.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads a specific version ID. 0 means latest.
func (s *Store) LoadVersion(ctx context.Context, versionID uint64) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := FileName(versionID)
	if versionID == 0 {
		content, err := blobstore.Get(ctx, s.store, CurrentFileName)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		name = strings.TrimSpace(string(content))
	}

	return s.read(ctx, name)
}

func (s *Store) read(ctx context.Context, name string) (*Manifest, error) {
	content, err := blobstore.Get(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", name, err)
	}

	m := &Manifest{}
	if err := s.codec.Unmarshal(content, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", name, err)
	}
	return m, nil
}

// ListVersions returns the IDs of all stored manifests in ascending order.
func (s *Store) ListVersions(ctx context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.List(ctx, ManifestFileName+"-")
	if err != nil {
		return nil, err
	}

	var ids []uint64
	for _, f := range files {
		digits, ok := strings.CutPrefix(f, ManifestFileName+"-")
		if !ok {
			continue
		}
		digits, ok = strings.CutSuffix(digits, ".json")
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			continue // Skip foreign blobs
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Save assigns m the next ID, writes it, and points CURRENT at it.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.ID++
	m.CreatedAt = time.Now().UTC()

	if err := m.Validate(); err != nil {
		m.ID--
		return err
	}

	content, err := s.codec.Marshal(m)
	if err != nil {
		m.ID--
		return err
	}

	name := FileName(m.ID)
	if err := s.store.Put(ctx, name, content); err != nil {
		m.ID--
		return fmt.Errorf("failed to write manifest %s: %w", name, err)
	}

	if err := s.store.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		// The orphaned manifest is never referenced; remove it best effort.
		_ = s.store.Delete(ctx, name)
		m.ID--
		return fmt.Errorf("failed to update %s: %w", CurrentFileName, err)
	}
	return nil
}

// DeleteVersion removes a stored manifest. The current manifest cannot be removed.
func (s *Store) DeleteVersion(ctx context.Context, id uint64) error {
	cur, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cur != nil && cur.ID == id {
		return fmt.Errorf("cannot delete current manifest %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, FileName(id))
}
