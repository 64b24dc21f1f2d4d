package blobstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by FaultyStore.
var ErrInjected = errors.New("blobstore: injected fault")

// Fault defines failure behavior for matching blobs.
type Fault struct {
	FailOpen   bool
	FailRead   bool
	FailPut    bool
	FailDelete bool
	Err        error // defaults to ErrInjected
}

// FaultyStore is a BlobStore wrapper that can inject errors.
type FaultyStore struct {
	BlobStore

	mu    sync.Mutex
	rules map[string]Fault // substring pattern -> fault
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner BlobStore) *FaultyStore {
	return &FaultyStore{
		BlobStore: inner,
		rules:     make(map[string]Fault),
	}
}

// AddRule injects fault for every blob whose name contains pattern.
func (f *FaultyStore) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	f.rules[pattern] = fault
}

// ClearRules removes all injected faults.
func (f *FaultyStore) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]Fault)
}

func (f *FaultyStore) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			return rule, true
		}
	}
	return Fault{}, false
}

// Open opens name, failing per the matching rule.
func (f *FaultyStore) Open(ctx context.Context, name string) (Blob, error) {
	fault, ok := f.match(name)
	if ok && fault.FailOpen {
		return nil, fault.Err
	}
	b, err := f.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if ok && fault.FailRead {
		return &faultyBlob{Blob: b, err: fault.Err}, nil
	}
	return b, nil
}

// Put writes name, failing per the matching rule.
func (f *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	if fault, ok := f.match(name); ok && fault.FailPut {
		return fault.Err
	}
	return f.BlobStore.Put(ctx, name, data)
}

// Delete removes name, failing per the matching rule.
func (f *FaultyStore) Delete(ctx context.Context, name string) error {
	if fault, ok := f.match(name); ok && fault.FailDelete {
		return fault.Err
	}
	return f.BlobStore.Delete(ctx, name)
}

type faultyBlob struct {
	Blob
	err error
}

func (b *faultyBlob) ReadAt(context.Context, []byte, int64) (int, error) {
	return 0, b.err
}
