package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store keyed by Ref.Identifier(). Every Save
// issues a fresh ETag and refuses writes whose ETag is stale.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
	now     func() time.Time
	copyFn  func(T) T
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

type MemoryStoreOption[T any] func(*MemoryStore[T])

// WithClock overrides the UpdatedAt source.
func WithClock[T any](now func() time.Time) MemoryStoreOption[T] {
	return func(s *MemoryStore[T]) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCopy copies snapshots on the way in and out of the store.
func WithCopy[T any](fn func(T) T) MemoryStoreOption[T] {
	return func(s *MemoryStore[T]) {
		s.copyFn = fn
	}
}

func NewMemoryStore[T any](opts ...MemoryStoreOption[T]) *MemoryStore[T] {
	s := &MemoryStore[T]{records: map[string]memoryRecord[T]{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewDocumentStore returns a MemoryStore that deep copies documents.
func NewDocumentStore(opts ...MemoryStoreOption[Document]) *MemoryStore[Document] {
	opts = append([]MemoryStoreOption[Document]{WithCopy(Document.Clone)}, opts...)
	return NewMemoryStore(opts...)
}

func (s *MemoryStore[T]) Load(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, Meta{}, false, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return s.copy(record.snapshot), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.records[key]; ok && meta.ETag != "" && meta.ETag != current.meta.ETag {
		return cloneMeta(current.meta), fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, current.meta.ETag)
	}

	saved := cloneMeta(meta)
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.NewString()
	}
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = s.now().UTC()
	s.records[key] = memoryRecord[T]{snapshot: s.copy(snapshot), meta: saved}
	return cloneMeta(saved), nil
}

// Delete removes the document at ref.
func (s *MemoryStore[T]) Delete(ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore[T]) copy(v T) T {
	if s.copyFn == nil {
		return v
	}
	return s.copyFn(v)
}
