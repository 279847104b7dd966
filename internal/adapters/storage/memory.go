package storage

import (
	"context"
	"sync"

	"github.com/selivandex/crypto-digest/pkg/models"
)

// MemoryStore is an in-process map of digests. It is an accelerator in front
// of a durable tier, never the source of truth.
type MemoryStore struct {
	mu      sync.Mutex
	digests map[string]models.Digest
}

// NewMemoryStore creates new memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{digests: make(map[string]models.Digest)}
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Get(ctx context.Context, key string) (models.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest, ok := s.digests[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDigest(digest), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, digest models.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.digests[key] = cloneDigest(digest)
	return nil
}

// cloneDigest copies entries and their reference slices so callers can't mutate stored state
func cloneDigest(d models.Digest) models.Digest {
	out := make(models.Digest, len(d))
	for i, e := range d {
		out[i] = e
		out[i].References = append([]string(nil), e.References...)
	}
	return out
}
