package storage

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// LayeredStore reads tiers in order and back-fills the earlier ones on a later-tier hit.
// Put writes the durable tier first; only when it succeeds are the other tiers
// written, and their failures are logged, not returned. A failed durable write
// therefore leaves every tier showing a miss.
type LayeredStore struct {
	durable Store
	tiers   []Store
}

// NewLayeredStore creates new layered store. tiers is the read order and must include durable.
func NewLayeredStore(durable Store, tiers ...Store) *LayeredStore {
	return &LayeredStore{durable: durable, tiers: tiers}
}

func (s *LayeredStore) Name() string {
	names := make([]string, len(s.tiers))
	for i, t := range s.tiers {
		names[i] = t.Name()
	}
	return strings.Join(names, "+")
}

// Tiers returns the underlying stores in read order
func (s *LayeredStore) Tiers() []Store {
	return s.tiers
}

func (s *LayeredStore) Get(ctx context.Context, key string) (models.Digest, error) {
	for i, tier := range s.tiers {
		digest, err := tier.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Warn("digest tier read failed, trying next",
					zap.String("tier", tier.Name()),
					zap.String("key", key),
					zap.Error(err),
				)
			}
			continue
		}

		for _, earlier := range s.tiers[:i] {
			if err := earlier.Put(ctx, key, digest); err != nil {
				logger.Warn("failed to back-fill digest tier",
					zap.String("tier", earlier.Name()),
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
		return digest, nil
	}

	return nil, ErrNotFound
}

func (s *LayeredStore) Put(ctx context.Context, key string, digest models.Digest) error {
	if err := s.durable.Put(ctx, key, digest); err != nil {
		return err
	}

	for _, tier := range s.tiers {
		if tier == s.durable {
			continue
		}
		if err := tier.Put(ctx, key, digest); err != nil {
			logger.Warn("failed to write digest tier",
				zap.String("tier", tier.Name()),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return nil
}
