package storage

import (
	"context"
	"errors"

	"github.com/selivandex/crypto-digest/pkg/models"
)

// ErrNotFound means no digest is stored for the date key
var ErrNotFound = errors.New("digest not found")

// Store persists one digest per date key
type Store interface {
	// Get returns the digest for key or ErrNotFound
	Get(ctx context.Context, key string) (models.Digest, error)

	// Put replaces the digest stored under key
	Put(ctx context.Context, key string, digest models.Digest) error

	// Name identifies the tier in logs and health checks
	Name() string
}

// HealthChecker is implemented by stores backed by a remote service
type HealthChecker interface {
	Health(ctx context.Context) error
}
