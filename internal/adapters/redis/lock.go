package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
)

// BuildLock guards one date key's digest build across instances
type BuildLock interface {
	// TryAcquire returns false when another instance holds the lock
	TryAcquire(ctx context.Context) (bool, error)

	// Release releases the lock
	Release(ctx context.Context) error
}

// LockFactory creates build locks per date key
type LockFactory interface {
	CreateBuildLock(dateKey string) BuildLock
}

// LockName returns the redis resource name for a date key's build lock
func LockName(dateKey string) string {
	return "digest:build:" + dateKey
}

// PingFunc reports whether the lock backend is reachable
type PingFunc func(ctx context.Context) error

// RedisLockFactory creates redlock-based build locks
type RedisLockFactory struct {
	lockManager *redlock.RedLock
	ttl         time.Duration
	ping        PingFunc
}

// NewRedisLockFactory creates new Redis lock factory. ping separates an
// unreachable backend from a lock held by a peer; nil treats every failed
// acquire as contention.
func NewRedisLockFactory(lockManager *redlock.RedLock, ttl time.Duration, ping PingFunc) *RedisLockFactory {
	return &RedisLockFactory{lockManager: lockManager, ttl: ttl, ping: ping}
}

// CreateBuildLock creates a distributed lock for a date key
func (f *RedisLockFactory) CreateBuildLock(dateKey string) BuildLock {
	return &DistributedLock{
		lockManager: f.lockManager,
		lockName:    LockName(dateKey),
		ttl:         f.ttl,
		ping:        f.ping,
	}
}

// DistributedLock is a redlock lease. The ttl outlives a build, so there is no renewal loop.
type DistributedLock struct {
	lockManager *redlock.RedLock
	lockName    string
	ttl         time.Duration
	ping        PingFunc
	locked      bool
}

// TryAcquire returns (false, nil) only when a peer holds the lock.
// An unreachable backend or a cancelled ctx is an error.
func (dl *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	expiry, err := dl.lockManager.Lock(ctx, dl.lockName, dl.ttl)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// redlock reports every failure as ErrAcquireLock
		if dl.ping != nil {
			if pingErr := dl.ping(ctx); pingErr != nil {
				return false, fmt.Errorf("build lock backend unavailable: %w", pingErr)
			}
		}

		logger.Debug("build lock held elsewhere",
			zap.String("lock_name", dl.lockName),
			zap.Error(err),
		)
		return false, nil
	}

	if expiry <= 0 {
		return false, fmt.Errorf("failed to acquire lock: invalid expiry %v", expiry)
	}

	dl.locked = true

	logger.Debug("build lock acquired",
		zap.String("lock_name", dl.lockName),
		zap.Duration("expiry", expiry),
	)

	return true, nil
}

func (dl *DistributedLock) Release(ctx context.Context) error {
	if !dl.locked {
		return nil
	}

	if err := dl.lockManager.UnLock(ctx, dl.lockName); err != nil {
		// The lease may already have expired
		logger.Warn("failed to release build lock",
			zap.String("lock_name", dl.lockName),
			zap.Error(err),
		)
	}

	dl.locked = false
	return nil
}

// LocalLockFactory hands out locks that always succeed, for single-instance runs and tests
type LocalLockFactory struct{}

// NewLocalLockFactory creates local lock factory
func NewLocalLockFactory() *LocalLockFactory {
	return &LocalLockFactory{}
}

func (f *LocalLockFactory) CreateBuildLock(dateKey string) BuildLock {
	return localLock{}
}

type localLock struct{}

func (localLock) TryAcquire(ctx context.Context) (bool, error) { return true, nil }

func (localLock) Release(ctx context.Context) error { return nil }
