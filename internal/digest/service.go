package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/selivandex/crypto-digest/internal/adapters/redis"
	"github.com/selivandex/crypto-digest/internal/adapters/storage"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// ErrInvalidDateKey is returned for keys that are not YYYY-MM-DD
var ErrInvalidDateKey = errors.New("invalid date key")

const (
	defaultLockPollInterval = 2 * time.Second
	defaultPublishTimeout   = time.Minute
)

// DigestBuilder produces a fresh digest
type DigestBuilder interface {
	Build(ctx context.Context) (models.Digest, error)
}

// Publisher receives every freshly built digest
type Publisher interface {
	PublishDigest(ctx context.Context, dateKey string, digest models.Digest) error
}

// Service serves the daily digest from the store, building it once per day on a miss
type Service struct {
	store        storage.Store
	builder      DigestBuilder
	location     *time.Location
	buildTimeout time.Duration

	locks          redis.LockFactory
	pollInterval   time.Duration
	publisher      Publisher
	publishTimeout time.Duration
	now            func() time.Time

	group      singleflight.Group
	publishing sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithLockFactory guards builds with a cross-instance lock
func WithLockFactory(locks redis.LockFactory) Option {
	return func(s *Service) {
		s.locks = locks
	}
}

// WithLockPollInterval sets how often a lock waiter re-reads the store
func WithLockPollInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = interval
	}
}

// WithPublisher sends each fresh digest to p
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a digest service. Date keys are computed in location.
func NewService(store storage.Store, builder DigestBuilder, location *time.Location, buildTimeout time.Duration, opts ...Option) *Service {
	s := &Service{
		store:          store,
		builder:        builder,
		location:       location,
		buildTimeout:   buildTimeout,
		locks:          redis.NewLocalLockFactory(),
		pollInterval:   defaultLockPollInterval,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TodayKey returns the current date key
func (s *Service) TodayKey() string {
	return models.DateKey(s.now(), s.location)
}

// Today returns today's digest, building and storing it on a miss.
// Concurrent misses share one build. Cancelling ctx releases the caller
// but not the build.
func (s *Service) Today(ctx context.Context) (models.Digest, error) {
	key := s.TodayKey()

	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.buildAndStore(key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("joined in-flight digest build", zap.String("date_key", key))
		}
		return res.Val.(models.Digest), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ForDate returns a stored digest without building
func (s *Service) ForDate(ctx context.Context, key string) (models.Digest, error) {
	if _, err := models.ParseDateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDateKey, err)
	}
	return s.store.Get(ctx, key)
}

func (s *Service) lookup(ctx context.Context, key string) (models.Digest, bool) {
	cached, err := s.store.Get(ctx, key)
	if err == nil {
		return cached, true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("digest lookup failed, treating as miss",
			zap.String("date_key", key),
			zap.String("store", s.store.Name()),
			zap.Error(err),
		)
	}
	return nil, false
}

func (s *Service) buildAndStore(key string) (models.Digest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.buildTimeout)
	defer cancel()

	// A previous flight may have stored it after our lookup
	if cached, ok := s.lookup(ctx, key); ok {
		return cached, nil
	}

	lock := s.locks.CreateBuildLock(key)
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		logger.Warn("failed to acquire build lock, building anyway",
			zap.String("date_key", key),
			zap.Error(err),
		)
	}
	if acquired {
		defer lock.Release(context.Background())
	} else if err == nil {
		if cached, ok := s.waitForPeer(ctx, key); ok {
			return cached, nil
		}
		logger.Warn("peer build did not finish, building locally", zap.String("date_key", key))
		ctx, cancel = context.WithTimeout(context.Background(), s.buildTimeout)
		defer cancel()
	}

	logger.Info("digest cache miss, building", zap.String("date_key", key))

	built, err := s.builder.Build(ctx)
	if err != nil {
		logger.Error("digest build failed", zap.String("date_key", key), zap.Error(err))
		return nil, err
	}

	if err := s.store.Put(ctx, key, built); err != nil {
		logger.Error("failed to store digest", zap.String("date_key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to store digest: %w", err)
	}

	s.publish(key, built)

	return built, nil
}

// publish sends the digest in the background so waiting callers are not held up
func (s *Service) publish(key string, built models.Digest) {
	if s.publisher == nil {
		return
	}

	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()

		if err := s.publisher.PublishDigest(ctx, key, built); err != nil {
			logger.Warn("failed to publish digest", zap.String("date_key", key), zap.Error(err))
		}
	}()
}

// WaitPublishing blocks until background publishes finish or timeout elapses
func (s *Service) WaitPublishing(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logger.Warn("⚠️ digest publishing still running", zap.Duration("waited", timeout))
		return false
	}
}

// waitForPeer polls the store while another instance holds the build lock
func (s *Service) waitForPeer(ctx context.Context, key string) (models.Digest, bool) {
	logger.Info("digest build running elsewhere, waiting", zap.String("date_key", key))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-ticker.C:
			if cached, ok := s.lookup(ctx, key); ok {
				return cached, true
			}
		}
	}
}
