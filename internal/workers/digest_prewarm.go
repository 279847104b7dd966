package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// DigestSource is the part of digest.Service the pre-warm worker drives
type DigestSource interface {
	Today(ctx context.Context) (models.Digest, error)
	TodayKey() string
}

// DigestPrewarmWorker builds today's digest ahead of the first request
type DigestPrewarmWorker struct {
	source DigestSource
}

// NewDigestPrewarmWorker creates new pre-warm worker
func NewDigestPrewarmWorker(source DigestSource) *DigestPrewarmWorker {
	return &DigestPrewarmWorker{source: source}
}

// Name returns worker name
func (w *DigestPrewarmWorker) Name() string {
	return "digest_prewarm"
}

// Run executes one iteration. A cached day is a no-op.
// Called on schedule by pkg/worker.Scheduler
func (w *DigestPrewarmWorker) Run(ctx context.Context) error {
	key := w.source.TodayKey()

	result, err := w.source.Today(ctx)
	if err != nil {
		return err
	}

	logger.Info("digest cache warm",
		zap.String("date_key", key),
		zap.Int("entries", len(result)),
	)
	return nil
}
