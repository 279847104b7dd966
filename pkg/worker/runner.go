package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/pkg/logger"
)

// Worker interface that background workers should implement
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// Scheduler runs workers on cron schedules with graceful shutdown
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	names  []string
}

// NewScheduler creates a scheduler evaluating five-field specs in loc.
// Overlapping runs of the same worker are skipped.
func NewScheduler(ctx context.Context, loc *time.Location) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	cronLogger := zapCronLogger{}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers worker under a cron spec
func (s *Scheduler) Add(spec string, w Worker) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, w.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(w) }))
	s.names = append(s.names, w.Name())

	logger.Info("worker scheduled",
		zap.String("worker", w.Name()),
		zap.String("schedule", spec),
	)
	return nil
}

// RunNow executes worker once in the background, outside its schedule
func (s *Scheduler) RunNow(w Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(w)
	}()
}

// Start starts all scheduled workers
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Start()

	logger.Info("🚀 Scheduler started",
		zap.Strings("workers", s.names),
	)
}

// Stop cancels running work and waits up to timeout for it to return
func (s *Scheduler) Stop(timeout time.Duration) {
	logger.Info("🛑 Stopping scheduler...")

	// Cancel context first
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Scheduler stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("⚠️ Scheduler stop timeout")
	}
}

func (s *Scheduler) execute(w Worker) {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := w.Run(s.ctx); err != nil {
		// Continue despite error - next tick retries
		logger.Error("worker execution failed",
			zap.String("worker", w.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	logger.Debug("worker run finished",
		zap.String("worker", w.Name()),
		zap.Duration("duration", time.Since(start)),
	)
}

// zapCronLogger routes cron's internal logging through zap
type zapCronLogger struct{}

func (zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Debugw(msg, keysAndValues...)
}

func (zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
