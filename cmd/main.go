package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/ai"
	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/internal/adapters/database"
	"github.com/selivandex/crypto-digest/internal/adapters/market"
	"github.com/selivandex/crypto-digest/internal/adapters/news"
	redisAdapter "github.com/selivandex/crypto-digest/internal/adapters/redis"
	"github.com/selivandex/crypto-digest/internal/adapters/storage"
	"github.com/selivandex/crypto-digest/internal/adapters/telegram"
	"github.com/selivandex/crypto-digest/internal/api"
	"github.com/selivandex/crypto-digest/internal/digest"
	"github.com/selivandex/crypto-digest/internal/health"
	"github.com/selivandex/crypto-digest/internal/workers"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/templates"
	"github.com/selivandex/crypto-digest/pkg/worker"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// infrastructure holds optional backing services, nil when disabled
type infrastructure struct {
	db    *database.DB
	redis *redisAdapter.Client
}

func (i *infrastructure) close() {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.Error("redis close error", zap.Error(err))
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			logger.Error("database close error", zap.Error(err))
		}
	}
}

func run(ctx context.Context) error {
	// Load configuration and initialize logger
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("crypto digest starting...",
		zap.String("cache_strategy", cfg.Cache.Strategy),
		zap.Int("top_n", cfg.Digest.TopN),
		zap.String("timezone", cfg.Digest.Timezone),
	)

	infra, err := initInfrastructure(cfg)
	if err != nil {
		return err
	}
	defer infra.close()

	checker := health.NewChecker()

	store, err := initStore(cfg, infra, checker)
	if err != nil {
		return err
	}

	templateManager, err := templates.Default()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	service := initDigestService(cfg, infra, store, templateManager)

	scheduler, err := startScheduler(ctx, cfg, service)
	if err != nil {
		return err
	}

	server := api.NewServer(&cfg.Server, api.NewDigestHandler(service), checker)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	checker.SetReady(true)

	// Wait for shutdown signal or server failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			performGracefulShutdown(cfg, checker, server, scheduler, service)
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	return performGracefulShutdown(cfg, checker, server, scheduler, service)
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initInfrastructure connects the backing services the configuration asks for
func initInfrastructure(cfg *config.Config) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Cache.Strategy == config.CachePostgres {
		db, err := initDatabase(cfg)
		if err != nil {
			return nil, err
		}
		infra.db = db
	}

	if cfg.Redis.Enabled {
		redisClient, err := initRedis(cfg)
		if err != nil {
			infra.close()
			return nil, err
		}
		infra.redis = redisClient
	}

	return infra, nil
}

// initDatabase connects to Postgres and applies embedded migrations
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db.DB().DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client with Redlock support
func initRedis(cfg *config.Config) (*redisAdapter.Client, error) {
	redisClient, err := redisAdapter.New(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established (redlock)",
		zap.String("host", cfg.Redis.Host),
		zap.Int("port", cfg.Redis.Port),
	)

	return redisClient, nil
}

// initStore assembles the cache tiers for the configured strategy.
// The file store is always the durable tier.
func initStore(cfg *config.Config, infra *infrastructure, checker *health.Checker) (storage.Store, error) {
	fileStore := storage.NewFileStore(cfg.Cache.DataDir)

	var store storage.Store
	switch cfg.Cache.Strategy {
	case config.CacheFile:
		store = fileStore
	case config.CacheMemory:
		store = storage.NewLayeredStore(fileStore, storage.NewMemoryStore(), fileStore)
	case config.CacheRedis:
		store = storage.NewLayeredStore(fileStore, storage.NewRedisStore(infra.redis, cfg.Redis.DigestTTL), fileStore)
	case config.CachePostgres:
		// Postgres archives every day; the file stays authoritative
		store = storage.NewLayeredStore(fileStore, fileStore, storage.NewPostgresStore(infra.db.DB()))
	default:
		return nil, fmt.Errorf("unknown cache strategy %q", cfg.Cache.Strategy)
	}

	if infra.redis != nil {
		checker.Register("redis", infra.redis.Health)
	}
	if infra.db != nil {
		checker.Register("postgres", infra.db.Health)
	}

	logger.Info("digest store ready",
		zap.String("store", store.Name()),
		zap.String("data_dir", cfg.Cache.DataDir),
	)

	return store, nil
}

// initDigestService wires providers, builder and the optional lock and publisher
func initDigestService(cfg *config.Config, infra *infrastructure, store storage.Store, templateManager *templates.Manager) *digest.Service {
	builder := digest.NewBuilder(
		market.NewCoinMarketCapClient(&cfg.Market, &cfg.Upstream),
		news.NewNewsAPIClient(&cfg.News, &cfg.Upstream),
		ai.NewChatSummarizer(&cfg.LLM, &cfg.Upstream, templateManager),
		cfg.Digest.TopN,
		cfg.Digest.AssetDelay,
	)

	opts := []digest.Option{}

	if infra.redis != nil {
		opts = append(opts, digest.WithLockFactory(infra.redis.GetLockFactory()))
		logger.Info("🔒 cross-instance build lock enabled")
	}

	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewNotifier(&cfg.Telegram, templateManager)
		if err != nil {
			// Publishing is optional; serve without it
			logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		} else {
			opts = append(opts, digest.WithPublisher(notifier))
			logger.Info("📱 Telegram publishing enabled")
		}
	}

	return digest.NewService(store, builder, cfg.Digest.Location(), cfg.Digest.BuildTimeout, opts...)
}

// startScheduler runs the pre-warm worker on its cron schedule
func startScheduler(ctx context.Context, cfg *config.Config, service *digest.Service) (*worker.Scheduler, error) {
	scheduler := worker.NewScheduler(ctx, cfg.Digest.Location())
	prewarm := workers.NewDigestPrewarmWorker(service)

	if cfg.ScheduleEnabled() {
		if err := scheduler.Add(cfg.Schedule.Cron, prewarm); err != nil {
			return nil, fmt.Errorf("failed to schedule pre-warm: %w", err)
		}
	}

	scheduler.Start()

	if cfg.Schedule.RunOnStart {
		scheduler.RunNow(prewarm)
	}

	return scheduler, nil
}

// performGracefulShutdown stops traffic first, then background work
func performGracefulShutdown(cfg *config.Config, checker *health.Checker, server *api.Server, scheduler *worker.Scheduler, service *digest.Service) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	// Mark service as not ready (stop accepting new traffic)
	checker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stop error", zap.Error(err))
	}

	scheduler.Stop(5 * time.Second)
	service.WaitPublishing(5 * time.Second)

	// Check if shutdown completed in time
	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}
