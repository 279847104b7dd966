package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// CronParser parses standard five-field schedules
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Cache strategies
const (
	CacheFile     = "file"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Upstream UpstreamConfig `envconfig:"UPSTREAM"`
	Market   MarketConfig   `envconfig:"MARKET"`
	News     NewsConfig     `envconfig:"NEWS"`
	LLM      LLMConfig      `envconfig:"LLM"`
	Digest   DigestConfig   `envconfig:"DIGEST"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Telegram TelegramConfig `envconfig:"TELEGRAM"`
	Schedule ScheduleConfig `envconfig:"SCHEDULE"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// ServerConfig represents the public HTTP listener
type ServerConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8066"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

// UpstreamConfig holds settings shared by all provider clients
type UpstreamConfig struct {
	Timeout   time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	UserAgent string        `envconfig:"HTTP_USER_AGENT" default:"crypto-digest/1.0"`
}

// MarketConfig represents the CoinMarketCap listings source
type MarketConfig struct {
	APIKey   string `envconfig:"COINMARKETCAP_API_KEY" required:"true"`
	BaseURL  string `envconfig:"COINMARKETCAP_BASE_URL" default:"https://pro-api.coinmarketcap.com"`
	Currency string `envconfig:"QUOTE_CURRENCY" default:"USD"`
	Limit    int    `envconfig:"COINMARKETCAP_LIMIT" default:"0"` // 0 = provider default page
}

// NewsConfig represents the NewsAPI search source
type NewsConfig struct {
	APIKey   string `envconfig:"NEWS_API_KEY" required:"true"`
	BaseURL  string `envconfig:"NEWS_API_BASE_URL" default:"https://newsapi.org"`
	MaxItems int    `envconfig:"NEWS_MAX_ITEMS" default:"12"`
}

// LLMConfig represents the OpenAI-compatible completion provider (Groq by default)
type LLMConfig struct {
	APIKey      string  `envconfig:"GROQ_API_KEY" required:"true"`
	BaseURL     string  `envconfig:"GROQ_API_BASE_URL" required:"true"`
	APIPath     string  `envconfig:"LLM_API_PATH" default:"/openai/v1"`
	Model       string  `envconfig:"LLM_MODEL" default:"mixtral-8x7b-32768"`
	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.5"`
	TopP        float32 `envconfig:"LLM_TOP_P" default:"1.0"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"320"`
}

// DigestConfig represents selection and pacing of a build
type DigestConfig struct {
	TopN         int           `envconfig:"DIGEST_TOP_N" default:"3"`
	AssetDelay   time.Duration `envconfig:"DIGEST_ASSET_DELAY" default:"10s"`
	BuildTimeout time.Duration `envconfig:"DIGEST_BUILD_TIMEOUT" default:"10m"`
	Timezone     string        `envconfig:"DIGEST_TIMEZONE" default:"UTC"`
}

// CacheConfig represents the daily digest store
type CacheConfig struct {
	Strategy string `envconfig:"CACHE_STRATEGY" default:"memory"`
	DataDir  string `envconfig:"DATA_DIR" default:"data"`
}

// RedisConfig represents the optional shared cache tier and build lock
type RedisConfig struct {
	Enabled   bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host      string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int           `envconfig:"REDIS_PORT" default:"6379"`
	Password  string        `envconfig:"REDIS_PASSWORD"`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	DigestTTL time.Duration `envconfig:"REDIS_DIGEST_TTL" default:"48h"`
	LockTTL   time.Duration `envconfig:"REDIS_LOCK_TTL" default:"15m"`
}

// DatabaseConfig represents the optional PostgreSQL digest archive
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"digest"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// TelegramConfig represents optional digest publishing
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// ScheduleConfig represents the cache pre-warm schedule
type ScheduleConfig struct {
	Cron       string `envconfig:"SCHEDULE_CRON" default:"5 0 * * *"`
	RunOnStart bool   `envconfig:"SCHEDULE_RUN_ON_START" default:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE"`
}

// Load reads configuration from environment variables, after merging a .env file when present
func Load() (*Config, error) {
	// Missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	// envconfig accepts an exported-but-empty variable as present
	credentials := []struct {
		key   string
		value string
	}{
		{"COINMARKETCAP_API_KEY", c.Market.APIKey},
		{"NEWS_API_KEY", c.News.APIKey},
		{"GROQ_API_KEY", c.LLM.APIKey},
		{"GROQ_API_BASE_URL", c.LLM.BaseURL},
	}
	for _, cred := range credentials {
		if cred.value == "" {
			return fmt.Errorf("%s must not be empty", cred.key)
		}
	}

	if c.Digest.TopN < 1 {
		return fmt.Errorf("digest top_n must be at least 1")
	}
	if c.Digest.AssetDelay < 0 {
		return fmt.Errorf("digest asset delay must not be negative")
	}
	if c.Digest.BuildTimeout <= 0 {
		return fmt.Errorf("digest build timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
		return fmt.Errorf("unknown digest timezone %q: %w", c.Digest.Timezone, err)
	}

	if c.News.MaxItems < 1 {
		return fmt.Errorf("news max items must be at least 1")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm max tokens must be at least 1")
	}

	switch c.Cache.Strategy {
	case CacheFile, CacheMemory:
	case CacheRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("cache strategy %q requires REDIS_ENABLED=true", c.Cache.Strategy)
		}
	case CachePostgres:
		if c.Database.User == "" || c.Database.Password == "" {
			return fmt.Errorf("cache strategy %q requires DB_USER and DB_PASSWORD", c.Cache.Strategy)
		}
	default:
		return fmt.Errorf("unknown cache strategy %q", c.Cache.Strategy)
	}
	if c.Cache.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}

	// A lock waiter polls the store, so the holder's write must be visible to it
	if c.Redis.Enabled && !c.Cache.Shared() {
		return fmt.Errorf("REDIS_ENABLED requires a shared cache strategy (%s or %s), got %q", CacheRedis, CachePostgres, c.Cache.Strategy)
	}
	if c.Redis.Enabled && c.Redis.LockTTL < c.Digest.BuildTimeout {
		return fmt.Errorf("redis lock ttl (%s) must cover the build timeout (%s)", c.Redis.LockTTL, c.Digest.BuildTimeout)
	}

	if c.Schedule.Cron != "" {
		if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule cron %q: %w", c.Schedule.Cron, err)
		}
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram bot token and chat id must be set together")
	}

	return nil
}

// Shared reports whether other instances can read what this one stores
func (c *CacheConfig) Shared() bool {
	return c.Strategy == CacheRedis || c.Strategy == CachePostgres
}

// Location returns the zone date keys are computed in
func (c *DigestConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns host:port of the redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TelegramEnabled reports whether digests should be published
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}

// ScheduleEnabled reports whether the pre-warm schedule should run
func (c *Config) ScheduleEnabled() bool {
	return c.Schedule.Cron != ""
}
