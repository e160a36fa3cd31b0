package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gigmarket/pkg/client"
	kafka_config "gigmarket/pkg/kafka/config"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	ServiceName string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port      string
	LogLevel  string
	LogFormat string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	PerformerCacheTTL time.Duration

	CommissionRateFree     float64
	CommissionRatePro      float64
	CommissionRateFeatured float64
	AutoReleaseDays        int

	EscrowSweepSchedule string
	EventSweepSchedule  string
	SweepBatchSize      int

	MaxPaginationLimit int

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file and the environment. Invalid
// configuration is fatal.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := FromEnv(serviceName)
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it
func FromEnv(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RedisAddr:         getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:     getEnvStr(EnvRedisPassword, ""),
		RedisDB:           getEnvNum(EnvRedisDB, DefaultRedisDB),
		PerformerCacheTTL: getEnvDuration(EnvPerformerCacheTTL, DefaultPerformerCacheTTL),

		CommissionRateFree:     getEnvFloat(EnvCommissionRateFree, DefaultCommissionRateFree),
		CommissionRatePro:      getEnvFloat(EnvCommissionRatePro, DefaultCommissionRatePro),
		CommissionRateFeatured: getEnvFloat(EnvCommissionRateFeatured, DefaultCommissionRateFeatured),
		AutoReleaseDays:        getEnvNum(EnvAutoReleaseDays, DefaultAutoReleaseDays),

		EscrowSweepSchedule: getEnvStr(EnvEscrowSweepSchedule, DefaultEscrowSweepSchedule),
		EventSweepSchedule:  getEnvStr(EnvEventSweepSchedule, DefaultEventSweepSchedule),
		SweepBatchSize:      getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),

		MaxPaginationLimit: getEnvNum(EnvMaxPaginationLimit, DefaultMaxPaginationLimit),

		Kafka: kafka_config.Load(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects the performer cache. Without REDIS_ADDR the services
// fall back to request-scoped caching.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, performer cache is request-scoped")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

// CommissionRate returns the commission percentage charged for a tier
func (cfg *Config) CommissionRate(tier model.PerformerTier) float64 {
	switch tier {
	case model.TierPro:
		return cfg.CommissionRatePro
	case model.TierFeatured:
		return cfg.CommissionRateFeatured
	default:
		return cfg.CommissionRateFree
	}
}

// AutoReleaseDelay is the escrow hold after completion
func (cfg *Config) AutoReleaseDelay() time.Duration {
	return time.Duration(cfg.AutoReleaseDays) * 24 * time.Hour
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWTSecret must be at least %d characters", MinJWTSecretLength))
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"PerformerCacheTTL", cfg.PerformerCacheTTL},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	rates := []struct {
		name  string
		value float64
	}{
		{"CommissionRateFree", cfg.CommissionRateFree},
		{"CommissionRatePro", cfg.CommissionRatePro},
		{"CommissionRateFeatured", cfg.CommissionRateFeatured},
	}
	for _, r := range rates {
		if r.value < 0 || r.value > 100 {
			errors = append(errors, fmt.Sprintf("%s must be between 0 and 100, got: %v", r.name, r.value))
		}
	}

	if cfg.AutoReleaseDays < 0 {
		errors = append(errors, fmt.Sprintf("AutoReleaseDays cannot be negative, got: %d", cfg.AutoReleaseDays))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.EscrowSweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("EscrowSweepSchedule is invalid: %v", err))
	}
	if _, err := parser.Parse(cfg.EventSweepSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("EventSweepSchedule is invalid: %v", err))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}

	if cfg.MaxPaginationLimit <= 0 {
		errors = append(errors, fmt.Sprintf("MaxPaginationLimit must be positive, got: %d", cfg.MaxPaginationLimit))
	}

	if cfg.Kafka != nil {
		errors = append(errors, cfg.Kafka.Validate()...)
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return stderrors.New(errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	attrs := []any{
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"performer_cache_ttl", cfg.PerformerCacheTTL,
		"commission_rate_free", cfg.CommissionRateFree,
		"commission_rate_pro", cfg.CommissionRatePro,
		"commission_rate_featured", cfg.CommissionRateFeatured,
		"auto_release_days", cfg.AutoReleaseDays,
		"escrow_sweep_schedule", cfg.EscrowSweepSchedule,
		"event_sweep_schedule", cfg.EventSweepSchedule,
		"max_pagination_limit", cfg.MaxPaginationLimit,
	}
	if cfg.Kafka != nil {
		attrs = append(attrs, cfg.Kafka.LogAttrs()...)
	}
	cfg.Log.Info("Configuration loaded successfully", attrs...)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

// NormalizePaginationLimit clamps limit into [1, max]. Zero or negative
// limits get the default page size.
func NormalizePaginationLimit(limit, maxLimit int) int {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxPaginationLimit
	}
	if limit <= 0 {
		limit = min(DefaultPaginationLimit, maxLimit)
	} else if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
