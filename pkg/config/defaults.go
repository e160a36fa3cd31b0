package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "gigmarket"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisAddr         = ""
	DefaultRedisDB           = 0
	DefaultPerformerCacheTTL = 30 * time.Second

	DefaultCommissionRateFree     = 15.0
	DefaultCommissionRatePro      = 10.0
	DefaultCommissionRateFeatured = 8.0
	DefaultAutoReleaseDays        = 7

	DefaultEscrowSweepSchedule = "@every 1h"
	DefaultEventSweepSchedule  = "@every 15m"
	DefaultSweepBatchSize      = 200

	DefaultPaginationLimit    = 20
	DefaultMaxPaginationLimit = 100

	MinJWTSecretLength = 16
)
