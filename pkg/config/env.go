package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr         = "REDIS_ADDR"
	EnvRedisPassword     = "REDIS_PASSWORD"
	EnvRedisDB           = "REDIS_DB"
	EnvPerformerCacheTTL = "PERFORMER_CACHE_TTL"

	EnvCommissionRateFree     = "COMMISSION_RATE_FREE"
	EnvCommissionRatePro      = "COMMISSION_RATE_PRO"
	EnvCommissionRateFeatured = "COMMISSION_RATE_FEATURED"
	EnvAutoReleaseDays        = "AUTO_RELEASE_DAYS"

	EnvEscrowSweepSchedule = "ESCROW_SWEEP_SCHEDULE"
	EnvEventSweepSchedule  = "EVENT_SWEEP_SCHEDULE"
	EnvSweepBatchSize      = "SWEEP_BATCH_SIZE"

	EnvMaxPaginationLimit = "MAX_PAGINATION_LIMIT"
)
