package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvEnvFile   = "ENV_FILE"

	EnvJWTSecret            = "JWT_SECRET"
	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldDuration       = "HOLD_DURATION"
	EnvReaperInterval     = "REAPER_INTERVAL"
	EnvReaperBatchSize    = "REAPER_BATCH_SIZE"
	EnvReaperLeaseTTL     = "REAPER_LEASE_TTL"
	EnvCancellationCutoff = "CANCELLATION_CUTOFF"

	EnvAdvanceBookingDays       = "ADVANCE_BOOKING_DAYS"
	EnvMaxAvailabilityRangeDays = "MAX_AVAILABILITY_RANGE_DAYS"

	EnvDefaultTimeZone            = "DEFAULT_TIME_ZONE"
	EnvDefaultOpeningTime         = "DEFAULT_OPENING_TIME"
	EnvDefaultClosingTime         = "DEFAULT_CLOSING_TIME"
	EnvDefaultSlotDurationMinutes = "DEFAULT_SLOT_DURATION_MINUTES"
	EnvDefaultMaxPlayers          = "DEFAULT_MAX_PLAYERS"

	EnvKafkaEnabled = "KAFKA_ENABLED"
)
