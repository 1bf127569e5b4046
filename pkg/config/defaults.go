package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "turfbook"
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

	DefaultPageSize        = 10
	DefaultPaginationLimit = 100

	DefaultHoldDuration       = 10 * time.Minute
	DefaultReaperInterval     = 1 * time.Minute
	DefaultReaperBatchSize    = 500
	DefaultReaperLeaseTTL     = 2 * time.Minute
	DefaultCancellationCutoff = 2 * time.Hour

	DefaultAdvanceBookingDays       = 30
	DefaultMaxAvailabilityRangeDays = 31

	DefaultTimeZone            = "Asia/Kolkata"
	DefaultOpeningTime         = "06:00"
	DefaultClosingTime         = "16:00"
	DefaultSlotDurationMinutes = 60
	DefaultMaxPlayers          = 10

	DefaultKafkaEnabled = false
)
