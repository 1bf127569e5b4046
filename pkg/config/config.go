package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	"turfbook/pkg/auth"
	"turfbook/pkg/client"
	"turfbook/pkg/logger"

	"github.com/joho/godotenv"
)

var (
	timeOfDayRegex  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port      string
	LogLevel  string
	LogFormat string

	JWTSecret            string
	PaymentWebhookSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	HoldDuration       time.Duration
	ReaperInterval     time.Duration
	ReaperBatchSize    int
	ReaperLeaseTTL     time.Duration
	CancellationCutoff time.Duration

	AdvanceBookingDays       int
	MaxAvailabilityRangeDays int

	DefaultTimeZone            string
	DefaultOpeningTime         string
	DefaultClosingTime         string
	DefaultSlotDurationMinutes int
	DefaultMaxPlayers          int

	KafkaEnabled bool

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (plus an optional .env file), validates the
// result and exits the process when the configuration is unusable.
func Load(serviceName string) *Config {
	loadEnvFile()

	cfg := FromEnv()
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

// FromEnv builds a Config from environment variables without side effects.
// Log and Client are left nil.
func FromEnv() *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:      getEnvStr(EnvPort, DefaultPort),
		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		JWTSecret:            getEnvStr(EnvJWTSecret, ""),
		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HoldDuration:       getEnvDuration(EnvHoldDuration, DefaultHoldDuration),
		ReaperInterval:     getEnvDuration(EnvReaperInterval, DefaultReaperInterval),
		ReaperBatchSize:    getEnvNum(EnvReaperBatchSize, DefaultReaperBatchSize),
		ReaperLeaseTTL:     getEnvDuration(EnvReaperLeaseTTL, DefaultReaperLeaseTTL),
		CancellationCutoff: getEnvDuration(EnvCancellationCutoff, DefaultCancellationCutoff),

		AdvanceBookingDays:       getEnvNum(EnvAdvanceBookingDays, DefaultAdvanceBookingDays),
		MaxAvailabilityRangeDays: getEnvNum(EnvMaxAvailabilityRangeDays, DefaultMaxAvailabilityRangeDays),

		DefaultTimeZone:            getEnvStr(EnvDefaultTimeZone, DefaultTimeZone),
		DefaultOpeningTime:         getEnvStr(EnvDefaultOpeningTime, DefaultOpeningTime),
		DefaultClosingTime:         getEnvStr(EnvDefaultClosingTime, DefaultClosingTime),
		DefaultSlotDurationMinutes: getEnvNum(EnvDefaultSlotDurationMinutes, DefaultSlotDurationMinutes),
		DefaultMaxPlayers:          getEnvNum(EnvDefaultMaxPlayers, DefaultMaxPlayers),

		KafkaEnabled: getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
	}
}

func loadEnvFile() {
	path := getEnvStr(EnvEnvFile, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	// existing environment variables win over the file
	_ = godotenv.Load(path)
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
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
		{"HoldDuration", cfg.HoldDuration},
		{"ReaperInterval", cfg.ReaperInterval},
		{"ReaperLeaseTTL", cfg.ReaperLeaseTTL},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.CancellationCutoff < 0 {
		errors = append(errors, fmt.Sprintf("CancellationCutoff cannot be negative, got: %s", cfg.CancellationCutoff))
	}
	if cfg.ReaperLeaseTTL > 0 && cfg.ReaperLeaseTTL < cfg.ReaperInterval {
		errors = append(errors, fmt.Sprintf("ReaperLeaseTTL (%s) must be >= ReaperInterval (%s)", cfg.ReaperLeaseTTL, cfg.ReaperInterval))
	}

	positiveNums := []struct {
		name  string
		value int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"ReaperBatchSize", cfg.ReaperBatchSize},
		{"AdvanceBookingDays", cfg.AdvanceBookingDays},
		{"MaxAvailabilityRangeDays", cfg.MaxAvailabilityRangeDays},
		{"DefaultSlotDurationMinutes", cfg.DefaultSlotDurationMinutes},
		{"DefaultMaxPlayers", cfg.DefaultMaxPlayers},
	}
	for _, n := range positiveNums {
		if n.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %d", n.name, n.value))
		}
	}

	if !timeOfDayRegex.MatchString(cfg.DefaultOpeningTime) {
		errors = append(errors, fmt.Sprintf("DefaultOpeningTime must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultOpeningTime))
	}
	if !timeOfDayRegex.MatchString(cfg.DefaultClosingTime) {
		errors = append(errors, fmt.Sprintf("DefaultClosingTime must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultClosingTime))
	}
	if timeOfDayRegex.MatchString(cfg.DefaultOpeningTime) && timeOfDayRegex.MatchString(cfg.DefaultClosingTime) &&
		cfg.DefaultClosingTime <= cfg.DefaultOpeningTime {
		errors = append(errors, fmt.Sprintf("DefaultClosingTime (%s) must be after DefaultOpeningTime (%s)", cfg.DefaultClosingTime, cfg.DefaultOpeningTime))
	}

	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("DefaultTimeZone is not a valid IANA zone, got: %s", cfg.DefaultTimeZone))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// ValidateAuth checks the secrets an HTTP service needs before it can
// authenticate callers. Background jobs never call it.
func (cfg *Config) ValidateAuth() error {
	if err := auth.CheckSecret(cfg.JWTSecret); err != nil {
		return fmt.Errorf("%s: %w", EnvJWTSecret, err)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_duration", cfg.HoldDuration,
		"reaper_interval", cfg.ReaperInterval,
		"reaper_batch_size", cfg.ReaperBatchSize,
		"reaper_lease_ttl", cfg.ReaperLeaseTTL,
		"cancellation_cutoff", cfg.CancellationCutoff,
		"advance_booking_days", cfg.AdvanceBookingDays,
		"max_availability_range_days", cfg.MaxAvailabilityRangeDays,
		"default_time_zone", cfg.DefaultTimeZone,
		"default_opening_time", cfg.DefaultOpeningTime,
		"default_closing_time", cfg.DefaultClosingTime,
		"default_slot_duration_minutes", cfg.DefaultSlotDurationMinutes,
		"default_max_players", cfg.DefaultMaxPlayers,
		"kafka_enabled", cfg.KafkaEnabled,
	)
}

// Location resolves DefaultTimeZone, falling back to UTC.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func redactMongoURI(uri string) string {
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

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, DefaultPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
