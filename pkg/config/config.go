package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"navette/pkg/client"
	"navette/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port       string
	Production bool

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail        string
	AdminPasswordHash string

	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPFrom           string
	AdminNotifyAddress string

	KafkaBrokers      []string
	KafkaBookingTopic string

	BookingRefPrefix    string
	DriverEarningsShare float64

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:       getEnvStr(EnvPort, DefaultPort),
		Production: getEnvStr(EnvEnvironment, "") == "production",

		JWTSecret: getEnvStr(EnvJWTSecret, ""),
		TokenTTL:  getEnvDuration(EnvTokenTTL, DefaultTokenTTL),

		AdminEmail:        getEnvStr(EnvAdminEmail, ""),
		AdminPasswordHash: getEnvStr(EnvAdminPasswordHash, ""),

		SMTPHost:           getEnvStr(EnvSMTPHost, DefaultSMTPHost),
		SMTPPort:           getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUser:           getEnvStr(EnvSMTPUser, ""),
		SMTPPassword:       getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:           getEnvStr(EnvSMTPFrom, ""),
		AdminNotifyAddress: getEnvStr(EnvAdminNotify, ""),

		KafkaBrokers:      getEnvList(EnvKafkaBrokers),
		KafkaBookingTopic: getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),

		BookingRefPrefix:    getEnvStr(EnvBookingRefPrefix, DefaultBookingRefPrefix),
		DriverEarningsShare: getEnvFloat(EnvDriverEarningsShare, DefaultDriverEarningsShare),

		RateLimitRequests:      getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:        getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		LoginRateLimitRequests: getEnvNum(EnvLoginRateLimitRequests, DefaultLoginRateLimitRequests),
		LoginRateLimitWindow:   getEnvDuration(EnvLoginRateLimitWindow, DefaultLoginRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, "JWTSecret cannot be empty")
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, fmt.Sprintf("TokenTTL must be positive, got: %s", cfg.TokenTTL))
	}

	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		errs = append(errs, "AdminEmail and AdminPasswordHash must both be set")
	}

	if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if cfg.DriverEarningsShare <= 0 || cfg.DriverEarningsShare > 1 {
		errs = append(errs, fmt.Sprintf("DriverEarningsShare must be in (0, 1], got: %v", cfg.DriverEarningsShare))
	}
	if cfg.BookingRefPrefix == "" {
		errs = append(errs, "BookingRefPrefix cannot be empty")
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.LoginRateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("LoginRateLimitRequests must be positive, got: %d", cfg.LoginRateLimitRequests))
	}
	if cfg.LoginRateLimitWindow <= 0 {
		errs = append(errs, fmt.Sprintf("LoginRateLimitWindow must be positive, got: %s", cfg.LoginRateLimitWindow))
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"production", cfg.Production,
		"jwt_secret_set", cfg.JWTSecret != "",
		"token_ttl", cfg.TokenTTL,
		"admin_email_set", cfg.AdminEmail != "",
		"smtp_host", cfg.SMTPHost,
		"smtp_port", cfg.SMTPPort,
		"smtp_user_set", cfg.SMTPUser != "",
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_booking_topic", cfg.KafkaBookingTopic,
		"booking_ref_prefix", cfg.BookingRefPrefix,
		"driver_earnings_share", cfg.DriverEarningsShare,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"login_rate_limit_requests", cfg.LoginRateLimitRequests,
		"login_rate_limit_window", cfg.LoginRateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
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

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
