package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort        = "PORT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvEnvironment = "APP_ENV"

	EnvJWTSecret = "JWT_SECRET"
	EnvTokenTTL  = "TOKEN_TTL"

	EnvAdminEmail        = "ADMIN_EMAIL"
	EnvAdminPasswordHash = "ADMIN_PASSWORD_HASH"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUser     = "SMTP_USER"
	EnvSMTPPassword = "SMTP_PASS"
	EnvSMTPFrom     = "SMTP_FROM"
	EnvAdminNotify  = "ADMIN_NOTIFY_ADDRESS"

	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaBookingTopic = "KAFKA_BOOKING_TOPIC"

	EnvBookingRefPrefix    = "BOOKING_REF_PREFIX"
	EnvDriverEarningsShare = "DRIVER_EARNINGS_SHARE"

	EnvRateLimitRequests      = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow        = "RATE_LIMIT_WINDOW"
	EnvLoginRateLimitRequests = "LOGIN_RATE_LIMIT_REQUESTS"
	EnvLoginRateLimitWindow   = "LOGIN_RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
