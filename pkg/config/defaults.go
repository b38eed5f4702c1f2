package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "navette"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "5000"

	DefaultTokenTTL = 24 * time.Hour

	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587

	DefaultKafkaBookingTopic = "booking-events"

	DefaultBookingRefPrefix    = "SPE"
	DefaultDriverEarningsShare = 0.7

	DefaultRateLimitRequests      = 10
	DefaultRateLimitWindow        = 1 * time.Hour
	DefaultLoginRateLimitRequests = 5
	DefaultLoginRateLimitWindow   = 1 * time.Hour

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 // 64KB, booking payloads are small

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
