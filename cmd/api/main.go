package main

import (
	"context"

	"github.com/joho/godotenv"

	"navette/internal/auth"
	bookinghandler "navette/internal/bookings/handler"
	bookingrepo "navette/internal/bookings/repository"
	bookingservice "navette/internal/bookings/service"
	bookingvalidator "navette/internal/bookings/validator"
	driverhandler "navette/internal/drivers/handler"
	driverrepo "navette/internal/drivers/repository"
	driverservice "navette/internal/drivers/service"
	drivervalidator "navette/internal/drivers/validator"
	earningshandler "navette/internal/earnings/handler"
	earningsservice "navette/internal/earnings/service"
	"navette/pkg/app"
	"navette/pkg/config"
	"navette/pkg/events"
	httputil "navette/pkg/http"
	"navette/pkg/mail"
	"navette/pkg/middleware"
	"navette/pkg/token"
)

const ServiceName = "navette-api"

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	// Load validates the configuration and logs it with secrets redacted.
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting API service")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	serverApp := app.NewApplication(cfg)

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	writer := httputil.NewWriter(!cfg.Production)
	authMW := auth.NewMiddleware(tokens, writer, cfg.Log)
	adminCreds := auth.AdminCredentials{
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminPasswordHash,
	}

	mailer := mail.New(mail.Config{
		Host:         cfg.SMTPHost,
		Port:         cfg.SMTPPort,
		Username:     cfg.SMTPUser,
		Password:     cfg.SMTPPassword,
		From:         cfg.SMTPFrom,
		AdminAddress: cfg.AdminNotifyAddress,
	})

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaBookingTopic)
		cfg.Log.Info("Kafka publisher enabled", "topic", cfg.KafkaBookingTopic)
	} else {
		publisher = events.NoopPublisher{}
		cfg.Log.Info("Kafka brokers not configured, events disabled")
	}
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})

	bookingValidator, err := bookingvalidator.NewBookingValidator()
	if err != nil {
		cfg.Log.Fatal("Failed to build booking validator", "error", err)
	}
	driverValidator, err := drivervalidator.NewDriverValidator()
	if err != nil {
		cfg.Log.Fatal("Failed to build driver validator", "error", err)
	}

	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	driverRepo := driverrepo.NewMongoDriverRepository(cfg)
	ensureIndexes(cfg, bookingRepo, driverRepo)

	driverSvc := driverservice.NewDriverService(driverRepo, driverValidator, cfg, tokens, bookingRepo)
	bookingSvc := bookingservice.NewBookingService(bookingRepo, bookingValidator, cfg, mailer, publisher, driverSvc)
	earningsSvc := earningsservice.NewEarningsService(bookingRepo, cfg)

	publicLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.Log)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimitRequests, cfg.LoginRateLimitWindow, cfg.Log)
	serverApp.OnShutdown(publicLimiter.Stop)
	serverApp.OnShutdown(loginLimiter.Stop)

	serverApp.SetApp(
		bookinghandler.NewBookingHandler(bookingSvc, authMW, publicLimiter, writer, cfg.Log),
		driverhandler.NewDriverHandler(driverSvc, bookingSvc, authMW, adminCreds, tokens, loginLimiter, writer, cfg.Log),
		earningshandler.NewEarningsHandler(earningsSvc, authMW, writer, cfg.Log),
	)
	serverApp.Run()
}

func ensureIndexes(cfg *config.Config, bookings bookingrepo.BookingRepository, drivers driverrepo.DriverRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()

	if err := bookings.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure booking indexes", "error", err)
	}
	if err := drivers.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure driver indexes", "error", err)
	}
	cfg.Log.Info("Database indexes ensured")
}
