package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const otpPurgeInterval = time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	stdout := logging.Setup(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, logging.DefaultRetention, cleanupDone)

	// Job queue
	publisher := openPublisher(cfg)

	// Repositories
	users := repository.NewUserRepository(db)
	children := repository.NewChildRepository(db)
	stories := repository.NewStoryRepository(db)
	credentials := repository.NewCredentialRepository(db)

	// Identity
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = identity.OpenRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Error("redis unavailable, token revocation disabled", "error", err)
			redisClient = nil
		}
	}
	provider, err := openProvider(cfg, credentials, publisher, redisClient)
	if err != nil {
		slog.Error("identity provider setup failed", "provider", cfg.IdentityProvider, "error", err)
		os.Exit(1)
	}
	gateway := identity.NewGateway(provider, users)
	slog.Info("identity provider ready", "provider", cfg.IdentityProvider)

	// Services
	profileService := services.NewProfileService(users, children)
	moderationService := services.NewModerationService()
	storyService := services.NewStoryService(services.StoryDeps{
		Stories:        stories,
		Children:       children,
		Users:          users,
		Publisher:      publisher,
		Payments:       services.StubPayments{},
		Moderation:     moderationService,
		PublishTimeout: cfg.PublishTimeout,
	})
	subscriptionService := services.NewSubscriptionService(users)

	sweepDone := make(chan struct{})
	subscriptionService.StartSweeper(cfg.SubscriptionSweepInterval, sweepDone)
	if cfg.IdentityProvider == config.ProviderLocal {
		startOTPPurge(credentials, sweepDone)
	}

	// Handlers
	h := routes.Handlers{
		Auth:   handlers.NewAuthHandler(gateway, profileService),
		User:   handlers.NewUserHandler(profileService),
		Story:  handlers.NewStoryHandler(storyService),
		Health: handlers.NewHealthHandler(func() error { return database.Ping(db) }),
		Legal:  handlers.NewLegalHandler(cfg.AppName, cfg.SupportEmail),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, gateway, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(sweepDone)
	close(cleanupDone)
	if err := publisher.Close(); err != nil {
		slog.Error("queue close error", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// openPublisher connects to RabbitMQ when configured. Without a broker,
// tasks are only logged so the API stays usable in development.
func openPublisher(cfg *config.Config) queue.Publisher {
	if cfg.RabbitMQURL == "" {
		slog.Warn("RABBITMQ_URL not set, generation tasks will only be logged")
		return queue.NewLogPublisher(slog.Default())
	}
	conn, err := queue.Dial(cfg.RabbitMQURL)
	if err != nil {
		slog.Error("rabbitmq connection failed", "error", err)
		os.Exit(1)
	}
	pub, err := queue.NewRabbitPublisher(conn, cfg.GenerationQueue, cfg.NotificationQueue)
	if err != nil {
		_ = conn.Close()
		slog.Error("rabbitmq setup failed", "error", err)
		os.Exit(1)
	}
	return pub
}

func openProvider(cfg *config.Config, creds *repository.CredentialRepository, notifier identity.Notifier, rdb *redis.Client) (identity.Provider, error) {
	if cfg.IdentityProvider == config.ProviderLocal {
		var revoker identity.Revoker = identity.NoopRevoker{}
		if rdb != nil {
			revoker = identity.NewRedisRevoker(rdb)
		}
		return identity.NewLocalProvider(creds, notifier, revoker, identity.LocalConfig{
			Secret:       cfg.JWTSecret,
			AccessExpiry: cfg.JWTAccessExpiry,
			OTPTTL:       cfg.OTPTTL,
		})
	}
	return identity.NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.IdentityTimeout)
}

// startOTPPurge removes expired passcodes hourly until done is closed.
func startOTPPurge(creds *repository.CredentialRepository, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(otpPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := creds.PurgeExpiredOTPs(ctx, time.Now())
				cancel()
				if err != nil {
					slog.Error("otp purge failed", "action", "otp_purge", "error", err)
				} else if n > 0 {
					slog.Info("expired otps purged", "action", "otp_purge", "deleted", n)
				}
			case <-done:
				return
			}
		}
	}()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
