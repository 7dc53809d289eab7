package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderSupabase = "supabase"
	ProviderLocal    = "local"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Identity
	IdentityProvider string
	SupabaseURL      string
	SupabaseAnonKey  string
	IdentityTimeout  time.Duration
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	OTPTTL           time.Duration

	// Redis backs the logout deny-list for locally issued tokens.
	RedisURL string

	// Queues
	RabbitMQURL       string
	GenerationQueue   string
	NotificationQueue string
	PublishTimeout    time.Duration

	SubscriptionSweepInterval time.Duration

	// Observability
	SentryDSN string
	AppEnv    string

	// Server
	Port        string
	CORSOrigins string

	// Legal pages
	AppName      string
	SupportEmail string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "drawtopia"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		IdentityProvider: strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderSupabase)),
		SupabaseURL:      getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:  getEnv("SUPABASE_ANON_KEY", ""),
		IdentityTimeout:  parseDuration(getEnv("IDENTITY_TIMEOUT", "10s"), 10*time.Second),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "168h"), 168*time.Hour),
		OTPTTL:           parseDuration(getEnv("OTP_TTL", "10m"), 10*time.Minute),

		RedisURL: getEnv("REDIS_URL", ""),

		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		GenerationQueue:   getEnv("GENERATION_QUEUE", "story_generation_tasks"),
		NotificationQueue: getEnv("NOTIFICATION_QUEUE", "notifications"),
		PublishTimeout:    parseDuration(getEnv("PUBLISH_TIMEOUT", "5s"), 5*time.Second),

		SubscriptionSweepInterval: parseDuration(getEnv("SUBSCRIPTION_SWEEP_INTERVAL", "1h"), time.Hour),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		AppName:      getEnv("APP_NAME", "Drawtopia"),
		SupportEmail: getEnv("SUPPORT_EMAIL", "support@drawtopia.app"),
	}
}

// Validate reports the first missing setting the selected identity provider
// needs to start.
func (c *Config) Validate() error {
	switch c.IdentityProvider {
	case ProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase identity provider")
		}
	case ProviderLocal:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the local identity provider")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q (want supabase or local)", c.IdentityProvider)
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
