package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// BaseURL is the externally reachable origin used to build the
	// confirm-receipt links embedded in SMS bodies and QR codes.
	BaseURL string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Maps      MapsConfig
	SMS       SMSConfig
	RateLimit RateLimitConfig

	SeedVolunteers bool
}

// MapsConfig points the route optimizer at a directions provider.
type MapsConfig struct {
	BaseURL  string
	APIKey   string
	Mode     string
	Language string
}

// SMSConfig configures the delivery notification provider. When the
// account SID or token is empty the notifier falls back to log-only mode.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// RateLimitConfig guards the public confirm-receipt endpoint.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ConfirmRate   float64
	ConfirmBurst  int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "mealtrack"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,

		BaseURL: strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mealtrack"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		Maps: MapsConfig{
			BaseURL:  getenv("MAPS_BASE_URL", "https://maps.googleapis.com"),
			APIKey:   strings.TrimSpace(getenv("MAPS_API_KEY", "")),
			Mode:     getenv("MAPS_MODE", "driving"),
			Language: getenv("MAPS_LANGUAGE", "zh-TW"),
		},
		SMS: SMSConfig{
			BaseURL:    getenv("SMS_BASE_URL", "https://api.twilio.com"),
			AccountSID: strings.TrimSpace(getenv("SMS_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(getenv("SMS_AUTH_TOKEN", "")),
			FromNumber: strings.TrimSpace(getenv("SMS_FROM_NUMBER", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       int(getenvInt64("RATE_LIMIT_REDIS_DB", 0)),
			ConfirmRate:   getenvFloat("RATE_LIMIT_CONFIRM_RATE", 1),
			ConfirmBurst:  int(getenvInt64("RATE_LIMIT_CONFIRM_BURST", 10)),
		},

		SeedVolunteers: getenvBool("SEED_VOLUNTEERS", environment != "production"),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
