package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Chart auto-selection
	MaxAutoSeries      int
	SchemaPollAttempts int
	SchemaPollInterval time.Duration

	// Session lifecycle
	SessionTTL             time.Duration
	SessionCleanupSchedule string

	// Preview formatting
	FormatScript string
	Locale       string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-viz"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-viz"),

		MaxAutoSeries:      getEnvInt("MAX_AUTO_SERIES", 10),
		SchemaPollAttempts: getEnvInt("SCHEMA_POLL_ATTEMPTS", 10),
		SchemaPollInterval: time.Duration(getEnvInt("SCHEMA_POLL_INTERVAL_MS", 16)) * time.Millisecond,

		SessionTTL:             time.Duration(getEnvInt("SESSION_TTL_HOURS", 72)) * time.Hour,
		SessionCleanupSchedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@hourly"),

		FormatScript: getEnv("FORMAT_SCRIPT", ""),
		Locale:       getEnv("LOCALE", "en"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}
