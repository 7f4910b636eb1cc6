package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string // "sqlite" or "postgres"
		Path     string // sqlite file path
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Chat settings
	Chat struct {
		MaxMessageLength   int
		MaxNameLength      int
		HistoryPageSize    int
		MessageHistoryMax  int
		RateLimitPerMinute int
		CleanupInterval    time.Duration
	}

	// API configuration
	API struct {
		Key            string
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

		// Database config
		instance.Database.Driver = getEnvString("DB_DRIVER", "sqlite")
		instance.Database.Path = getEnvString("DB_PATH", "slimechat.db")
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "slimechat")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		// Chat settings
		instance.Chat.MaxMessageLength = getEnvInt("MAX_MESSAGE_LENGTH", 500)
		instance.Chat.MaxNameLength = getEnvInt("MAX_NAME_LENGTH", 32)
		instance.Chat.HistoryPageSize = getEnvInt("HISTORY_PAGE_SIZE", 50)
		instance.Chat.MessageHistoryMax = getEnvInt("MESSAGE_HISTORY_MAX", 1000)
		instance.Chat.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 30)
		instance.Chat.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute)

		// API config
		instance.API.Key = getEnvString("API_KEY", "")
		instance.API.RateLimit = float64(getEnvInt("API_RATE_LIMIT", 5))
		instance.API.RateLimitBurst = getEnvInt("API_RATE_LIMIT_BURST", 10)
		instance.API.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"})

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
