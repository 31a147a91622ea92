package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Config struct {
	Validator *validator.Validate
	SecretKey string
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port             string
	Environment      string
	DatabasePath     string
	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableLogging    bool
	LoggingLevel     string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string
	AlertFrom        string
	AlertTo          string
	CallbackRate     int
	LogRetentionDays int
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
			// falls back to a random key, which invalidates tokens on restart
			SecretKey: GetEnv("JWT_SECRET", uuid.New().String()),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:             GetEnv("APP_PORT", "9999"),
			Environment:      GetEnv("ENVIRONMENT", "development"),
			DatabasePath:     GetEnv("DATABASE_PATH", "paybridge.db"),
			OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:    GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", true),
			LoggingLevel:     GetEnv("LOGGING_LEVEL", "info"),
			SMTPHost:         GetEnv("SMTP_HOST", ""),
			SMTPPort:         GetIntEnv("SMTP_PORT", 587),
			SMTPUser:         GetEnv("SMTP_USER", ""),
			SMTPPass:         GetEnv("SMTP_PASSWORD", ""),
			AlertFrom:        GetEnv("ALERT_FROM", "paybridge@localhost"),
			AlertTo:          GetEnv("ALERT_TO", ""),
			CallbackRate:     GetIntEnv("CALLBACK_RATE_LIMIT", 100),
			LogRetentionDays: GetIntEnv("LOG_RETENTION_DAYS", 30),
		}
	}
	return appConfigInstance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
