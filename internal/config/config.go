// Package config provides environment-based configuration management
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RedisConfig holds Redis connection parameters
type RedisConfig struct {
	Addr     string // Format: host:port
	Prefix   string // Cache key namespace
	CacheTTL time.Duration
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Port      int
	APIKey    string // Shared secret for broadcast triggers
	AppSecret string // HMAC secret for carrier webhooks
}

// TwilioConfig holds carrier credentials
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// UpstreamConfig holds collaborator service endpoints
type UpstreamConfig struct {
	NorthstarBaseURI string
	NorthstarAPIKey  string
	ContentBaseURI   string
	ContentAPIKey    string
	DialogueBaseURI  string
}

// Config aggregates all configuration sections
type Config struct {
	DB       DBConfig
	Redis    RedisConfig
	App      AppConfig
	Twilio   TwilioConfig
	Upstream UpstreamConfig
}

// LoadConfig reads configuration from environment variables
// Returns error if critical variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Database Configuration
	cfg.DB.Host = getEnv("DB_HOST", "campaign_chat_db")
	cfg.DB.Port = getEnvAsInt("DB_PORT", 3306)
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = getEnv("DB_PASS", "")
	cfg.DB.Database = getEnv("DB_NAME", "campaign_chat")

	if cfg.DB.Password == "" {
		return nil, fmt.Errorf("DB_PASS environment variable is required")
	}

	// Redis Configuration
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "campaign_chat_redis:6379")
	cfg.Redis.Prefix = getEnv("REDIS_PREFIX", "replies")
	cfg.Redis.CacheTTL = time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 1800)) * time.Second

	// Application Configuration
	cfg.App.Port = getEnvAsInt("APP_PORT", 8080)
	cfg.App.APIKey = getEnv("API_KEY", "")
	cfg.App.AppSecret = getEnv("APP_SECRET", "")

	if cfg.App.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable is required")
	}
	if cfg.App.AppSecret == "" {
		return nil, fmt.Errorf("APP_SECRET environment variable is required")
	}

	// Carrier Configuration
	cfg.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.FromNumber = getEnv("TWILIO_FROM_NUMBER", "")

	if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN environment variables are required")
	}

	// Upstream Collaborators
	cfg.Upstream.NorthstarBaseURI = getEnv("NORTHSTAR_BASEURI", "http://localhost:5100/v2")
	cfg.Upstream.NorthstarAPIKey = getEnv("NORTHSTAR_API_KEY", "")
	cfg.Upstream.ContentBaseURI = getEnv("CONTENT_API_BASEURI", "http://localhost:5200/v1")
	cfg.Upstream.ContentAPIKey = getEnv("CONTENT_API_KEY", "")
	cfg.Upstream.DialogueBaseURI = getEnv("DIALOGUE_BASEURI", "http://localhost:5300/v1")

	return cfg, nil
}

// GetDSN returns MariaDB connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// getEnv reads environment variable with fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads environment variable as integer with fallback default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
