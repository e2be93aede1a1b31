// Package config loads application configuration from defaults, an optional
// YAML file and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string        `yaml:"server_address"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	FrontendURL     string        `yaml:"frontend_url"`

	// Storage
	Storage               string        `yaml:"storage"`
	AWSRegion             string        `yaml:"aws_region"`
	DynamoDBTable         string        `yaml:"dynamodb_table"`
	DynamoDBEndpoint      string        `yaml:"dynamodb_endpoint"`
	IndexName             string        `yaml:"index_name"`
	SearchStrategy        string        `yaml:"search_strategy"`
	BatchMaxRetries       int           `yaml:"batch_max_retries"`
	BatchInitialDelay     time.Duration `yaml:"batch_initial_delay"`
	BatchMaxDelay         time.Duration `yaml:"batch_max_delay"`
	CircuitBreakerEnabled bool          `yaml:"circuit_breaker_enabled"`

	// Events
	EventBusName string `yaml:"event_bus_name"`

	// Authentication
	AuthRequired      bool   `yaml:"auth_required"`
	JWTSecret         string `yaml:"-"`
	JWTPublicKey      string `yaml:"-"`
	CognitoRegion     string `yaml:"cognito_region"`
	CognitoUserPoolID string `yaml:"cognito_user_pool_id"`
	CognitoClientID   string `yaml:"cognito_client_id"`

	// Logging and features
	LogLevel      string `yaml:"log_level"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`

	// File is the YAML overlay this configuration was read from, if any.
	File string `yaml:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ServerAddress:         ":8080",
		Environment:           "development",
		ShutdownTimeout:       30 * time.Second,
		FrontendURL:           "http://localhost:3000",
		Storage:               StorageDynamoDB,
		AWSRegion:             "ap-southeast-2",
		DynamoDBTable:         "Inventory",
		IndexName:             "GSI1",
		SearchStrategy:        "query",
		BatchMaxRetries:       8,
		BatchInitialDelay:     50 * time.Millisecond,
		BatchMaxDelay:         2 * time.Second,
		CircuitBreakerEnabled: true,
		LogLevel:              "info",
		OTLPEndpoint:          "localhost:4317",
	}
}

// LoadConfig loads .env (if present), the YAML file named by CONFIG_FILE
// (if set) and then environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.File = path
	return nil
}

// applyEnv overrides fields whose environment variable is set.
func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	if port := os.Getenv("PORT"); port != "" {
		c.ServerAddress = ":" + strings.TrimPrefix(port, ":")
	}
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)

	c.Storage = strings.ToLower(getEnv("STORAGE", c.Storage))
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.IndexName = getEnv("INDEX_NAME", c.IndexName)
	c.SearchStrategy = strings.ToLower(getEnv("SEARCH_STRATEGY", c.SearchStrategy))
	c.BatchMaxRetries = getEnvInt("BATCH_MAX_RETRIES", c.BatchMaxRetries)
	c.BatchInitialDelay = getEnvDuration("BATCH_INITIAL_DELAY", c.BatchInitialDelay)
	c.BatchMaxDelay = getEnvDuration("BATCH_MAX_DELAY", c.BatchMaxDelay)
	c.CircuitBreakerEnabled = getEnvBool("CIRCUIT_BREAKER_ENABLED", c.CircuitBreakerEnabled)

	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.AuthRequired = getEnvBool("AUTH_REQUIRED", c.AuthRequired)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTPublicKey = getEnv("JWT_PUBLIC_KEY", c.JWTPublicKey)
	c.CognitoRegion = getEnv("COGNITO_REGION", c.CognitoRegion)
	c.CognitoUserPoolID = getEnv("COGNITO_USER_POOL_ID", c.CognitoUserPoolID)
	c.CognitoClientID = getEnv("COGNITO_CLIENT_ID", c.CognitoClientID)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return errors.New("DYNAMODB_TABLE is required")
		}
		if c.IndexName == "" {
			return errors.New("INDEX_NAME is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.SearchStrategy != "query" && c.SearchStrategy != "scan" {
		return fmt.Errorf("unknown search strategy %q", c.SearchStrategy)
	}
	if c.BatchMaxRetries < 0 {
		return errors.New("BATCH_MAX_RETRIES must not be negative")
	}
	if c.BatchInitialDelay > c.BatchMaxDelay {
		return errors.New("BATCH_INITIAL_DELAY must not exceed BATCH_MAX_DELAY")
	}

	if c.AuthRequired && c.JWTSecret == "" && c.JWTPublicKey == "" {
		return errors.New("JWT_SECRET or JWT_PUBLIC_KEY is required when AUTH_REQUIRED is set")
	}
	if c.IsProduction() && c.Storage == StorageMemory {
		return errors.New("memory storage is not allowed in production")
	}
	return nil
}

// JWTEnabled reports whether bearer tokens can be validated.
func (c *Config) JWTEnabled() bool {
	return c.JWTSecret != "" || c.JWTPublicKey != ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
