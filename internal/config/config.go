// Package config provides configuration management for the wallet insights service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Quota     QuotaConfig
	Logging   LoggingConfig
	OneInch   OneInchConfig
	LLM       LLMConfig
	Risk      RiskConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration.
// Analysis history is only recorded when Enabled is true.
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL               time.Duration // leaderboard and snapshot cache entries
	SnapshotFreshness time.Duration // age after which a snapshot is refreshed
}

// RateLimitConfig holds per-client API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// QuotaConfig holds the outbound request budgets shared by all instances
// through Redis. A zero budget leaves that provider unpaced.
type QuotaConfig struct {
	Enabled          bool
	OneInchPerSecond int
	LLMPerMinute     int
	MaxWait          time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OneInchConfig holds 1inch API configuration
type OneInchConfig struct {
	BaseURL      string
	APIKey       string
	ChainID      string
	HistoryLimit int
	Timeout      time.Duration
}

// LLMConfig holds configuration for the OpenAI-compatible insights model
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// RiskConfig holds the contract rule sets used by the risk classifier
type RiskConfig struct {
	ScamContracts     []string
	HighRiskContracts []string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "wallet_insights"),
				User:           getEnv("POSTGRES_USER", "insights"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "wallet_insights"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Cache: CacheConfig{
			TTL:               getEnvAsDuration("CACHE_TTL", 60*time.Second),
			SnapshotFreshness: getEnvAsDuration("SNAPSHOT_FRESHNESS", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Quota: QuotaConfig{
			Enabled:          getEnvAsBool("UPSTREAM_QUOTA_ENABLED", true),
			OneInchPerSecond: getEnvAsInt("ONEINCH_REQUESTS_PER_SECOND", 1),
			LLMPerMinute:     getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 30),
			MaxWait:          getEnvAsDuration("UPSTREAM_QUOTA_MAX_WAIT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OneInch: OneInchConfig{
			BaseURL:      getEnv("ONEINCH_BASE_URL", "https://api.1inch.dev"),
			APIKey:       getEnv("ONEINCH_API_KEY", ""),
			ChainID:      getEnv("ONEINCH_CHAIN_ID", "1"),
			HistoryLimit: getEnvAsInt("ONEINCH_HISTORY_LIMIT", 50),
			Timeout:      getEnvAsDuration("ONEINCH_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "meta-llama/llama-4-maverick-17b-128e-instruct"),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 1),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Risk: RiskConfig{
			ScamContracts:     getEnvAsList("RISK_SCAM_CONTRACTS", nil),
			HighRiskContracts: getEnvAsList("RISK_HIGH_RISK_CONTRACTS", nil),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	if c.Cache.SnapshotFreshness <= 0 {
		return fmt.Errorf("SNAPSHOT_FRESHNESS must be positive, got %s", c.Cache.SnapshotFreshness)
	}
	if c.OneInch.HistoryLimit <= 0 {
		return fmt.Errorf("ONEINCH_HISTORY_LIMIT must be positive, got %d", c.OneInch.HistoryLimit)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %.2f rps burst %d", c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	if c.Quota.OneInchPerSecond < 0 || c.Quota.LLMPerMinute < 0 {
		return fmt.Errorf("upstream quotas cannot be negative")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
