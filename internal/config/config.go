package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Fetcher  FetcherConfig
	Extract  ExtractConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type FetcherConfig struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	PolitenessMin  time.Duration
	PolitenessMax  time.Duration
}

type ExtractConfig struct {
	Profile             string
	MaxTreeRecords      int
	MaxSelectorElements int
	MaxTableRows        int
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Fetcher: FetcherConfig{
			Timeout:        getDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
			UserAgent:      getEnvOrDefault("FETCH_USER_AGENT", ""),
			AcceptLanguage: getEnvOrDefault("FETCH_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			PolitenessMin:  getDurationOrDefault("FETCH_POLITENESS_MIN", 0),
			PolitenessMax:  getDurationOrDefault("FETCH_POLITENESS_MAX", 0),
		},
		Extract: ExtractConfig{
			Profile:             getEnvOrDefault("EXTRACT_PROFILE", "product"),
			MaxTreeRecords:      getIntOrDefault("EXTRACT_MAX_TREE_RECORDS", 200),
			MaxSelectorElements: getIntOrDefault("EXTRACT_MAX_SELECTOR_ELEMENTS", 100),
			MaxTableRows:        getIntOrDefault("EXTRACT_MAX_TABLE_ROWS", 100),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", true),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "pagelens"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			CacheTTL: getDurationOrDefault("REDIS_CACHE_TTL", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Fetcher.Timeout < 5*time.Second || c.Fetcher.Timeout > 10*time.Second {
		return fmt.Errorf("FETCH_TIMEOUT must be between 5s and 10s")
	}

	if c.Fetcher.PolitenessMin > c.Fetcher.PolitenessMax {
		return fmt.Errorf("FETCH_POLITENESS_MIN cannot be greater than FETCH_POLITENESS_MAX")
	}

	if c.Extract.MaxTreeRecords < 1 || c.Extract.MaxSelectorElements < 1 || c.Extract.MaxTableRows < 1 {
		return fmt.Errorf("extraction caps must be at least 1")
	}

	switch c.Extract.Profile {
	case "product", "article":
	default:
		return fmt.Errorf("EXTRACT_PROFILE must be product or article")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
