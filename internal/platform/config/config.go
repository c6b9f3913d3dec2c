// Package config loads application configuration from environment variables.
// All variables use the MINDMORPH_ prefix.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	API            APIConfig
	Cache          CacheConfig
	Database       DatabaseConfig
	Learning       LearningConfig
	Log            LogConfig
	CurriculumPath string
	SyncInterval   time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// APIConfig holds Remote Content Service settings.
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// CacheConfig selects and configures the local cache store.
type CacheConfig struct {
	Driver string // "memory" or "redis"
	URL    string
	TTL    time.Duration // zero keeps entries until purged
	Prefix string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// attempt history in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// LearningConfig holds generation sizes.
type LearningConfig struct {
	TopicsCount       int
	QuizQuestionCount int
	SessionTTL        time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with MINDMORPH_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MINDMORPH_SERVER_PORT", 8080),
			Host: envStr("MINDMORPH_SERVER_HOST", "0.0.0.0"),
		},
		API: APIConfig{
			BaseURL: envStr("MINDMORPH_API_BASE_URL", "http://localhost:3000"),
			Token:   envStr("MINDMORPH_API_TOKEN", ""),
			Timeout: envDuration("MINDMORPH_API_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			Driver: envStr("MINDMORPH_CACHE_DRIVER", "memory"),
			URL:    envStr("MINDMORPH_CACHE_URL", "redis://localhost:6379"),
			TTL:    envDuration("MINDMORPH_CACHE_TTL", 0),
			Prefix: envStr("MINDMORPH_CACHE_PREFIX", "mindmorph"),
		},
		Database: DatabaseConfig{
			URL:      envStr("MINDMORPH_DATABASE_URL", ""),
			MaxConns: envInt("MINDMORPH_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("MINDMORPH_DATABASE_MIN_CONNS", 1),
		},
		Learning: LearningConfig{
			TopicsCount:       envInt("MINDMORPH_TOPICS_COUNT", 10),
			QuizQuestionCount: envInt("MINDMORPH_QUIZ_QUESTION_COUNT", 5),
			SessionTTL:        envDuration("MINDMORPH_SESSION_TTL", 2*time.Hour),
		},
		Log: LogConfig{
			Level:  envStr("MINDMORPH_LOG_LEVEL", "info"),
			Format: envStr("MINDMORPH_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("MINDMORPH_CURRICULUM_PATH", "./curriculum"),
		SyncInterval:   envDuration("MINDMORPH_SYNC_INTERVAL", time.Minute),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("MINDMORPH_API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("MINDMORPH_API_TIMEOUT must be positive")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("MINDMORPH_CACHE_DRIVER must be 'memory' or 'redis', got %q", c.Cache.Driver)
	}

	if c.Learning.TopicsCount <= 0 {
		return fmt.Errorf("MINDMORPH_TOPICS_COUNT must be positive")
	}
	if c.Learning.QuizQuestionCount <= 0 {
		return fmt.Errorf("MINDMORPH_QUIZ_QUESTION_COUNT must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("MINDMORPH_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}

	return nil
}

// UsesRedis reports whether the cache store is backed by Redis.
func (c *Config) UsesRedis() bool {
	return c.Cache.Driver == "redis"
}

// UsesDatabase reports whether attempt history is kept in PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envDuration accepts Go durations ("45s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
