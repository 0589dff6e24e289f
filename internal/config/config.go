package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Poll     PollConfig
	Screen   ScreenConfig
	Storage  StorageConfig
	Redis    RedisConfig
	JWT      JWTConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
	// ExportRateLimit is the number of exports a user may trigger per minute
	ExportRateLimit int
}

// UpstreamConfig points at the remote attendance API
type UpstreamConfig struct {
	BaseURL       string
	Token         string
	ClientID      string
	ClientSecret  string
	TokenURL      string
	Scopes        []string
	ListTimeout   time.Duration
	ExportTimeout time.Duration

	// MaxReportBytes caps a downloaded report
	MaxReportBytes int64
}

type PollConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

type ScreenConfig struct {
	Rows    int
	IdleTTL time.Duration
}

// StorageConfig holds generated report files
type StorageConfig struct {
	Type        string
	BasePath    string
	BaseURL     string
	ArtifactTTL time.Duration
	// KeepServed leaves downloaded reports in place until the artifact sweep
	KeepServed bool
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	LookupTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	StreamTokenTTL time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}
	var err error

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	exportRate, err := getEnvInt("EXPORT_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	config.App = AppConfig{
		Port:            appPort,
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getEnvSlice("CORS_ORIGINS"),
		ExportRateLimit: exportRate,
	}

	// Upstream configuration
	config.Upstream = UpstreamConfig{
		BaseURL:      getEnv("UPSTREAM_BASE_URL", ""),
		Token:        getEnv("UPSTREAM_TOKEN", ""),
		ClientID:     getEnv("UPSTREAM_CLIENT_ID", ""),
		ClientSecret: getEnv("UPSTREAM_CLIENT_SECRET", ""),
		TokenURL:     getEnv("UPSTREAM_TOKEN_URL", ""),
		Scopes:       getEnvSlice("UPSTREAM_SCOPES"),
	}
	if config.Upstream.ListTimeout, err = getEnvDuration("UPSTREAM_LIST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.Upstream.ExportTimeout, err = getEnvDuration("UPSTREAM_EXPORT_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	maxReport, err := getEnvInt("UPSTREAM_MAX_REPORT_BYTES", 50<<20)
	if err != nil {
		return nil, err
	}
	config.Upstream.MaxReportBytes = int64(maxReport)

	// Metrics poller configuration
	if config.Poll.Interval, err = getEnvDuration("POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if config.Poll.Timeout, err = getEnvDuration("POLL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Screen session configuration
	if config.Screen.Rows, err = getEnvInt("SCREEN_ROWS", 10); err != nil {
		return nil, err
	}
	if config.Screen.IdleTTL, err = getEnvDuration("SCREEN_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	// Storage configuration
	config.Storage = StorageConfig{
		Type:       getEnv("STORAGE_TYPE", "local"),
		BasePath:   getEnv("STORAGE_BASE_PATH", "./exports"),
		BaseURL:    getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%d/api/v1/downloads", appPort)),
		KeepServed: getEnvBool("STORAGE_KEEP_SERVED", false),
	}
	if config.Storage.ArtifactTTL, err = getEnvDuration("STORAGE_ARTIFACT_TTL", time.Hour); err != nil {
		return nil, err
	}

	// Redis configuration
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}
	if config.Redis.LookupTTL, err = getEnvDuration("REDIS_LOOKUP_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}
	if config.JWT.StreamTokenTTL, err = getEnvDuration("JWT_STREAM_TOKEN_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if c.Upstream.ClientID != "" && c.Upstream.TokenURL == "" {
		return fmt.Errorf("UPSTREAM_TOKEN_URL is required with UPSTREAM_CLIENT_ID")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Screen.Rows <= 0 {
		return fmt.Errorf("SCREEN_ROWS must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.Upstream.MaxReportBytes <= 0 {
		return fmt.Errorf("UPSTREAM_MAX_REPORT_BYTES must be positive")
	}
	if c.App.ExportRateLimit <= 0 {
		return fmt.Errorf("EXPORT_RATE_LIMIT must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
