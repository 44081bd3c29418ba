package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported catalogue drivers.
const (
	DriverCgoSQLite  = "sqlite3"
	DriverPureSQLite = "sqlite"
)

// maxGrayLevels is the largest level count whose square fits in an int32.
const maxGrayLevels = 46340

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string
	LogFormat          string

	DBPath     string
	DBDriver   string
	DBPoolSize int

	WorkerCount int
	GLCMLevels  int
	GLCMDX      int
	GLCMDY      int

	TesseractLanguage string
	IndexDir          string

	AzureAccount     string
	AzureKey         string
	HTTPFetchTimeout time.Duration
	AllowedHosts     []string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob storage credentials are configured.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != ""
}

// LoadFromEnv builds a Config from the environment, reading a .env file
// in the working directory first when one exists.
func LoadFromEnv() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    parseDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_SIZE", 32*1024*1024),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),

		DBPath:     getEnvOrDefault("DB_PATH", "images.db"),
		DBDriver:   getEnvOrDefault("DB_DRIVER", DriverCgoSQLite),
		DBPoolSize: int(parseIntOrDefault("DB_POOL_SIZE", 1)),

		WorkerCount: int(parseIntOrDefault("WORKER_COUNT", 0)),
		GLCMLevels:  int(parseIntOrDefault("GLCM_LEVELS", 64)),
		GLCMDX:      int(parseIntOrDefault("GLCM_DX", 1)),
		GLCMDY:      int(parseIntOrDefault("GLCM_DY", 0)),

		TesseractLanguage: getEnvOrDefault("TESSERACT_LANGUAGE", "eng"),
		IndexDir:          getEnvOrDefault("INDEX_DIR", "index"),

		AzureAccount:     os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:         os.Getenv("AZURE_STORAGE_KEY"),
		HTTPFetchTimeout: parseDurationOrDefault("HTTP_FETCH_TIMEOUT", 30*time.Second),
		AllowedHosts:     parseListOrDefault("ALLOWED_HOSTS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 || c.HTTPFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, shutdown=%s, fetch=%s)",
			c.RequestTimeout, c.ShutdownTimeout, c.HTTPFetchTimeout)
	}
	if c.DBDriver != DriverCgoSQLite && c.DBDriver != DriverPureSQLite {
		return fmt.Errorf("invalid DB_DRIVER: %q (want %q or %q)", c.DBDriver, DriverCgoSQLite, DriverPureSQLite)
	}
	if c.DBPoolSize < 1 {
		return fmt.Errorf("DB_POOL_SIZE must be >= 1 (got %d)", c.DBPoolSize)
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must be >= 0 (got %d)", c.WorkerCount)
	}
	if c.GLCMLevels < 1 || c.GLCMLevels > maxGrayLevels {
		return fmt.Errorf("GLCM_LEVELS must be in [1, %d] (got %d)", maxGrayLevels, c.GLCMLevels)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
