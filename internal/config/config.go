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

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Persistence
	DBDriver string
	DBDSN    string

	// Photo storage
	PhotoStore         string
	PhotoDir           string
	AzureAccountName   string
	AzureAccountKey    string
	AzureContainerName string

	// AI report generation
	GeminiAPIKey     string
	GeminiModel      string
	ReportMaxTokens  int
	ReportMinDisplay time.Duration

	// Barcode scanning
	BarcodeDebounceWindow time.Duration
	BarcodeQueueSize      int

	// Capture and OCR
	CaptureQuality float64
	OCRLanguage    string
	OCRWorkers     int

	// Catalogue name matching
	MatchFuzzy bool

	SessionIdleTTL time.Duration
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads configuration from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence over it.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),

		DBDriver: getEnvOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:    getEnvOrDefault("DB_DSN", "catscan.db"),

		PhotoStore:         getEnvOrDefault("PHOTO_STORE", "file"),
		PhotoDir:           getEnvOrDefault("PHOTO_DIR", "photos"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainerName: getEnvOrDefault("AZURE_CONTAINER", "captures"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		ReportMaxTokens:  int(parseIntOrDefault("REPORT_MAX_TOKENS", 2048)),
		ReportMinDisplay: parseDurationOrDefault("REPORT_MIN_DISPLAY", 3*time.Second),

		BarcodeDebounceWindow: parseDurationOrDefault("BARCODE_DEBOUNCE_WINDOW", time.Second),
		BarcodeQueueSize:      int(parseIntOrDefault("BARCODE_QUEUE_SIZE", 32)),

		CaptureQuality: parseFloatOrDefault("CAPTURE_QUALITY", 0.6),
		OCRLanguage:    getEnvOrDefault("OCR_LANGUAGE", "eng"),
		OCRWorkers:     int(parseIntOrDefault("OCR_WORKERS", 0)),

		MatchFuzzy: parseBoolOrDefault("MATCH_FUZZY", true),

		SessionIdleTTL: parseDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.BarcodeDebounceWindow <= 0 || c.SessionIdleTTL <= 0 {
		return fmt.Errorf("durations must be > 0 (got request=%s, debounce=%s, idle=%s)",
			c.RequestTimeout, c.BarcodeDebounceWindow, c.SessionIdleTTL)
	}
	if c.ReportMinDisplay < 0 {
		return fmt.Errorf("REPORT_MIN_DISPLAY must be >= 0 (got %s)", c.ReportMinDisplay)
	}
	if c.BarcodeQueueSize <= 0 {
		return fmt.Errorf("BARCODE_QUEUE_SIZE must be > 0 (got %d)", c.BarcodeQueueSize)
	}
	if c.CaptureQuality <= 0 || c.CaptureQuality > 1 {
		return fmt.Errorf("CAPTURE_QUALITY must be in (0, 1] (got %g)", c.CaptureQuality)
	}
	if c.ReportMaxTokens <= 0 {
		return fmt.Errorf("REPORT_MAX_TOKENS must be > 0 (got %d)", c.ReportMaxTokens)
	}
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, mysql)", c.DBDriver)
	}
	switch c.PhotoStore {
	case "file":
	case "azure":
		if c.AzureAccountName == "" || c.AzureAccountKey == "" {
			return fmt.Errorf("PHOTO_STORE=azure requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
	default:
		return fmt.Errorf("unsupported PHOTO_STORE %q (supported: file, azure)", c.PhotoStore)
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
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
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

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
