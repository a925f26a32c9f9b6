// Package config loads service and CLI configuration from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	ChromePath    string
	NoSandbox     bool
	AutoDownload  bool
	Timeout       time.Duration
	ViewportWidth int
}

// StripConfig holds export defaults.
type StripConfig struct {
	IntervalMm    float64
	MinIntervalMm float64
	Scale         float64
	PreviewScale  float64
	MaxSegments   int
}

// PrinterConfig points at the print service.
type PrinterConfig struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	AllowRemote bool
}

// HTTPConfig configures the HTTP service.
type HTTPConfig struct {
	Addr            string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// StoreConfig configures export status records.
type StoreConfig struct {
	RedisURL string
	TTL      time.Duration
}

// StorageConfig configures optional archive upload to S3.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether uploads are configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Browser BrowserConfig
	Strip   StripConfig
	Printer PrinterConfig
	HTTP    HTTPConfig
	Store   StoreConfig
	Storage StorageConfig
}

// Load reads the given .env files (default ".env") into the environment,
// ignoring missing files, and then returns [FromEnv]. Variables already set
// in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_htmlstrip",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Browser = BrowserConfig{
		ChromePath:    getEnv("CHROME_PATH", ""),
		NoSandbox:     parseBool(getEnv("CHROME_NO_SANDBOX", "false")),
		AutoDownload:  parseBool(getEnv("CHROME_AUTO_DOWNLOAD", "false")),
		Timeout:       parseDuration(getEnv("RENDER_TIMEOUT", "30s"), 30*time.Second),
		ViewportWidth: parseInt(getEnv("VIEWPORT_WIDTH", "800"), 800),
	}

	cfg.Strip = StripConfig{
		IntervalMm:    parseFloat(getEnv("CUT_INTERVAL_MM", "0"), 0),
		MinIntervalMm: parseFloat(getEnv("MIN_CUT_INTERVAL_MM", "5"), 5),
		Scale:         parseFloat(getEnv("EXPORT_SCALE", "2"), 2),
		PreviewScale:  parseFloat(getEnv("PREVIEW_SCALE", "1"), 1),
		MaxSegments:   parseInt(getEnv("MAX_SEGMENTS", "500"), 500),
	}

	cfg.Printer = PrinterConfig{
		Endpoint:    getEnv("PRINT_ENDPOINT", "http://localhost:8069/api/print"),
		APIKey:      getEnv("THERMAL_API_TOKEN", ""),
		Timeout:     parseDuration(getEnv("PRINT_TIMEOUT", "30s"), 30*time.Second),
		AllowRemote: parseBool(getEnv("PRINT_ALLOW_REMOTE", "false")),
	}

	cfg.HTTP = HTTPConfig{
		Addr:            getEnv("HTTP_ADDR", ":"+getEnv("PORT", "8080")),
		MaxBodyBytes:    int64(parseInt(getEnv("HTTP_MAX_BODY_MB", "16"), 16)) << 20,
		ShutdownTimeout: parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Store = StoreConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("EXPORT_STATUS_TTL", "24h"), 24*time.Hour),
	}

	cfg.Storage = StorageConfig{
		Bucket:    getEnv("AWS_S3_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		Endpoint:  getEnv("AWS_S3_ENDPOINT", ""),
		Prefix:    getEnv("AWS_S3_PREFIX", "exports/"),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
