package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Image limits
	MaxImageBytes     int64
	MaxImagePixels    int
	MaxConcurrentJobs int

	// Output
	DefaultFormat   string
	DefaultQuality  int
	PreviewMaxBytes int
	PreviewSize     int

	// Backends
	FetchBackend    string
	ArtifactBackend string
	OutputDir       string
	DatabasePath    string

	// Azure
	AzureAccountName       string
	AzureAccountKey        string
	AzureArtifactContainer string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	outputDir := getEnvOrDefault("OUTPUT_DIR", filepath.Join(os.TempDir(), "image-enhancer"))

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 1024*1024), // 1MB
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),

		MaxImageBytes:     parseIntOrDefault("MAX_IMAGE_BYTES", 25*1024*1024), // 25MB
		MaxImagePixels:    int(parseIntOrDefault("MAX_IMAGE_PIXELS", 40_000_000)),
		MaxConcurrentJobs: int(parseIntOrDefault("MAX_CONCURRENT_JOBS", int64(runtime.NumCPU()))),

		DefaultFormat:   strings.ToUpper(getEnvOrDefault("DEFAULT_FORMAT", "PNG")),
		DefaultQuality:  int(parseIntOrDefault("DEFAULT_QUALITY", 95)),
		PreviewMaxBytes: int(parseIntOrDefault("PREVIEW_MAX_BYTES", 500_000)),
		PreviewSize:     int(parseIntOrDefault("PREVIEW_SIZE", 300)),

		FetchBackend:    strings.ToLower(getEnvOrDefault("FETCH_BACKEND", "http")),
		ArtifactBackend: strings.ToLower(getEnvOrDefault("ARTIFACT_BACKEND", "local")),
		OutputDir:       outputDir,
		DatabasePath:    getEnvOrDefault("DATABASE_PATH", filepath.Join(outputDir, "jobs.db")),

		AzureAccountName:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:        os.Getenv("AZURE_STORAGE_KEY"),
		AzureArtifactContainer: getEnvOrDefault("AZURE_ARTIFACT_CONTAINER", "enhanced-images"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and backend requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s)", c.RequestTimeout, c.ImageFetchTimeout)
	}
	if c.MaxImageBytes <= 0 || c.MaxImagePixels <= 0 {
		return fmt.Errorf("image limits must be > 0 (got bytes=%d, pixels=%d)", c.MaxImageBytes, c.MaxImagePixels)
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be > 0 (got %d)", c.MaxConcurrentJobs)
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return fmt.Errorf("DEFAULT_QUALITY must be between 1 and 100 (got %d)", c.DefaultQuality)
	}
	if c.PreviewMaxBytes <= 0 || c.PreviewSize <= 0 {
		return fmt.Errorf("preview limits must be > 0 (got bytes=%d, size=%d)", c.PreviewMaxBytes, c.PreviewSize)
	}

	switch c.FetchBackend {
	case "http", "azure":
	default:
		return fmt.Errorf("invalid FETCH_BACKEND: %q", c.FetchBackend)
	}
	switch c.ArtifactBackend {
	case "local", "azure":
	default:
		return fmt.Errorf("invalid ARTIFACT_BACKEND: %q", c.ArtifactBackend)
	}
	if (c.FetchBackend == "azure" || c.ArtifactBackend == "azure") &&
		(c.AzureAccountName == "" || c.AzureAccountKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for azure backends")
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
