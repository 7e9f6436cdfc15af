// ===============================
// internal/config/config.go - Service Configuration
// ===============================

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Artifact storage backends
const (
	StorageLocal = "local"
	StorageR2    = "r2"
)

// Title collision policies
const (
	TitlePolicyReject = "reject"
	TitlePolicyAllow  = "allow"
	TitlePolicySuffix = "suffix"
)

// Gin run modes accepted by GIN_MODE
const (
	ModeDebug   = "debug"
	ModeRelease = "release"
	ModeTest    = "test"
)

// R2Config holds Cloudflare R2 configuration
type R2Config struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// MediaConfig holds ffmpeg and ingestion tuning
type MediaConfig struct {
	FFmpegPath        string
	FFprobePath       string
	Timeout           time.Duration
	ThumbnailOffset   time.Duration
	MaxUploadBytes    int64
	IngestConcurrency int64
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Environment string
	Port        string
	LogLevel    string

	// Database configuration
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	// Artifact storage configuration
	StorageBackend string
	MediaDir       string
	ScratchDir     string
	R2Config       R2Config

	// Admin access
	AdminSecret         string
	FirebaseProjectID   string
	FirebaseCredentials string // Path to service account JSON file

	// Catalog and playback
	TitlePolicy    string
	SessionIdleTTL time.Duration
	UIConfigPath   string

	Media MediaConfig

	// CORS configuration
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Environment:         getEnv("GIN_MODE", ModeDebug),
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseDriver:      strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "data/catalog.db"),
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		MediaDir:            getEnv("MEDIA_DIR", "data/artifacts"),
		ScratchDir:          getEnv("SCRATCH_DIR", os.TempDir()),
		AdminSecret:         getEnv("ADMIN_SECRET", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		TitlePolicy:         strings.ToLower(getEnv("TITLE_POLICY", TitlePolicyReject)),
		UIConfigPath:        getEnv("UI_CONFIG_PATH", ""),
		R2Config: R2Config{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", "dramafeed"),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Media: MediaConfig{
			FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
		},
	}

	var err error
	if config.Media.Timeout, err = getDuration("MEDIA_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if config.Media.ThumbnailOffset, err = getDuration("THUMBNAIL_OFFSET", time.Second); err != nil {
		return nil, err
	}
	if config.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	maxUploadMB, err := getInt("MAX_UPLOAD_MB", 500)
	if err != nil {
		return nil, err
	}
	config.Media.MaxUploadBytes = int64(maxUploadMB) * 1024 * 1024

	concurrency, err := getInt("INGEST_CONCURRENCY", 1)
	if err != nil {
		return nil, err
	}
	config.Media.IngestConcurrency = int64(concurrency)

	// Public URL for R2 defaults to the bucket endpoint
	if config.R2Config.PublicURL == "" && config.R2Config.AccountID != "" {
		config.R2Config.PublicURL = fmt.Sprintf("https://%s.%s.r2.cloudflarestorage.com",
			config.R2Config.BucketName, config.R2Config.AccountID)
	}

	// Parse allowed origins
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	config.AllowedOrigins = strings.Split(originsStr, ",")
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Environment {
	case ModeDebug, ModeRelease, ModeTest:
	default:
		return ConfigError{Message: fmt.Sprintf("unsupported GIN_MODE %q (want debug, release or test)", c.Environment)}
	}

	if len(c.AllowedOrigins) == 0 {
		return ConfigError{Message: "ALLOWED_ORIGINS must list at least one origin"}
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return ConfigError{Message: fmt.Sprintf("ALLOWED_ORIGINS entry %q must be \"*\" or start with http:// or https://", origin)}
		}
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return ConfigError{Message: fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)}
	}

	switch c.StorageBackend {
	case StorageLocal:
		if c.MediaDir == "" {
			return ErrMissingMediaDir
		}
	case StorageR2:
		if c.R2Config.AccountID == "" || c.R2Config.AccessKey == "" || c.R2Config.SecretKey == "" {
			return ErrMissingR2Config
		}
	default:
		return ConfigError{Message: fmt.Sprintf("unsupported STORAGE_BACKEND %q", c.StorageBackend)}
	}

	switch c.TitlePolicy {
	case TitlePolicyReject, TitlePolicyAllow, TitlePolicySuffix:
	default:
		return ConfigError{Message: fmt.Sprintf("unsupported TITLE_POLICY %q", c.TitlePolicy)}
	}

	if c.AdminSecret == "" && c.FirebaseProjectID == "" {
		return ErrMissingAdminAuth
	}

	if c.Media.IngestConcurrency < 1 {
		return ConfigError{Message: "INGEST_CONCURRENCY must be at least 1"}
	}
	if c.Media.MaxUploadBytes <= 0 {
		return ConfigError{Message: "MAX_UPLOAD_MB must be positive"}
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

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, ConfigError{Message: fmt.Sprintf("%s must be an integer: %v", key, err)}
	}
	return parsed, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, ConfigError{Message: fmt.Sprintf("%s must be a duration: %v", key, err)}
	}
	return parsed, nil
}

// Configuration errors
var (
	ErrMissingDatabaseURL = ConfigError{Message: "DATABASE_URL environment variable is required for postgres"}
	ErrMissingSQLitePath  = ConfigError{Message: "SQLITE_PATH environment variable is required for sqlite"}
	ErrMissingMediaDir    = ConfigError{Message: "MEDIA_DIR environment variable is required for local storage"}
	ErrMissingR2Config    = ConfigError{Message: "R2 configuration (R2_ACCOUNT_ID, R2_ACCESS_KEY, R2_SECRET_KEY) is required"}
	ErrMissingAdminAuth   = ConfigError{Message: "ADMIN_SECRET or FIREBASE_PROJECT_ID is required"}
)

// ConfigError represents a configuration error
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
