// Package config holds the nested Config struct and FromEnv() loader the
// fusion CLI wires at startup, plus the workspace-path helpers every
// stage derives a run's on-disk layout from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	workerNumberEnv = "MK_WORD_WORKER"
	combineBinEnv   = "MK_COMBINE_BIN"
	combinerBinEnv  = "MK_COMBINER_BIN"
	outlineBinEnv   = "MK_OUTLINE_BIN"
	appRootEnv      = "MK_FUSION"
)

// LoggingConfig holds ambient logging configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds ambient Axiom log-forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// FusionConfig holds the domain environment variables controlling worker
// counts and external binary paths.
type FusionConfig struct {
	// Workers is the per-pool worker count (MK_WORD_WORKER).
	Workers int
	// CombineBin is the external PDF-combine binary (MK_COMBINE_BIN,
	// falling back to MK_COMBINER_BIN for the renamed variant).
	CombineBin string
	// OutlineBin is the external outline-writer binary (MK_OUTLINE_BIN).
	OutlineBin string
	// AppRoot is the app root workspaces are rooted under
	// (<root>/workspace/<id>).
	AppRoot string
}

// ArchiveConfig holds optional S3 deliverable-archival settings.
type ArchiveConfig struct {
	Enabled bool
	Bucket  string
	Prefix  string
}

// LockConfig holds optional distributed run-lock settings.
type LockConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

// MetricsConfig holds textfile metrics exposition settings.
type MetricsConfig struct {
	TextfilePath string
	Interval     time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Fusion  FusionConfig
	Archive ArchiveConfig
	Lock    LockConfig
	Metrics MetricsConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/fusion.log"),
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
		Dataset:       baseDataset + "_fusion",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Fusion = FusionConfig{
		Workers:    WorkerNumber(),
		CombineBin: CombinerBin(),
		OutlineBin: getEnv(outlineBinEnv, ""),
		AppRoot:    os.Getenv(appRootEnv),
	}

	cfg.Archive = ArchiveConfig{
		Enabled: parseBool(getEnv("MK_ARCHIVE_S3", "0")),
		Bucket:  getEnv("MK_ARCHIVE_S3_BUCKET", ""),
		Prefix:  getEnv("MK_ARCHIVE_S3_PREFIX", "fusion"),
	}

	cfg.Lock = LockConfig{
		Enabled:  parseBool(getEnv("MK_LOCK_REDIS", "0")),
		RedisURL: getEnv("MK_LOCK_REDIS_URL", "redis://localhost:6379"),
		TTL:      parseDuration(getEnv("MK_LOCK_TTL", "30m"), 30*time.Minute),
	}

	cfg.Metrics = MetricsConfig{
		TextfilePath: getEnv("MK_METRICS_TEXTFILE", ""),
		Interval:     parseDuration(getEnv("MK_METRICS_INTERVAL", "5s"), 5*time.Second),
	}

	return cfg
}

// WorkerNumber returns MK_WORD_WORKER, defaulting to 5.
func WorkerNumber() int {
	return parseInt(os.Getenv(workerNumberEnv), 5)
}

// CombinerBin returns MK_COMBINE_BIN, falling back to the renamed
// MK_COMBINER_BIN variant.
func CombinerBin() string {
	if v := os.Getenv(combineBinEnv); v != "" {
		return v
	}
	return os.Getenv(combinerBinEnv)
}

// AppRoot returns MK_FUSION, or an error if unset; required for any
// workspace use.
func AppRoot() (string, error) {
	root := os.Getenv(appRootEnv)
	if root == "" {
		return "", fmt.Errorf("config: %s is not set", appRootEnv)
	}
	return root, nil
}

// Workspace returns <root>/workspace/<id>, creating it (and the
// workspace root) if necessary. An empty id is rejected: callers that
// want a scratch run should generate one first (cmd/fusion uses a random
// UUID when --id is empty).
func Workspace(id string) (string, error) {
	root, err := AppRoot()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("config: workspace id must not be empty")
	}
	dir := filepath.Join(root, "workspace", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
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
