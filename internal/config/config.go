// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatasetsDir holds the <category>_dataset.csv reference files.
	DatasetsDir string `koanf:"datasets_dir"`

	// InventoryDB is the path of the SQLite store inventory.
	InventoryDB string `koanf:"inventory_db"`

	// ModelPath is where the fitted snapshot is persisted. Empty disables it.
	ModelPath string `koanf:"model_path"`

	// MaxFeatures caps the similarity vocabulary.
	MaxFeatures int `koanf:"max_features"`

	// DefaultCount and MaxCount bound n_recommendations.
	DefaultCount int `koanf:"default_count"`
	MaxCount     int `koanf:"max_count"`

	// PSUHeadroomWatts is added to a GPU's TDP before comparing with PSU wattage.
	PSUHeadroomWatts float64 `koanf:"psu_headroom_watts"`

	// RebuildQueueSize bounds pending rebuild requests.
	RebuildQueueSize int `koanf:"rebuild_queue_size"`

	// OracleFailureThreshold and OracleOpenTimeoutMS tune the inventory circuit breaker.
	OracleFailureThreshold int `koanf:"oracle_failure_threshold"`
	OracleOpenTimeoutMS    int `koanf:"oracle_open_timeout_ms"`

	// MaxRequestBytes caps HTTP request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// SyncDedupeSize bounds remembered Idempotency-Key values. 0 is unbounded.
	SyncDedupeSize int `koanf:"sync_dedupe_size"`

	// CORSAllowedOrigins is a comma separated origin list. Empty disables CORS.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// AdminRateLimit caps /api requests per minute per client IP. 0 disables it.
	AdminRateLimit int `koanf:"admin_rate_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":5000",
		DatasetsDir:            "datasets",
		InventoryDB:            "assemble.db",
		ModelPath:              "models/rigmatch.gob.gz",
		MaxFeatures:            500,
		DefaultCount:           5,
		MaxCount:               50,
		PSUHeadroomWatts:       100,
		RebuildQueueSize:       1,
		OracleFailureThreshold: 5,
		OracleOpenTimeoutMS:    30_000,
		MaxRequestBytes:        1 << 20,
		SyncDedupeSize:         10_000,
		AdminRateLimit:         60,
	}
}

// OracleOpenTimeout returns the breaker open timeout as a duration.
func (c *Config) OracleOpenTimeout() time.Duration {
	return time.Duration(c.OracleOpenTimeoutMS) * time.Millisecond
}

// CORSOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr", "must not be empty")
	case c.InventoryDB == "":
		return invalid("inventory_db", "must not be empty")
	case c.MaxFeatures < 1:
		return invalid("max_features", "must be positive, got %d", c.MaxFeatures)
	case c.DefaultCount < 1:
		return invalid("default_count", "must be positive, got %d", c.DefaultCount)
	case c.MaxCount < c.DefaultCount:
		return invalid("max_count", "%d is below default_count %d", c.MaxCount, c.DefaultCount)
	case c.PSUHeadroomWatts < 0:
		return invalid("psu_headroom_watts", "must not be negative")
	case c.RebuildQueueSize < 1:
		return invalid("rebuild_queue_size", "must be positive, got %d", c.RebuildQueueSize)
	case c.OracleFailureThreshold < 1:
		return invalid("oracle_failure_threshold", "must be positive")
	case c.OracleOpenTimeoutMS < 1:
		return invalid("oracle_open_timeout_ms", "must be positive")
	case c.MaxRequestBytes < 1:
		return invalid("max_request_bytes", "must be positive")
	case c.SyncDedupeSize < 0:
		return invalid("sync_dedupe_size", "must not be negative")
	case c.AdminRateLimit < 0:
		return invalid("admin_rate_limit", "must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format", "must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// EnvName returns the environment variable overriding koanf key key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s (%s) %s", ErrInvalidConfig, key, EnvName(key), fmt.Sprintf(format, args...))
}
