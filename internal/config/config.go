package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/aretw0/warp/internal/logging"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the warp binary.
// Values come from defaults, then an optional YAML file, then WARP_* environment variables.
type Config struct {
	Addr        string        `yaml:"addr" env:"WARP_ADDR"`
	LogLevel    string        `yaml:"log_level" env:"WARP_LOG_LEVEL"`
	LogFormat   string        `yaml:"log_format" env:"WARP_LOG_FORMAT"`
	FullTrace   bool          `yaml:"full_trace" env:"WARP_FULL_TRACE"`
	ScriptsDir  string        `yaml:"scripts_dir" env:"WARP_SCRIPTS_DIR"`
	DatabaseDSN string        `yaml:"database_dsn" env:"WARP_DATABASE_DSN"`
	RedisAddr   string        `yaml:"redis_addr" env:"WARP_REDIS_ADDR"`
	RedisPrefix string        `yaml:"redis_prefix" env:"WARP_REDIS_PREFIX"`
	RunTTL      time.Duration `yaml:"run_ttl" env:"WARP_RUN_TTL"`
	LockTTL     time.Duration `yaml:"lock_ttl" env:"WARP_LOCK_TTL"`
	// SerializeRuns locks each pipeline in-process when no Redis is configured.
	SerializeRuns bool `yaml:"serialize_runs" env:"WARP_SERIALIZE_RUNS"`

	// RunKey is a base64 AES-256 key. When set, stored runs are encrypted.
	RunKey          string   `yaml:"run_key" env:"WARP_RUN_KEY"`
	RunFallbackKeys []string `yaml:"run_fallback_keys" env:"WARP_RUN_FALLBACK_KEYS" envSeparator:","`
	// MaskKeys are regular expressions; matching model keys are masked before a run is stored.
	MaskKeys []string `yaml:"mask_keys" env:"WARP_MASK_KEYS" envSeparator:","`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:        ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
		ScriptsDir:  "scripts",
		RedisPrefix: "warp:",
		RunTTL:      24 * time.Hour,
		LockTTL:     30 * time.Second,
	}
}

// Load builds the configuration. An empty path skips the file; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock_ttl must be positive, got %s", c.LockTTL))
	}
	if c.RunTTL < 0 {
		errs = append(errs, fmt.Errorf("run_ttl cannot be negative, got %s", c.RunTTL))
	}
	if c.RunKey != "" {
		if _, err := decodeKey("run_key", c.RunKey); err != nil {
			errs = append(errs, err)
		}
	} else if len(c.RunFallbackKeys) > 0 {
		errs = append(errs, errors.New("run_fallback_keys require run_key"))
	}
	for i, k := range c.RunFallbackKeys {
		if _, err := decodeKey(fmt.Sprintf("run_fallback_keys[%d]", i), k); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range c.MaskKeys {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("mask_keys: invalid pattern %q: %w", p, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EncryptionKeys decodes RunKey and RunFallbackKeys. Both are nil when encryption is off.
func (c Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.RunKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey("run_key", c.RunKey); err != nil {
		return nil, nil, err
	}
	for i, k := range c.RunFallbackKeys {
		key, err := decodeKey(fmt.Sprintf("run_fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(field, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", field, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", field, len(key))
	}
	return key, nil
}

// Logger builds the application logger described by the configuration.
func (c Config) Logger() *slog.Logger {
	level, _ := logging.ParseLevel(c.LogLevel)
	format, _ := logging.ParseFormat(c.LogFormat)
	return logging.NewWithWriter(os.Stderr, level, format)
}
