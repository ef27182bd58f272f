// Package config loads Engram's runtime configuration from environment
// variables (the ENGRAM_* table), falling back to documented defaults.
// Unlike the YAML-file configuration this package replaces, there is no
// config file search path: a single-node local daemon is expected to be
// driven entirely by its environment or by CLI flags that override it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the complete set of tunables Engram needs at startup.
type Config struct {
	DBPath string `mapstructure:"db_path"`

	HTTPPort int    `mapstructure:"http_port"`
	HTTPHost string `mapstructure:"http_host"`

	EmbeddingModel   string `mapstructure:"embedding_model"`
	EmbeddingBaseURL string `mapstructure:"embedding_base_url"`

	DecayRate            float64 `mapstructure:"decay_rate"`
	AccessBoostStrength  float64 `mapstructure:"access_boost_strength"`

	EnableScopes           bool `mapstructure:"enable_scopes"`
	EnableIdempotency      bool `mapstructure:"enable_idempotency"`
	EnableContextHydration bool `mapstructure:"enable_context_hydration"`
	EnableWorkItems        bool `mapstructure:"enable_work_items"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultDBPath returns the default database location under the user's home
// directory, in the XDG-style data directory ~/.local/share/engram.
func DefaultDBPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "engram", "engram.db")
}

// DefaultConfig returns Engram's documented defaults, unaffected by the
// environment. Load() starts here and layers environment overrides on top.
func DefaultConfig() *Config {
	return &Config{
		DBPath: DefaultDBPath(),

		HTTPPort: 7749,
		HTTPHost: "127.0.0.1",

		EmbeddingModel:   "bge-small-en-v1.5-equivalent",
		EmbeddingBaseURL: "http://localhost:11434",

		DecayRate:           0.95,
		AccessBoostStrength: 1.0,

		EnableScopes:           true,
		EnableIdempotency:      true,
		EnableContextHydration: true,
		EnableWorkItems:        false,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads configuration from ENGRAM_*-prefixed environment variables,
// falling back to DefaultConfig for anything unset or malformed. A malformed
// numeric or port value never aborts startup — it is logged as a warning and
// the default for that single key is kept instead.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENGRAM")
	v.AutomaticEnv()

	defaults := DefaultConfig()
	for _, key := range []string{
		"db_path", "http_port", "http_host",
		"embedding_model", "embedding_base_url",
		"decay_rate", "access_boost_strength",
		"enable_scopes", "enable_idempotency", "enable_context_hydration", "enable_work_items",
		"log_level", "log_format",
	} {
		_ = v.BindEnv(key)
	}

	cfg := *defaults

	if s := os.Getenv("ENGRAM_DATA_DIR"); s != "" {
		cfg.DBPath = filepath.Join(s, "engram.db")
	}
	if s := v.GetString("db_path"); s != "" {
		cfg.DBPath = s
	}
	if s := v.GetString("http_host"); s != "" {
		cfg.HTTPHost = s
	}
	if s := v.GetString("embedding_model"); s != "" {
		cfg.EmbeddingModel = s
	}
	if s := v.GetString("embedding_base_url"); s != "" {
		cfg.EmbeddingBaseURL = s
	}
	if s := v.GetString("log_level"); s != "" {
		cfg.LogLevel = s
	}
	if s := v.GetString("log_format"); s != "" {
		cfg.LogFormat = s
	}

	cfg.HTTPPort = parseIntEnv("ENGRAM_HTTP_PORT", defaults.HTTPPort, validPort)
	cfg.DecayRate = parseFloatEnv("ENGRAM_DECAY_RATE", defaults.DecayRate)
	cfg.AccessBoostStrength = parseFloatEnv("ENGRAM_ACCESS_BOOST_STRENGTH", defaults.AccessBoostStrength)

	cfg.EnableScopes = parseBoolEnv("ENGRAM_ENABLE_SCOPES", defaults.EnableScopes)
	cfg.EnableIdempotency = parseBoolEnv("ENGRAM_ENABLE_IDEMPOTENCY", defaults.EnableIdempotency)
	cfg.EnableContextHydration = parseBoolEnv("ENGRAM_ENABLE_CONTEXT_HYDRATION", defaults.EnableContextHydration)
	cfg.EnableWorkItems = parseBoolEnv("ENGRAM_ENABLE_WORK_ITEMS", defaults.EnableWorkItems)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks invariants that Load's per-key fallback cannot catch on
// its own (e.g. a port within range after falling back to the default).
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535")
	}
	if c.HTTPHost == "" {
		return fmt.Errorf("http_host is required")
	}
	if c.DecayRate <= 0 || c.DecayRate > 1 {
		return fmt.Errorf("decay_rate must be in (0, 1]")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	return nil
}

// EnsureDataDir creates the directory holding the configured database file.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(filepath.Dir(c.DBPath), 0755)
}
