// Package config loads the runtime configuration shared by the daemon and
// the CLI: where the preference store and catalog live, how model lists are
// fetched, the HTTP bind address, logging, and observability. Values merge
// in three layers - built-in defaults, an optional YAML file, then
// environment overrides - and are validated once at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"switchboard/internal/observability"
)

// Model list sources.
const (
	ModelSourceLoopback = "loopback"
	ModelSourceHTTP     = "http"
)

// Config is the full runtime configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Catalog       CatalogConfig        `yaml:"catalog"`
	Store         StoreConfig          `yaml:"store"`
	ModelList     ModelListConfig      `yaml:"model_list"`
	Policy        PolicyConfig         `yaml:"policy"`
	Logging       LoggingConfig        `yaml:"logging"`
	Observability observability.Config `yaml:"observability"`
}

// ServerConfig binds the HTTP/WebSocket daemon.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	EnableCORS   bool          `yaml:"enable_cors"`
	Debug        bool          `yaml:"debug"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CatalogConfig selects the descriptor source. An empty path uses the
// embedded defaults.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig locates the durable preference store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ModelListConfig tunes live model-list fetching.
type ModelListConfig struct {
	// Source is loopback (answer from the catalog) or http (query each
	// platform's /models endpoint).
	Source   string        `yaml:"source"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// CacheSize bounds how many platforms keep a cached listing.
	CacheSize int `yaml:"cache_size"`
}

// PolicyConfig exposes the deliberately configurable resolution choices.
type PolicyConfig struct {
	AllowFirstModelFallback bool `yaml:"allow_first_model_fallback"`
}

// LoggingConfig configures the engine log.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	// File is the log destination; empty logs to stderr.
	File string `yaml:"file"`
}

// Default returns the built-in configuration. Paths resolve under
// ~/.switchboard; when the home directory is unknown they fall back to the
// working directory.
func Default() Config {
	base := ".switchboard"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".switchboard")
	}
	return Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8580,
			EnableCORS:   true,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(base, "store.json"),
		},
		ModelList: ModelListConfig{
			Source:    ModelSourceLoopback,
			Timeout:   10 * time.Second,
			CacheTTL:  5 * time.Minute,
			CacheSize: 64,
		},
		Policy: PolicyConfig{
			AllowFirstModelFallback: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(base, "switchboard.log"),
		},
		Observability: observability.DefaultConfig(),
	}
}

// Load merges defaults, the YAML file at path (optional; a missing file is
// not an error), and environment overrides, then validates the result. An
// empty path tries ~/.switchboard/switchboard.yaml.
func Load(path string) (Config, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".switchboard", "switchboard.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			// Decoding into the default-filled struct lets explicit false
			// values override true defaults.
			if err := yaml.Unmarshal(data, &config); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// No user config; defaults apply.
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&config, os.LookupEnv)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// applyEnv layers SWITCHBOARD_* environment overrides on top of config.
func applyEnv(config *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("SWITCHBOARD_HOST"); ok && v != "" {
		config.Server.Host = v
	}
	if v, ok := lookup("SWITCHBOARD_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v, ok := lookup("SWITCHBOARD_STORE_PATH"); ok && v != "" {
		config.Store.Path = v
	}
	if v, ok := lookup("SWITCHBOARD_CATALOG_PATH"); ok && v != "" {
		config.Catalog.Path = v
	}
	if v, ok := lookup("SWITCHBOARD_MODEL_SOURCE"); ok && v != "" {
		config.ModelList.Source = v
	}
	if v, ok := lookup("SWITCHBOARD_LOG_LEVEL"); ok && v != "" {
		config.Logging.Level = v
	}
	if v, ok := lookup("SWITCHBOARD_LOG_FILE"); ok && v != "" {
		config.Logging.File = v
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.ModelList.Source) {
	case ModelSourceLoopback, ModelSourceHTTP:
	default:
		return fmt.Errorf("model_list.source %q must be %s or %s",
			c.ModelList.Source, ModelSourceLoopback, ModelSourceHTTP)
	}
	if c.ModelList.Timeout <= 0 {
		return fmt.Errorf("model_list.timeout must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", c.Logging.Level)
	}
	return nil
}
