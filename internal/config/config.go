// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads keyward configuration.
//
// Sources, lowest precedence first: built-in defaults, environment
// variables, an optional YAML file, and explicitly set command-line flags.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/keyward/internal/auth"
	"github.com/holomush/keyward/internal/logging"
	"github.com/holomush/keyward/internal/store"
	"github.com/holomush/keyward/internal/xdg"
)

// DefaultDatabaseURL is a SQLite file in the working directory.
const DefaultDatabaseURL = "sqlite://keyward.db"

// Config is the complete keyward configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// SessionConfig is the session policy.
type SessionConfig struct {
	Duration     time.Duration `koanf:"duration"`
	TokenLength  int           `koanf:"token_length"`
	TokenStorage string        `koanf:"token_storage"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// TelemetryConfig enables trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint string `koanf:"endpoint"`
}

// MetricsConfig names the node_exporter textfile written after each
// command. An empty path disables it.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// envOverrides are the environment variables that feed the configuration.
type envOverrides struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	LogFormat    string `env:"KEYWARD_LOG_FORMAT"`
	LogLevel     string `env:"KEYWARD_LOG_LEVEL"`
	OTelEndpoint string `env:"KEYWARD_OTEL_ENDPOINT"`
	TokenStorage string `env:"KEYWARD_TOKEN_STORAGE"`
	Textfile     string `env:"KEYWARD_METRICS_TEXTFILE"`
}

// keys maps each non-empty override to its configuration key.
func (e envOverrides) keys() map[string]string {
	m := map[string]string{}
	for key, v := range map[string]string{
		"database.url":          e.DatabaseURL,
		"log.format":            e.LogFormat,
		"log.level":             e.LogLevel,
		"telemetry.endpoint":    e.OTelEndpoint,
		"session.token_storage": e.TokenStorage,
		"metrics.textfile":      e.Textfile,
	} {
		if v != "" {
			m[key] = v
		}
	}
	return m
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			URL:            DefaultDatabaseURL,
			ConnectTimeout: store.DefaultConnectTimeout,
			AutoMigrate:    true,
		},
		Session: SessionConfig{
			Duration:     auth.DefaultSessionDuration,
			TokenLength:  auth.DefaultTokenLength,
			TokenStorage: string(auth.TokenStoragePlain),
		},
		Log: LogConfig{
			Format: logging.FormatText,
			Level:  "info",
		},
	}
}

// FlagKeys maps command-line flag names to configuration keys.
// Only flags listed here feed the configuration.
var FlagKeys = map[string]string{
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// Load builds the configuration from the process environment. When path is
// empty, $XDG_CONFIG_HOME/keyward/config.yaml is read if it exists. envFile
// optionally names a dotenv file whose variables apply unless set to a
// non-empty value in the process environment. flags may be nil.
func Load(path, envFile string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		path = xdg.ExistingConfigFile()
	}
	environ, err := environment(envFile, os.Environ())
	if err != nil {
		return nil, err
	}
	return load(path, flags, environ)
}

// environment merges a dotenv file under the process environment. It returns
// nil, meaning the process environment, when envFile is empty.
func environment(envFile string, osEnv []string) (map[string]string, error) {
	if envFile == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(envFile)
	if err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("source", "env-file").
			With("path", envFile).
			Wrap(err)
	}
	for k, v := range env.ToMap(osEnv) {
		if v != "" {
			vars[k] = v
		}
	}
	return vars, nil
}

// load reads environment variables from environ, or from the process when
// environ is nil.
func load(path string, flags *pflag.FlagSet, environ map[string]string) (*Config, error) {
	k := koanf.New(".")

	var overrides envOverrides
	if err := env.ParseWithOptions(&overrides, env.Options{Environment: environ}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	for key, v := range overrides.keys() {
		if err := k.Set(key, v); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value is usable. Errors from the owning
// package keep their own code.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if _, err := store.DialectFromURL(c.Database.URL); err != nil {
		return oops.With("key", "database.url").Wrap(err)
	}
	if c.Database.ConnectTimeout < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.connect_timeout").
			Errorf("connect timeout cannot be negative")
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return oops.With("key", "session").Wrap(err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return oops.With("key", "log.format").Wrap(err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.With("key", "log.level").Wrap(err)
	}
	return nil
}

// EngineConfig converts the session section to the engine's policy.
func (c *Config) EngineConfig() auth.EngineConfig {
	return auth.EngineConfig{
		SessionDuration: c.Session.Duration,
		TokenLength:     c.Session.TokenLength,
		TokenStorage:    auth.TokenStorage(c.Session.TokenStorage),
	}
}

// BackendConfig converts the database section to store options.
func (c *Config) BackendConfig() store.BackendConfig {
	return store.BackendConfig{
		URL:            c.Database.URL,
		ConnectTimeout: c.Database.ConnectTimeout,
		AutoMigrate:    c.Database.AutoMigrate,
	}
}

// LogOptions converts the log section to handler options.
// Call only on a validated Config.
func (c *Config) LogOptions() logging.Options {
	format, _ := logging.ParseFormat(c.Log.Format) //nolint:errcheck // validated
	level, _ := logging.ParseLevel(c.Log.Level)    //nolint:errcheck // validated
	return logging.Options{Format: format, Level: level}
}
