// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authcore configuration from defaults, an optional
// YAML file, command-line flags and the DATABASE_URL environment variable,
// in increasing order of precedence.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authcore/internal/auth"
)

// DatabaseURLEnv overrides database.url when set.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full authcore configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	ConnectBackoff time.Duration `koanf:"connect_backoff"`
}

// AuthConfig configures the authentication core.
type AuthConfig struct {
	BcryptCost    int           `koanf:"bcrypt_cost"`
	ResetTokenTTL time.Duration `koanf:"reset_token_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// defaults are loaded before any other source.
var defaults = map[string]any{
	"database.url":             "",
	"database.connect_retries": uint64(5),
	"database.connect_backoff": 500 * time.Millisecond,
	"auth.bcrypt_cost":         auth.DefaultBcryptCost,
	"auth.reset_token_ttl":     auth.ResetTokenTTL,
	"auth.sweep_interval":      5 * time.Minute,
	"log.format":               "json",
	"log.level":                "info",
	"metrics.addr":             "127.0.0.1:9100",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"database-url":    "database.url",
	"bcrypt-cost":     "auth.bcrypt_cost",
	"reset-token-ttl": "auth.reset_token_ttl",
	"sweep-interval":  "auth.sweep_interval",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"metrics-addr":    "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs. Flags only override
// file values when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("database-url", "", "PostgreSQL connection URL (env "+DatabaseURLEnv+")")
	fs.Int("bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor")
	fs.Duration("reset-token-ttl", auth.ResetTokenTTL, "password reset token lifetime (max 1h)")
	fs.Duration("sweep-interval", 5*time.Minute, "interval between expired reset token sweeps")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("metrics-addr", "127.0.0.1:9100", "observability server listen address")
}

// Load builds a Config. path may be empty to skip the file; fs may be nil
// to skip flags.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	if url := os.Getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", "database.url").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. It does not require a database URL; see
// RequireDatabase.
func (c *Config) Validate() error {
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return oops.Code("CONFIG_INVALID").
			With("auth.bcrypt_cost", c.Auth.BcryptCost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.ResetTokenTTL <= 0 || c.Auth.ResetTokenTTL > auth.ResetTokenTTL {
		return oops.Code("CONFIG_INVALID").
			With("auth.reset_token_ttl", c.Auth.ResetTokenTTL.String()).
			Errorf("reset token ttl must be positive and at most %s", auth.ResetTokenTTL)
	}
	if c.Auth.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("auth.sweep_interval", c.Auth.SweepInterval.String()).
			Errorf("sweep interval must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log.format", c.Log.Format).
			Errorf("log format must be json or text")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// RequireDatabase returns an error unless a database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database url is required (--database-url or %s)", DatabaseURLEnv)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, oops.Code("CONFIG_INVALID").With("log.level", c.Log.Level).Wrap(err)
	}
	return level, nil
}
