// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.DatabaseURLEnv, "")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.SweepInterval)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, uint64(5), cfg.Database.ConnectRetries)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_FileThenFlagsThenEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://file@localhost/authcore
auth:
  bcrypt_cost: 10
  reset_token_ttl: 30m
log:
  format: text
  level: debug
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Setenv(config.DatabaseURLEnv, "")
		cfg, err := config.Load(path, newFlags(t))
		require.NoError(t, err)
		assert.Equal(t, "postgres://file@localhost/authcore", cfg.Database.URL)
		assert.Equal(t, 10, cfg.Auth.BcryptCost)
		assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("explicit flags override file", func(t *testing.T) {
		t.Setenv(config.DatabaseURLEnv, "")
		cfg, err := config.Load(path, newFlags(t, "--bcrypt-cost=11", "--log-format=json"))
		require.NoError(t, err)
		assert.Equal(t, 11, cfg.Auth.BcryptCost)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "debug", cfg.Log.Level, "unset flags keep file values")
	})

	t.Run("environment overrides database url", func(t *testing.T) {
		t.Setenv(config.DatabaseURLEnv, "postgres://env@localhost/authcore")
		cfg, err := config.Load(path, newFlags(t, "--database-url=postgres://flag@localhost/authcore"))
		require.NoError(t, err)
		assert.Equal(t, "postgres://env@localhost/authcore", cfg.Database.URL)
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Auth: config.AuthConfig{BcryptCost: 12, ResetTokenTTL: time.Hour, SweepInterval: time.Minute},
			Log:  config.LogConfig{Format: "json", Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bcrypt cost too low", func(c *config.Config) { c.Auth.BcryptCost = 3 }},
		{"bcrypt cost too high", func(c *config.Config) { c.Auth.BcryptCost = 32 }},
		{"ttl above one hour", func(c *config.Config) { c.Auth.ResetTokenTTL = 2 * time.Hour }},
		{"ttl zero", func(c *config.Config) { c.Auth.ResetTokenTTL = 0 }},
		{"sweep interval zero", func(c *config.Config) { c.Auth.SweepInterval = 0 }},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Log.Level = "loud" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), "CONFIG_INVALID")
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	cfg := config.Config{}
	errutil.AssertErrorCode(t, cfg.RequireDatabase(), "CONFIG_INVALID")

	cfg.Database.URL = "postgres://localhost/authcore"
	assert.NoError(t, cfg.RequireDatabase())
}

func TestLogLevel(t *testing.T) {
	cfg := config.Config{Log: config.LogConfig{Level: "warn"}}
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
