// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memstore"
	"github.com/holomush/authcore/internal/config"
)

// memoryBackend serves every command from the same in-memory store.
func memoryBackend(s *memstore.Store) func(context.Context, *config.Config, *slog.Logger, *auth.Metrics) (*Backend, error) {
	return func(_ context.Context, cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics) (*Backend, error) {
		svc, err := newService(cfg, logger, metrics, s, s)
		if err != nil {
			return nil, err
		}
		return &Backend{Service: svc, Ready: func() bool { return true }, Close: func() {}}, nil
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the CLI with args and stdin. Fast hashing and quiet logs are
// appended to every invocation.
func execute(t *testing.T, deps *Deps, stdin string, args ...string) result {
	t.Helper()
	t.Setenv(config.DatabaseURLEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""

	var stdout, stderr bytes.Buffer
	cmd := newRootCmdWithDeps(deps)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--bcrypt-cost=4", "--log-level=error"))

	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func mustSucceed(t *testing.T, r result) string {
	t.Helper()
	require.NoError(t, r.err, "stderr: %s", r.stderr)
	return r.stdout
}
