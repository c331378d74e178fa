// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil logs and asserts samber/oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/logging"
)

// LogError logs err at error level. For oops errors the code and context
// are logged as separate attributes, with secret context values redacted.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", redact(ctx))
	}
	logger.Error(msg, attrs...)
}

// redact returns a copy of ctx with secret values replaced.
func redact(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if logging.IsSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
