// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
)

func TestMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := auth.NewMetrics(reg)
	f := newFixture(t, auth.WithMetrics(metrics))
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@b.com", "alice", "Secret123")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "a@b.com", "bob", "Secret123")
	require.Error(t, err)
	_, err = f.svc.Authenticate(ctx, "a@b.com", "Wrong1234")
	require.Error(t, err)

	f.store.InjectFault("GetByEmail", errors.New("connection reset"))
	_, err = f.svc.Authenticate(ctx, "a@b.com", "Secret123")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("register", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("register", "duplicate_email")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("authenticate", "invalid_credentials")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("authenticate", "error")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.OperationDuration))
}

func TestMetrics_RecordSwept(t *testing.T) {
	metrics := auth.NewMetrics(prometheus.NewRegistry())

	metrics.RecordSwept(3)
	metrics.RecordSwept(0)
	metrics.RecordSwept(-1)

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.ResetTokensSwept), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *auth.Metrics
	assert.NotPanics(t, func() { metrics.RecordSwept(5) })

	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), "a@b.com", "alice", "Secret123")
	assert.NoError(t, err)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	auth.NewMetrics(reg)
	assert.Panics(t, func() { auth.NewMetrics(reg) })
}
