// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records authentication outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ResetTokensSwept  prometheus.Counter
}

// NewMetrics creates and registers authentication metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_operations_total",
				Help: "Total number of authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_operation_duration_seconds",
				Help:    "Duration of authentication operations",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"operation"},
		),
		ResetTokensSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authcore_reset_tokens_swept_total",
				Help: "Total number of expired reset tokens removed by the sweeper",
			},
		),
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.ResetTokensSwept)

	return m
}

// observe records one operation that started at start and ended with err.
func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordSwept adds n to the swept reset token counter.
func (m *Metrics) RecordSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ResetTokensSwept.Add(float64(n))
}

// outcome maps err to a bounded label value.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrAuthentication) {
		if code := ErrorCode(err); code != "" {
			return strings.ToLower(strings.TrimPrefix(code, "AUTH_"))
		}
	}
	return "error"
}
