// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"io"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when no real hash exists so that
// unknown accounts cost the same bcrypt work as wrong passwords. It is a
// syntactically valid bcrypt hash that matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization, not a credential.
const dummyPasswordHash = "$2a$12$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service implements registration, login, external identity linking and
// password reset.
type Service struct {
	users   UserRepository
	tx      Transactor
	hasher  PasswordHasher
	resets  *ResetTokenRegistry
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps and token expiry.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics enables operation metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithResetTokens sets the registry that holds password reset tokens.
// By default the service creates one sharing its clock.
func WithResetTokens(registry *ResetTokenRegistry) Option {
	return func(s *Service) {
		if registry != nil {
			s.resets = registry
		}
	}
}

// NewService creates a Service. users, tx and hasher are required.
func NewService(users UserRepository, tx Transactor, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}

	s := &Service{
		users:  users,
		tx:     tx,
		hasher: hasher,
		clock:  SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resets == nil {
		s.resets = NewResetTokenRegistry(WithRegistryClock(s.clock))
	}
	return s, nil
}

// ResetTokens returns the registry backing the reset flow.
func (s *Service) ResetTokens() *ResetTokenRegistry {
	return s.resets
}

// equalizeTiming runs a password comparison that is certain to fail.
// The dummy is hashed with the service's own hasher so its cost matches
// real hashes; the static constant is the fallback.
func (s *Service) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash = dummyPasswordHash
		if h, err := s.hasher.Hash("timing-equalization-placeholder"); err == nil {
			s.dummyHash = h
		}
	})
	_ = s.hasher.Verify(password, s.dummyHash)
}
