// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"
)

// Authenticate verifies an email and password.
//
// Unknown emails and wrong passwords both yield InvalidCredentials and both
// pay for a bcrypt comparison. An inactive account yields AccountDisabled
// before the password is compared. On success LastLogin and LoginCount are
// updated and persisted in the same transaction as the lookup.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user *User, err error) {
	defer func(start time.Time) { s.metrics.observe("authenticate", start, err) }(time.Now())

	email = NormalizeEmail(email)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		found, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			s.equalizeTiming(password)
			return InvalidCredentialsError()
		}
		if err != nil {
			return wrapFailure("AUTH_LOGIN_FAILED", "get user by email", err)
		}

		if !found.IsActive {
			return AccountDisabledError()
		}

		if !found.HasPassword() {
			s.equalizeTiming(password)
			return InvalidCredentialsError()
		}
		if !s.hasher.Verify(password, *found.PasswordHash) {
			return InvalidCredentialsError()
		}

		now := s.clock.Now()
		found.RecordLogin(now)
		s.upgradeHash(ctx, found, password, now)

		if err := s.users.Update(ctx, found); err != nil {
			return wrapFailure("AUTH_LOGIN_FAILED", "record login", err)
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// upgradeHash re-hashes a verified password whose stored hash uses stale
// parameters. Failure keeps the old hash.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string, now time.Time) {
	if !s.hasher.NeedsUpgrade(*user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "upgrade_password_hash",
			"user_id", user.ID.String(),
			"error", err.Error())
		return
	}
	user.SetPasswordHash(hash, now)
}

// SetActive enables or disables the account registered under email.
func (s *Service) SetActive(ctx context.Context, email string, active bool) (user *User, err error) {
	defer func(start time.Time) { s.metrics.observe("set_active", start, err) }(time.Now())

	email = NormalizeEmail(email)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		found, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			return InvalidCredentialsError()
		}
		if err != nil {
			return wrapFailure("AUTH_SET_ACTIVE_FAILED", "get user by email", err)
		}

		found.IsActive = active
		found.UpdatedAt = s.clock.Now()
		if err := s.users.Update(ctx, found); err != nil {
			return wrapFailure("AUTH_SET_ACTIVE_FAILED", "update user", err)
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
