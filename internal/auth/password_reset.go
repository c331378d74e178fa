// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"
)

// CreateResetToken issues a single-use reset token for the account
// registered under email. Delivering the token is the caller's job.
//
// An unknown email yields InvalidCredentials, which tells the caller the
// account does not exist.
func (s *Service) CreateResetToken(ctx context.Context, email string) (token string, err error) {
	defer func(start time.Time) { s.metrics.observe("create_reset_token", start, err) }(time.Now())

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return "", InvalidCredentialsError()
	}
	if err != nil {
		return "", wrapFailure("AUTH_RESET_REQUEST_FAILED", "get user by email", err)
	}

	token, _, err = s.resets.Issue(user.ID)
	if err != nil {
		return "", wrapFailure("AUTH_RESET_REQUEST_FAILED", "issue token", err)
	}
	return token, nil
}

// ResetPassword redeems token and sets a new password.
//
// Unknown and expired tokens yield InvalidToken; expired ones are removed.
// A weak password yields WeakPassword and leaves the token usable. The token
// is claimed before the user is written, so concurrent redemptions of one
// token cannot both succeed; if the write fails the claim is released.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func(start time.Time) { s.metrics.observe("reset_password", start, err) }(time.Now())

	if _, err := s.resets.Lookup(token); err != nil {
		return err
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	entry, err := s.resets.Claim(token)
	if err != nil {
		return err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, entry.UserID)
		if errors.Is(err, ErrNotFound) {
			return InvalidTokenError()
		}
		if err != nil {
			return wrapFailure("AUTH_RESET_FAILED", "get user by id", err)
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return wrapFailure("AUTH_RESET_FAILED", "hash password", err)
		}
		user.SetPasswordHash(hash, s.clock.Now())

		if err := s.users.Update(ctx, user); err != nil {
			return wrapFailure("AUTH_RESET_FAILED", "update password", err)
		}
		return nil
	})
	if err != nil {
		// A token pointing at a vanished user stays deleted.
		if !errors.Is(err, ErrInvalidToken) {
			s.resets.Release(token, entry)
		}
		return err
	}
	return nil
}
