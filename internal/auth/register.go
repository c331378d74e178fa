// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Register creates a password account and its empty profile.
//
// Checks run in order: email format, password strength, email uniqueness,
// username uniqueness. The uniqueness checks and both inserts share one
// transaction; storage unique constraints backstop concurrent registrations.
func (s *Service) Register(ctx context.Context, email, username, password string) (user *User, err error) {
	defer func(start time.Time) { s.metrics.observe("register", start, err) }(time.Now())

	if !IsValidEmail(email) {
		return nil, InvalidEmailError(email)
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	username = NormalizeUsername(username)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return err
		}
		if err := s.ensureUsernameFree(ctx, username); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return wrapFailure("AUTH_REGISTER_FAILED", "hash password", err)
		}

		now := s.clock.Now()
		created := &User{
			ID:           ulid.Make(),
			Email:        email,
			Username:     username,
			PasswordHash: &hash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.createWithProfile(ctx, created); err != nil {
			return wrapFailure("AUTH_REGISTER_FAILED", "create user", err)
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return DuplicateEmailError(email)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return wrapFailure("AUTH_REGISTER_FAILED", "get user by email", err)
	}
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return DuplicateUsernameError(username)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return wrapFailure("AUTH_REGISTER_FAILED", "get user by username", err)
	}
}

// createWithProfile inserts user and its empty profile. Callers must be
// inside a transaction.
func (s *Service) createWithProfile(ctx context.Context, user *User) error {
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	return s.users.CreateProfile(ctx, &UserProfile{
		UserID:    user.ID,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.CreatedAt,
	})
}
