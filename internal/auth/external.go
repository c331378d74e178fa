// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// fallbackUsername is the username base for emails with an empty local part.
const fallbackUsername = "user"

// AuthenticateGoogle signs in a user asserted by Google. The caller must
// already have verified the provider's token.
//
// A user already linked to googleID is signed in. Otherwise a user with the
// same email is linked and signed in. Otherwise a new account without a
// password is created with a username derived from the email. The display
// name argument is accepted for callers that have it and is not stored.
func (s *Service) AuthenticateGoogle(ctx context.Context, googleID, email, _ string) (user *User, err error) {
	defer func(start time.Time) { s.metrics.observe("authenticate_google", start, err) }(time.Now())

	if strings.TrimSpace(googleID) == "" {
		return nil, oops.Code("AUTH_EXTERNAL_ID_EMPTY").Errorf("google id cannot be empty")
	}
	email = NormalizeEmail(email)

	// A concurrent first sign-in for the same account can win the insert
	// after our lookups; one more pass then finds its row.
	for attempt := 0; ; attempt++ {
		user, err = s.signInExternal(ctx, googleID, email)
		if err == nil || attempt > 0 || !isDuplicate(err) {
			break
		}
		s.logger.DebugContext(ctx, "retrying google sign-in after concurrent create",
			"operation", "authenticate_google", "error", err)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// isDuplicate reports whether err is one of the uniqueness kinds.
func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrDuplicateExternalID)
}

// signInExternal runs one lookup-link-or-create pass in its own transaction.
func (s *Service) signInExternal(ctx context.Context, googleID, email string) (user *User, err error) {
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		found, err := s.users.GetByExternalID(ctx, googleID)
		if err == nil {
			user, err = s.recordExternalLogin(ctx, found)
			return err
		}
		if !errors.Is(err, ErrNotFound) {
			return wrapFailure("AUTH_EXTERNAL_LOGIN_FAILED", "get user by google id", err)
		}

		found, err = s.users.GetByEmail(ctx, email)
		if err == nil {
			id := googleID
			found.GoogleID = &id
			user, err = s.recordExternalLogin(ctx, found)
			return err
		}
		if !errors.Is(err, ErrNotFound) {
			return wrapFailure("AUTH_EXTERNAL_LOGIN_FAILED", "get user by email", err)
		}

		user, err = s.createExternalUser(ctx, googleID, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) recordExternalLogin(ctx context.Context, user *User) (*User, error) {
	user.RecordLogin(s.clock.Now())
	if err := s.users.Update(ctx, user); err != nil {
		return nil, wrapFailure("AUTH_EXTERNAL_LOGIN_FAILED", "record login", err)
	}
	return user, nil
}

func (s *Service) createExternalUser(ctx context.Context, googleID, email string) (*User, error) {
	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := googleID
	user := &User{
		ID:         ulid.Make(),
		Email:      email,
		Username:   username,
		GoogleID:   &id,
		IsActive:   true,
		LastLogin:  &now,
		LoginCount: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.createWithProfile(ctx, user); err != nil {
		return nil, wrapFailure("AUTH_EXTERNAL_LOGIN_FAILED", "create user", err)
	}
	return user, nil
}

// generateUsername derives an unused username from the local part of email:
// base, then base1, base2, ... until a free candidate is found.
func (s *Service) generateUsername(ctx context.Context, email string) (string, error) {
	base := UsernameBase(email)
	candidate := base
	for n := 1; ; n++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", wrapFailure("AUTH_EXTERNAL_LOGIN_FAILED", "get user by username", err)
		}
		candidate = base + strconv.Itoa(n)
	}
}

// UsernameBase returns the lower-cased, trimmed text before the first "@"
// in email, or "user" if that is empty.
func UsernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ToLower(strings.TrimSpace(local))
	if local == "" {
		return fallbackUsername
	}
	return local
}
