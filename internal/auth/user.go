// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is an account. It always carries a password hash, a Google ID, or both.
type User struct {
	ID           ulid.ULID
	Email        string  // normalized
	Username     string  // trimmed, case-sensitive
	PasswordHash *string // nil for accounts created through external identity
	GoogleID     *string
	IsActive     bool
	LastLogin    *time.Time
	LoginCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasCredential reports whether the user has at least one way to sign in.
func (u *User) HasCredential() bool {
	return u.HasPassword() || (u.GoogleID != nil && *u.GoogleID != "")
}

// RecordLogin stamps a successful authentication.
func (u *User) RecordLogin(now time.Time) {
	at := now
	u.LastLogin = &at
	u.LoginCount++
	u.UpdatedAt = now
}

// SetPasswordHash replaces the stored password hash.
func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = &hash
	u.UpdatedAt = now
}

// UserProfile is the per-user profile row created alongside every account.
type UserProfile struct {
	UserID    ulid.ULID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserRepository manages user and profile persistence.
// Lookups return ErrNotFound (possibly wrapped) when no row matches.
type UserRepository interface {
	// GetByEmail looks up a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername looks up a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByExternalID looks up a user by linked Google ID.
	GetByExternalID(ctx context.Context, googleID string) (*User, error)

	// GetByID looks up a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Create inserts a user. Unique violations surface as DuplicateEmail,
	// DuplicateUsername or DuplicateExternalID errors.
	Create(ctx context.Context, user *User) error

	// CreateProfile inserts the profile for an existing user.
	CreateProfile(ctx context.Context, profile *UserProfile) error

	// Update persists the mutable fields of user.
	Update(ctx context.Context, user *User) error
}

// Transactor runs fn inside a storage transaction. Repository calls made
// with the context passed to fn participate in that transaction. The
// transaction commits when fn returns nil and rolls back otherwise; fn's
// error is returned unchanged.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
