// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the authentication core: account registration,
// credential verification, external identity linking and password reset.
//
// # Collaborators
//
// The Service reaches persistence only through UserRepository and
// Transactor. Implementations live in the postgres and memstore
// subpackages. Time and randomness are injected through Clock and an
// io.Reader so tests can pin both.
//
// # Errors
//
// Every failure a caller is expected to handle wraps ErrAuthentication and
// one of the kind sentinels (ErrInvalidEmail, ErrDuplicateEmail, ...).
// User input travels as oops context rather than message text:
//
//	if errors.Is(err, auth.ErrDuplicateEmail) { ... }
//	code := auth.ErrorCode(err) // "AUTH_DUPLICATE_EMAIL"
//
// Infrastructure failures carry an AUTH_*_FAILED code and an "operation"
// context key.
//
// # Reset tokens
//
// Reset tokens are process-local. ResetTokenRegistry is safe for concurrent
// use and checks expiry on every read.
package auth
