// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAuthentication is the base of every caller-facing authentication failure.
var ErrAuthentication = errors.New("authentication error")

// Error kinds. Each wraps ErrAuthentication.
var (
	ErrInvalidEmail        = fmt.Errorf("%w: invalid email", ErrAuthentication)
	ErrDuplicateEmail      = fmt.Errorf("%w: email already registered", ErrAuthentication)
	ErrDuplicateUsername   = fmt.Errorf("%w: username already taken", ErrAuthentication)
	ErrDuplicateExternalID = fmt.Errorf("%w: external identity already linked", ErrAuthentication)
	ErrWeakPassword        = fmt.Errorf("%w: weak password", ErrAuthentication)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrAuthentication)
	ErrAccountDisabled     = fmt.Errorf("%w: account disabled", ErrAuthentication)
	ErrInvalidToken        = fmt.Errorf("%w: invalid or expired token", ErrAuthentication)
)

// Error codes attached to the kinds above.
const (
	CodeInvalidEmail        = "AUTH_INVALID_EMAIL"
	CodeDuplicateEmail      = "AUTH_DUPLICATE_EMAIL"
	CodeDuplicateUsername   = "AUTH_DUPLICATE_USERNAME"
	CodeDuplicateExternalID = "AUTH_DUPLICATE_EXTERNAL_ID"
	CodeWeakPassword        = "AUTH_WEAK_PASSWORD"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDisabled     = "AUTH_ACCOUNT_DISABLED"
	CodeInvalidToken        = "AUTH_INVALID_TOKEN"
)

// InvalidEmailError reports a malformed email address.
func InvalidEmailError(email string) error {
	return oops.Code(CodeInvalidEmail).With("email", email).Wrap(ErrInvalidEmail)
}

// DuplicateEmailError reports that email is already registered.
func DuplicateEmailError(email string) error {
	return oops.Code(CodeDuplicateEmail).With("email", email).Wrap(ErrDuplicateEmail)
}

// DuplicateUsernameError reports that username is already taken.
func DuplicateUsernameError(username string) error {
	return oops.Code(CodeDuplicateUsername).With("username", username).Wrap(ErrDuplicateUsername)
}

// DuplicateExternalIDError reports that an external identity is linked to another account.
func DuplicateExternalIDError() error {
	return oops.Code(CodeDuplicateExternalID).Wrap(ErrDuplicateExternalID)
}

// WeakPasswordError reports a password that fails the strength policy.
func WeakPasswordError(reason string) error {
	return oops.Code(CodeWeakPassword).With("reason", reason).Wrap(ErrWeakPassword)
}

// InvalidCredentialsError is deliberately free of context so unknown
// accounts and wrong passwords are indistinguishable.
func InvalidCredentialsError() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

// AccountDisabledError reports an inactive account.
func AccountDisabledError() error {
	return oops.Code(CodeAccountDisabled).Wrap(ErrAccountDisabled)
}

// InvalidTokenError reports an unknown, expired or already used reset token.
func InvalidTokenError() error {
	return oops.Code(CodeInvalidToken).Wrap(ErrInvalidToken)
}

// ErrorCode returns the oops code carried by err, or "" if it has none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}

// WeakPasswordReason returns the policy reason attached to a weak password error.
func WeakPasswordReason(err error) string {
	if !errors.Is(err, ErrWeakPassword) {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	reason, _ := oopsErr.Context()["reason"].(string)
	return reason
}

// wrapFailure passes authentication kinds through untouched and tags
// everything else as an infrastructure failure.
func wrapFailure(code, operation string, err error) error {
	if errors.Is(err, ErrAuthentication) {
		return err
	}
	return oops.Code(code).With("operation", operation).Wrap(err)
}
