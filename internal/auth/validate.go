// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the strength policy accepts.
const MinPasswordLength = 8

// Weak password reasons, reported in the order they are checked.
const (
	ReasonTooShort    = "password must be at least 8 characters"
	ReasonNoUppercase = "password must contain an uppercase letter"
	ReasonNoDigit     = "password must contain a digit"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// IsValidEmail reports whether email, after trimming surrounding whitespace,
// looks like local@domain.tld.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidatePasswordStrength returns a WeakPassword error describing the first
// rule password violates, or nil.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return WeakPasswordError(ReasonTooShort)
	}
	if !strings.ContainsFunc(password, isASCIIUpper) {
		return WeakPasswordError(ReasonNoUppercase)
	}
	if !strings.ContainsFunc(password, isASCIIDigit) {
		return WeakPasswordError(ReasonNoDigit)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername trims a username. Usernames are case-sensitive.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
