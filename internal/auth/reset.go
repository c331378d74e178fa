// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ResetTokenTTL is the maximum lifetime of a password reset token.
const ResetTokenTTL = time.Hour

// resetTokenBytes is the amount of entropy in a reset token.
const resetTokenBytes = 32

// ResetEntry is what a reset token resolves to.
type ResetEntry struct {
	UserID    ulid.ULID
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer redeemable at now.
func (e ResetEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// ResetTokenRegistry maps opaque reset tokens to users. Entries are
// single-use and expire after the configured TTL; expiry is enforced on
// every read. It is safe for concurrent use.
type ResetTokenRegistry struct {
	mu      sync.Mutex
	entries map[string]ResetEntry
	ttl     time.Duration
	clock   Clock
	random  io.Reader
}

// RegistryOption configures a ResetTokenRegistry.
type RegistryOption func(*ResetTokenRegistry)

// WithTokenTTL shortens the token lifetime. Values that are not positive
// or exceed ResetTokenTTL are ignored.
func WithTokenTTL(ttl time.Duration) RegistryOption {
	return func(r *ResetTokenRegistry) {
		if ttl > 0 && ttl <= ResetTokenTTL {
			r.ttl = ttl
		}
	}
}

// WithRegistryClock sets the clock used for issuing and expiring tokens.
func WithRegistryClock(clock Clock) RegistryOption {
	return func(r *ResetTokenRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRandomSource sets the entropy source for token generation.
func WithRandomSource(random io.Reader) RegistryOption {
	return func(r *ResetTokenRegistry) {
		if random != nil {
			r.random = random
		}
	}
}

// NewResetTokenRegistry creates an empty registry.
func NewResetTokenRegistry(opts ...RegistryOption) *ResetTokenRegistry {
	r := &ResetTokenRegistry{
		entries: make(map[string]ResetEntry),
		ttl:     ResetTokenTTL,
		clock:   SystemClock{},
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the lifetime given to newly issued tokens.
func (r *ResetTokenRegistry) TTL() time.Duration {
	return r.ttl
}

// Issue creates a fresh token for userID. Earlier tokens for the same user
// stay valid until they expire or are redeemed.
func (r *ResetTokenRegistry) Issue(userID ulid.ULID) (string, ResetEntry, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(r.random, buf); err != nil {
		return "", ResetEntry{}, oops.Code("AUTH_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	entry := ResetEntry{UserID: userID, ExpiresAt: r.clock.Now().Add(r.ttl)}

	r.mu.Lock()
	r.entries[token] = entry
	r.mu.Unlock()

	return token, entry, nil
}

// Lookup resolves token without consuming it. An expired entry is deleted
// and reported as an invalid token, as is an unknown one.
func (r *ResetTokenRegistry) Lookup(token string) (ResetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[token]
	if !ok {
		return ResetEntry{}, InvalidTokenError()
	}
	if entry.Expired(r.clock.Now()) {
		delete(r.entries, token)
		return ResetEntry{}, InvalidTokenError()
	}
	return entry, nil
}

// Claim atomically removes token and returns its entry. Only one caller
// can claim a given token; a token that expired in the meantime is removed
// and reported as invalid.
func (r *ResetTokenRegistry) Claim(token string) (ResetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[token]
	if !ok {
		return ResetEntry{}, InvalidTokenError()
	}
	delete(r.entries, token)
	if entry.Expired(r.clock.Now()) {
		return ResetEntry{}, InvalidTokenError()
	}
	return entry, nil
}

// Release puts back a claimed entry whose redemption could not be completed.
// Entries that have expired since the claim are dropped.
func (r *ResetTokenRegistry) Release(token string, entry ResetEntry) {
	if entry.Expired(r.clock.Now()) {
		return
	}
	r.mu.Lock()
	r.entries[token] = entry
	r.mu.Unlock()
}

// Revoke deletes token if present.
func (r *ResetTokenRegistry) Revoke(token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// Sweep deletes every expired entry and returns how many were removed.
func (r *ResetTokenRegistry) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, entry := range r.entries {
		if entry.Expired(now) {
			delete(r.entries, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (r *ResetTokenRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RunSweeper calls Sweep every interval until ctx is done. onSweep, if
// non-nil, receives the number of entries removed by each pass.
func (r *ResetTokenRegistry) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := r.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
