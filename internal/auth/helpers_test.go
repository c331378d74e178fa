// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memstore"
)

// fakeClock is a settable auth.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires a Service to an in-memory store with a fast hasher.
type fixture struct {
	svc    *auth.Service
	store  *memstore.Store
	clock  *fakeClock
	hasher *auth.BcryptHasher
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		clock:  newFakeClock(),
		hasher: auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost)),
	}
	opts = append([]auth.Option{auth.WithClock(f.clock)}, opts...)
	svc, err := auth.NewService(f.store, f.store, f.hasher, opts...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func strPtr(s string) *string { return &s }
