// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/pkg/errutil"
)

func TestBcryptHasher_DefaultCost(t *testing.T) {
	hasher := auth.NewBcryptHasher()
	assert.Equal(t, 12, hasher.Cost())

	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
}

func TestBcryptHasher_WithCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost)).Cost())
	assert.Equal(t, 12, auth.NewBcryptHasher(auth.WithCost(1)).Cost(), "out of range cost is ignored")
	assert.Equal(t, 12, auth.NewBcryptHasher(auth.WithCost(bcrypt.MaxCost+1)).Cost())
}

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost))

	t.Run("produces bcrypt hash", func(t *testing.T) {
		hash, err := hasher.Hash("Secret123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"), "got %q", hash)
	})

	t.Run("same password produces different hashes", func(t *testing.T) {
		h1, err := hasher.Hash("Secret123")
		require.NoError(t, err)
		h2, err := hasher.Hash("Secret123")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("hashes passwords longer than 72 bytes", func(t *testing.T) {
		long := "Secret123" + strings.Repeat("x", 71)
		hash, err := hasher.Hash(long)
		require.NoError(t, err)
		assert.True(t, hasher.Verify(long, hash))
	})

	t.Run("long passwords differ past byte 72", func(t *testing.T) {
		prefix := strings.Repeat("A1", 36)
		hash, err := hasher.Hash(prefix + "first")
		require.NoError(t, err)
		assert.True(t, hasher.Verify(prefix+"first", hash))
		assert.False(t, hasher.Verify(prefix+"other", hash))
		assert.False(t, hasher.Verify(prefix, hash))
	})

	t.Run("accepts exactly 72 bytes", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("A", 72))
		assert.NoError(t, err)
	})
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost))
	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", "Secret123", hash, true},
		{"wrong password", "Secret124", hash, false},
		{"case matters", "secret123", hash, false},
		{"empty hash", "Secret123", "", false},
		{"malformed hash", "Secret123", "not-a-bcrypt-hash", false},
		{"truncated hash", "Secret123", hash[:20], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Verify(tt.password, tt.hash))
		})
	}
}

func TestBcryptHasher_NeedsUpgrade(t *testing.T) {
	low := auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost))
	higher := auth.NewBcryptHasher(auth.WithCost(bcrypt.MinCost + 1))

	hash, err := low.Hash("Secret123")
	require.NoError(t, err)

	assert.False(t, low.NeedsUpgrade(hash))
	assert.True(t, higher.NeedsUpgrade(hash))
	assert.True(t, low.NeedsUpgrade("garbage"))
}
