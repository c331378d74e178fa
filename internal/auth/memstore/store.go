// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memstore provides an in-memory implementation of the auth
// persistence interfaces. It enforces the same uniqueness rules as the
// PostgreSQL schema and supports rollback, which makes it suitable for
// tests and single-process tooling.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

type txKey struct{}

// Store holds users and profiles in memory.
type Store struct {
	txMu sync.Mutex // serializes transactions

	mu         sync.Mutex
	users      map[ulid.ULID]auth.User
	profiles   map[ulid.ULID]auth.UserProfile
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
	byGoogleID map[string]ulid.ULID
	faults     map[string]error
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:      make(map[ulid.ULID]auth.User),
		profiles:   make(map[ulid.ULID]auth.UserProfile),
		byEmail:    make(map[string]ulid.ULID),
		byUsername: make(map[string]ulid.ULID),
		byGoogleID: make(map[string]ulid.ULID),
		faults:     make(map[string]error),
	}
}

// InjectFault makes the next call to the named method (for example
// "Create" or "Update") fail with err.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Profile returns the stored profile for userID.
func (s *Store) Profile(userID ulid.ULID) (auth.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// fault consumes a pending injected error for method. Callers hold s.mu.
func (s *Store) fault(method string) error {
	err, ok := s.faults[method]
	if !ok {
		return nil
	}
	delete(s.faults, method)
	return err
}

// InTransaction runs fn with exclusive access to the store. Any change made
// by fn is discarded if it returns an error or panics. Nested calls join
// the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

type snapshot struct {
	users      map[ulid.ULID]auth.User
	profiles   map[ulid.ULID]auth.UserProfile
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
	byGoogleID map[string]ulid.ULID
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		users:      maps.Clone(s.users),
		profiles:   maps.Clone(s.profiles),
		byEmail:    maps.Clone(s.byEmail),
		byUsername: maps.Clone(s.byUsername),
		byGoogleID: maps.Clone(s.byGoogleID),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.profiles = snap.profiles
	s.byEmail = snap.byEmail
	s.byUsername = snap.byUsername
	s.byGoogleID = snap.byGoogleID
}

// GetByEmail implements auth.UserRepository.
func (s *Store) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByEmail"); err != nil {
		return nil, err
	}
	return s.lookup(s.byEmail, email, "email")
}

// GetByUsername implements auth.UserRepository.
func (s *Store) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByUsername"); err != nil {
		return nil, err
	}
	return s.lookup(s.byUsername, username, "username")
}

// GetByExternalID implements auth.UserRepository.
func (s *Store) GetByExternalID(_ context.Context, googleID string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByExternalID"); err != nil {
		return nil, err
	}
	return s.lookup(s.byGoogleID, googleID, "google_id")
}

// GetByID implements auth.UserRepository.
func (s *Store) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetByID"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) lookup(index map[string]ulid.ULID, key, field string) (*auth.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With(field, key).Wrap(auth.ErrNotFound)
	}
	return cloneUser(s.users[id]), nil
}

// Create implements auth.UserRepository.
func (s *Store) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Create"); err != nil {
		return err
	}
	if _, exists := s.users[user.ID]; exists {
		return oops.Code("USER_CREATE_FAILED").With("id", user.ID.String()).Errorf("user id already exists")
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	s.put(*cloneUser(*user))
	return nil
}

// CreateProfile implements auth.UserRepository.
func (s *Store) CreateProfile(_ context.Context, profile *auth.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateProfile"); err != nil {
		return err
	}
	if _, ok := s.users[profile.UserID]; !ok {
		return oops.Code("PROFILE_CREATE_FAILED").
			With("user_id", profile.UserID.String()).
			Errorf("user does not exist")
	}
	if _, exists := s.profiles[profile.UserID]; exists {
		return oops.Code("PROFILE_CREATE_FAILED").
			With("user_id", profile.UserID.String()).
			Errorf("profile already exists")
	}
	s.profiles[profile.UserID] = *profile
	return nil
}

// Update implements auth.UserRepository.
func (s *Store) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("Update"); err != nil {
		return err
	}
	old, ok := s.users[user.ID]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", user.ID.String()).Wrap(auth.ErrNotFound)
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	delete(s.byEmail, old.Email)
	delete(s.byUsername, old.Username)
	if old.GoogleID != nil {
		delete(s.byGoogleID, *old.GoogleID)
	}
	s.put(*cloneUser(*user))
	return nil
}

// checkUnique reports a conflict with any user other than user itself.
func (s *Store) checkUnique(user *auth.User) error {
	if id, ok := s.byEmail[user.Email]; ok && id != user.ID {
		return auth.DuplicateEmailError(user.Email)
	}
	if id, ok := s.byUsername[user.Username]; ok && id != user.ID {
		return auth.DuplicateUsernameError(user.Username)
	}
	if user.GoogleID != nil {
		if id, ok := s.byGoogleID[*user.GoogleID]; ok && id != user.ID {
			return auth.DuplicateExternalIDError()
		}
	}
	return nil
}

func (s *Store) put(u auth.User) {
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	s.byUsername[u.Username] = u.ID
	if u.GoogleID != nil {
		s.byGoogleID[*u.GoogleID] = u.ID
	}
}

// cloneUser copies u including the values behind its pointer fields.
func cloneUser(u auth.User) *auth.User {
	c := u
	if u.PasswordHash != nil {
		v := *u.PasswordHash
		c.PasswordHash = &v
	}
	if u.GoogleID != nil {
		v := *u.GoogleID
		c.GoogleID = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

// Compile-time interface checks.
var (
	_ auth.UserRepository = (*Store)(nil)
	_ auth.Transactor     = (*Store)(nil)
)
