// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/metrics"
	"github.com/taibuivan/quire/internal/platform/revocation"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/users/auth"
)

// # In-memory repository

type memoryUsers struct {
	mu     sync.Mutex
	byID   map[string]*auth.User
	outage bool
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[string]*auth.User)}
}

func (repository *memoryUsers) check() error {
	if repository.outage {
		return apperr.ServiceUnavailable("Storage is temporarily unavailable")
	}
	return nil
}

func (repository *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.check(); err != nil {
		return nil, err
	}
	user, found := repository.byID[id]
	if !found {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repository *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.check(); err != nil {
		return nil, err
	}
	for _, user := range repository.byID {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *memoryUsers) Create(_ context.Context, user *auth.User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if err := repository.check(); err != nil {
		return err
	}
	clone := *user
	repository.byID[user.ID] = &clone
	return nil
}

func (repository *memoryUsers) UpdateProfile(_ context.Context, user *auth.User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	stored := repository.byID[user.ID]
	stored.Name, stored.Affiliation, stored.ProfileStatus = user.Name, user.Affiliation, user.ProfileStatus
	return nil
}

func (repository *memoryUsers) UpdateRole(_ context.Context, userID string, role sec.UserRole) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.byID[userID].Role = role
	return nil
}

func (repository *memoryUsers) UpdatePassword(_ context.Context, userID, newHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.byID[userID].PasswordHash = newHash
	return nil
}

func (repository *memoryUsers) setOutage(outage bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.outage = outage
}

// # Registry that can be switched off

type flakyRegistry struct {
	revocation.Registry
	down bool
}

var errRegistryDown = errors.New("dial tcp: connection refused")

func (registry *flakyRegistry) Revoke(ctx context.Context, id string, until time.Time) (bool, error) {
	if registry.down {
		return false, errRegistryDown
	}
	return registry.Registry.Revoke(ctx, id, until)
}

func (registry *flakyRegistry) IsRevoked(ctx context.Context, id string) (bool, error) {
	if registry.down {
		return false, errRegistryDown
	}
	return registry.Registry.IsRevoked(ctx, id)
}

// # Fixture

type fixture struct {
	users    *memoryUsers
	registry *flakyRegistry
	issuer   *sec.TokenIssuer
	metrics  *metrics.Registry
	service  *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer, err := sec.NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", "quire.test")
	require.NoError(t, err)

	users := newMemoryUsers()
	registry := &flakyRegistry{Registry: revocation.NewMemoryRegistry()}
	events := metrics.New()

	return &fixture{
		users:    users,
		registry: registry,
		issuer:   issuer,
		metrics:  events,
		service:  auth.NewService(users, issuer, registry, events),
	}
}

// seed stores a user with the given role and password directly.
func (f *fixture) seed(t *testing.T, id, email, password string, role sec.UserRole) *auth.User {
	t.Helper()
	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		ID:            id,
		Email:         email,
		PasswordHash:  hash,
		Name:          "Seeded " + id,
		Role:          role,
		ProfileStatus: auth.ProfileComplete,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}
