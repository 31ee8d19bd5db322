// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/users/auth"
)

/*
TestService_Register covers the registration outcomes.
*/
func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		session, err := f.service.Register(ctx, auth.RegisterInput{
			Email: "  Ada@Quire.Test ", Password: "correct-horse", Name: "Ada",
		})
		require.NoError(t, err)

		assert.Equal(t, "ada@quire.test", session.User.Email)
		assert.Equal(t, sec.RoleUser, session.User.Role)
		assert.True(t, session.User.RequiresProfileCompletion())
		assert.NotEmpty(t, session.Tokens.AccessToken)
		assert.NotEmpty(t, session.Tokens.RefreshToken)

		claims, err := f.issuer.VerifyAccess(session.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, claims.SubjectID())
	})

	t.Run("Duplicate email", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

		_, err := f.service.Register(ctx, auth.RegisterInput{Email: "ADA@quire.test", Password: "another-pass", Name: "Ada"})
		assert.True(t, apperr.HasStatus(err, http.StatusConflict))
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Register(ctx, auth.RegisterInput{Email: "nope", Password: "short", Name: ""})
		require.True(t, apperr.HasStatus(err, http.StatusBadRequest))
		assert.Len(t, apperr.As(err).Details, 3)
	})

	t.Run("Password over bcrypt byte limit", func(t *testing.T) {
		f := newFixture(t)

		// 40 characters, 80 bytes.
		_, err := f.service.Register(ctx, auth.RegisterInput{Email: "ada@quire.test", Password: strings.Repeat("é", 40), Name: "Ada"})
		require.True(t, apperr.HasStatus(err, http.StatusBadRequest))
		assert.Equal(t, auth.FieldPassword, apperr.As(err).Details[0].Field)
	})

	t.Run("Store outage", func(t *testing.T) {
		f := newFixture(t)
		f.users.setOutage(true)

		_, err := f.service.Register(ctx, auth.RegisterInput{Email: "ada@quire.test", Password: "correct-horse", Name: "Ada"})
		assert.True(t, apperr.HasStatus(err, http.StatusServiceUnavailable))
	})
}

/*
TestService_Login verifies that failures do not reveal which part was wrong.
*/
func TestService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleAuthor)

	session, err := f.service.Login(ctx, auth.LoginInput{Email: "Ada@quire.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "u1", session.User.ID)

	_, wrongPassword := f.service.Login(ctx, auth.LoginInput{Email: "ada@quire.test", Password: "wrong-horse"})
	_, unknownEmail := f.service.Login(ctx, auth.LoginInput{Email: "bob@quire.test", Password: "correct-horse"})

	require.True(t, apperr.HasStatus(wrongPassword, http.StatusUnauthorized))
	require.True(t, apperr.HasStatus(unknownEmail, http.StatusUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	f.users.setOutage(true)
	_, err = f.service.Login(ctx, auth.LoginInput{Email: "ada@quire.test", Password: "correct-horse"})
	assert.True(t, apperr.HasStatus(err, http.StatusServiceUnavailable))
}

/*
TestService_Refresh_SingleUse verifies that a rotated token is rejected on any later use.
*/
func TestService_Refresh_SingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleAuthor)

	login, err := f.service.Login(ctx, auth.LoginInput{Email: "ada@quire.test", Password: "correct-horse"})
	require.NoError(t, err)

	rotated, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RevocationID, rotated.Tokens.RevocationID)

	_, err = f.service.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)

	// The new token still works exactly once.
	_, err = f.service.Refresh(ctx, rotated.Tokens.RefreshToken)
	require.NoError(t, err)
}

/*
TestService_Refresh_ReuseNeedsValidSignature verifies that only a genuine
revoked token counts as reuse. A token forged around a revoked id is
rejected without touching the reuse counter.
*/
func TestService_Refresh_ReuseNeedsValidSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        pair.RevocationID,
			Subject:   "victim",
			Issuer:    "quire.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:      sec.RoleUser,
		TokenType: sec.TokenTypeRefresh,
	})
	signed, err := forged.SignedString([]byte("not-the-refresh-secret"))
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, signed)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)
	assert.Contains(t, scrapeMetrics(t, f), "auth_refresh_reuse_detected_total 0")

	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)
	assert.Contains(t, scrapeMetrics(t, f), "auth_refresh_reuse_detected_total 1")
}

func scrapeMetrics(t *testing.T, f *fixture) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	return recorder.Body.String()
}

/*
TestService_Refresh_ConcurrentPresentation verifies that concurrent rotations of one
token produce exactly one new pair.
*/
func TestService_Refresh_ConcurrentPresentation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	var successes atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Refresh(ctx, pair.RefreshToken); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
}

/*
TestService_Refresh_Rejections covers every rejection path.
*/
func TestService_Refresh_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)
	ghost, err := f.issuer.Issue("ghost", sec.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Garbage", "not.a.jwt"},
		{"Access token presented as refresh", pair.AccessToken},
		{"Vanished account", ghost.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Refresh(ctx, tt.token)
			assert.ErrorIs(t, err, auth.ErrRefreshRejected)
		})
	}
}

/*
TestService_Refresh_UsesCurrentRole verifies that the new pair carries the stored role.
*/
func TestService_Refresh_UsesCurrentRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateRole(ctx, "u1", sec.RoleAdmin))

	session, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, session.User.Role)

	claims, err := f.issuer.VerifyAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdmin, claims.Role)
}

/*
TestService_Refresh_RegistryOutage verifies that a registry outage is a 503, not a rejection.
*/
func TestService_Refresh_RegistryOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	f.registry.down = true
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.NotErrorIs(t, err, auth.ErrRefreshRejected)
	assert.True(t, apperr.HasStatus(err, http.StatusServiceUnavailable))

	// The token was not consumed.
	f.registry.down = false
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_Logout verifies that logout revokes the refresh token and is idempotent.
*/
func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.service.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.service.Logout(ctx, ""))
	require.NoError(t, f.service.Logout(ctx, "garbage"))

	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)
}

/*
TestService_ToggleRole verifies revoke-then-issue and the ADMIN exclusion.
*/
func TestService_ToggleRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)
	f.seed(t, "a1", "root@quire.test", "correct-horse", sec.RoleAdmin)

	before, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	session, err := f.service.ToggleRole(ctx, "u1", before.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAuthor, session.User.Role)

	claims, err := f.issuer.VerifyAccess(session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAuthor, claims.Role)

	// The old refresh token died before the new one was minted.
	_, err = f.service.Refresh(ctx, before.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)

	session, err = f.service.ToggleRole(ctx, "u1", session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleUser, session.User.Role)

	_, err = f.service.ToggleRole(ctx, "a1", "")
	assert.True(t, apperr.HasStatus(err, http.StatusForbidden))
}

/*
TestService_ToggleRole_RegistryOutage verifies nothing is mutated when revocation fails.
*/
func TestService_ToggleRole_RegistryOutage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	f.registry.down = true
	_, err = f.service.ToggleRole(ctx, "u1", pair.RefreshToken)
	assert.True(t, apperr.HasStatus(err, http.StatusServiceUnavailable))

	user, err := f.users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleUser, user.Role)
}

/*
TestService_ChangePassword verifies credential checks and refresh revocation.
*/
func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	_, err = f.service.ChangePassword(ctx, "u1", auth.ChangePasswordInput{
		CurrentPassword: "wrong-horse", NewPassword: "battery-staple",
	}, pair.RefreshToken)
	assert.True(t, apperr.HasStatus(err, http.StatusUnauthorized))

	_, err = f.service.ChangePassword(ctx, "u1", auth.ChangePasswordInput{
		CurrentPassword: "correct-horse", NewPassword: strings.Repeat("é", 40),
	}, pair.RefreshToken)
	require.True(t, apperr.HasStatus(err, http.StatusBadRequest))
	assert.Equal(t, auth.FieldNewPassword, apperr.As(err).Details[0].Field)

	session, err := f.service.ChangePassword(ctx, "u1", auth.ChangePasswordInput{
		CurrentPassword: "correct-horse", NewPassword: "battery-staple",
	}, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Tokens.RefreshToken)

	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshRejected)

	_, err = f.service.Login(ctx, auth.LoginInput{Email: "ada@quire.test", Password: "battery-staple"})
	assert.NoError(t, err)
}

/*
TestService_CompleteProfile verifies the profile status transition.
*/
func TestService_CompleteProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.service.Register(ctx, auth.RegisterInput{Email: "ada@quire.test", Password: "correct-horse", Name: "Ada"})
	require.NoError(t, err)

	_, err = f.service.CompleteProfile(ctx, session.User.ID, auth.CompleteProfileInput{Name: "Ada"})
	assert.True(t, apperr.HasStatus(err, http.StatusBadRequest))

	user, err := f.service.CompleteProfile(ctx, session.User.ID, auth.CompleteProfileInput{
		Name: "Ada Lovelace", Affiliation: "Analytical Society",
	})
	require.NoError(t, err)
	assert.False(t, user.RequiresProfileCompletion())

	principal, err := f.service.LoadPrincipal(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@quire.test", principal.Email)
}
