// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/ctxutil"
	"github.com/taibuivan/quire/internal/platform/middleware"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/transport"
)

// # Fakes

type fakeLoader struct {
	principals map[string]*sec.Principal
	err        error
}

func (loader *fakeLoader) LoadPrincipal(_ context.Context, id string) (*sec.Principal, error) {
	if loader.err != nil {
		return nil, loader.err
	}
	principal, found := loader.principals[id]
	if !found {
		return nil, apperr.NotFound("User")
	}
	return principal, nil
}

type guardFixture struct {
	issuer *sec.TokenIssuer
	loader *fakeLoader
	guard  *middleware.Guard
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	issuer, err := sec.NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", "quire.test")
	require.NoError(t, err)

	loader := &fakeLoader{principals: map[string]*sec.Principal{
		"author-1": {ID: "author-1", Role: sec.RoleAuthor, Email: "author@quire.test"},
		"admin-1":  {ID: "admin-1", Role: sec.RoleAdmin, Email: "admin@quire.test"},
	}}

	tp := transport.New(true, http.SameSiteLaxMode, "")
	return &guardFixture{issuer: issuer, loader: loader, guard: middleware.NewGuard(issuer, tp, loader)}
}

// echoPrincipal writes the attached principal id, or "anonymous".
var echoPrincipal = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	principal := ctxutil.GetPrincipal(request.Context())
	if principal == nil {
		_, _ = writer.Write([]byte("anonymous"))
		return
	}
	_, _ = writer.Write([]byte(principal.ID + "|" + string(principal.Role) + "|" + principal.Email))
})

func errorMessage(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope.Error
}

/*
TestGuard_Authenticate covers each rejection step and the happy path.
*/
func TestGuard_Authenticate(t *testing.T) {
	fixture := newGuardFixture(t)

	authorPair, err := fixture.issuer.Issue("author-1", sec.RoleAuthor)
	require.NoError(t, err)
	ghostPair, err := fixture.issuer.Issue("ghost", sec.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name        string
		prepare     func(request *http.Request)
		wantStatus  int
		wantMessage string
		wantBody    string
	}{
		{
			name:        "No token",
			prepare:     func(*http.Request) {},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "No token provided",
		},
		{
			name:        "Garbage token",
			prepare:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
		{
			name:        "Refresh token replayed as access",
			prepare:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+authorPair.RefreshToken) },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token",
		},
		{
			name:        "Unknown subject",
			prepare:     func(r *http.Request) { r.Header.Set("X-Access-Token", ghostPair.AccessToken) },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Account not found",
		},
		{
			name: "Valid cookie token",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: authorPair.AccessToken})
			},
			wantStatus: http.StatusOK,
			wantBody:   "author-1|AUTHOR|author@quire.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			tt.prepare(request)
			recorder := httptest.NewRecorder()

			fixture.guard.Authenticate(echoPrincipal).ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, errorMessage(t, recorder))
			}
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, recorder.Body.String())
			}
		})
	}
}

/*
TestGuard_WrongTypeClaim verifies the type check for a token signed with the access key
but claiming to be a refresh token.
*/
func TestGuard_WrongTypeClaim(t *testing.T) {
	fixture := newGuardFixture(t)
	verifier := stubVerifier{err: sec.ErrWrongTokenType}
	guard := middleware.NewGuard(verifier, transport.New(true, http.SameSiteLaxMode, ""), fixture.loader)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer anything")
	recorder := httptest.NewRecorder()

	guard.Authenticate(echoPrincipal).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Invalid token type", errorMessage(t, recorder))
}

type stubVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (verifier stubVerifier) VerifyAccess(string) (*sec.AuthClaims, error) {
	return verifier.claims, verifier.err
}

/*
TestGuard_StoreOutage verifies that an unreachable credential store is a 503, not a 401.
*/
func TestGuard_StoreOutage(t *testing.T) {
	fixture := newGuardFixture(t)
	fixture.loader.err = apperr.ServiceUnavailable("Credential store unavailable")

	pair, err := fixture.issuer.Issue("author-1", sec.RoleAuthor)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	recorder := httptest.NewRecorder()

	fixture.guard.Authenticate(echoPrincipal).ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	// The optional variant degrades to anonymous instead.
	recorder = httptest.NewRecorder()
	fixture.guard.OptionalAuthenticate(echoPrincipal).ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "anonymous", recorder.Body.String())
}

/*
TestGuard_OptionalAuthenticate verifies that failures never reject.
*/
func TestGuard_OptionalAuthenticate(t *testing.T) {
	fixture := newGuardFixture(t)
	pair, err := fixture.issuer.Issue("admin-1", sec.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		wantBody string
	}{
		{"No token", "", "anonymous"},
		{"Invalid token", "garbage", "anonymous"},
		{"Valid token", pair.AccessToken, "admin-1|ADMIN|admin@quire.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/journals", nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()

			fixture.guard.OptionalAuthenticate(echoPrincipal).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.wantBody, recorder.Body.String())
		})
	}
}

/*
TestRequireRole verifies the set-membership gate and its composition with the guard.
*/
func TestRequireRole(t *testing.T) {
	fixture := newGuardFixture(t)
	adminPair, _ := fixture.issuer.Issue("admin-1", sec.RoleAdmin)
	authorPair, _ := fixture.issuer.Issue("author-1", sec.RoleAuthor)

	handler := fixture.guard.Authenticate(middleware.RequireRole(sec.RoleAdmin)(echoPrincipal))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"Admin allowed", adminPair.AccessToken, http.StatusOK},
		{"Author forbidden", authorPair.AccessToken, http.StatusForbidden},
		{"Anonymous unauthorized", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/journals/1/review", nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}

	// Without the guard in front the gate still refuses anonymous callers.
	recorder := httptest.NewRecorder()
	middleware.RequireRole(sec.RoleAdmin)(echoPrincipal).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestGuard_RoundTripForEveryRole checks that issue followed by verification yields the same identity.
*/
func TestGuard_RoundTripForEveryRole(t *testing.T) {
	fixture := newGuardFixture(t)
	fixture.loader.principals["user-1"] = &sec.Principal{ID: "user-1", Role: sec.RoleUser, Email: "user@quire.test"}

	for id, principal := range fixture.loader.principals {
		pair, err := fixture.issuer.Issue(id, principal.Role)
		require.NoError(t, err)

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		recorder := httptest.NewRecorder()

		fixture.guard.Authenticate(echoPrincipal).ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, id+"|"+string(principal.Role)+"|"+principal.Email, recorder.Body.String())
	}
}
