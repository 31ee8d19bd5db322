// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quire/internal/platform/constants"
	"github.com/taibuivan/quire/internal/platform/middleware"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/transport"
	"github.com/taibuivan/quire/internal/users/auth"
)

// newServer mounts the auth routes the way the API server does.
func newServer(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	sessions := transport.New(true, http.SameSiteLaxMode, "")
	guard := middleware.NewGuard(f.issuer, sessions, f.service)
	return f, auth.NewHandler(f.service, sessions, guard.Authenticate).Routes()
}

func post(handler http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	request := httptest.NewRequest(http.MethodPost, path, &payload)
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

/*
TestHandler_Register verifies the 201 body and the token channels.
*/
func TestHandler_Register(t *testing.T) {
	_, server := newServer(t)

	recorder := post(server, "/register", map[string]string{
		"email": "ada@quire.test", "password": "correct-horse", "name": "Ada",
	}, nil)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var body struct {
		Data struct {
			Identity struct {
				ID            string `json:"id"`
				Email         string `json:"email"`
				Role          string `json:"role"`
				PasswordHash  string `json:"passwordHash"`
				ProfileStatus string `json:"profileStatus"`
			} `json:"identity"`
			RequiresProfileCompletion bool `json:"requiresProfileCompletion"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))

	assert.Equal(t, "ada@quire.test", body.Data.Identity.Email)
	assert.Equal(t, string(sec.RoleUser), body.Data.Identity.Role)
	assert.Empty(t, body.Data.Identity.PasswordHash)
	assert.True(t, body.Data.RequiresProfileCompletion)
	assert.NotContains(t, recorder.Body.String(), "eyJ")

	access := cookieNamed(recorder, constants.AccessTokenCookieName)
	refresh := cookieNamed(recorder, constants.RefreshTokenCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.Secure)
	assert.Equal(t, "/", refresh.Path)
	assert.Equal(t, access.Value, recorder.Header().Get(constants.HeaderAccessToken))
	assert.Equal(t, refresh.Value, recorder.Header().Get(constants.HeaderRefreshToken))
}

/*
TestHandler_Login_GenericFailure verifies both credential failures share one response.
*/
func TestHandler_Login_GenericFailure(t *testing.T) {
	f, server := newServer(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	wrongPassword := post(server, "/login", map[string]string{"email": "ada@quire.test", "password": "nope-nope"}, nil)
	unknownEmail := post(server, "/login", map[string]string{"email": "bob@quire.test", "password": "nope-nope"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Nil(t, cookieNamed(wrongPassword, constants.AccessTokenCookieName))
}

/*
TestHandler_Refresh covers rotation, the silent 204, and outage reporting.
*/
func TestHandler_Refresh(t *testing.T) {
	f, server := newServer(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleAuthor)

	pair, err := f.issuer.Issue("u1", sec.RoleAuthor)
	require.NoError(t, err)

	t.Run("No token", func(t *testing.T) {
		recorder := post(server, "/refresh-token", nil, nil)
		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.String())
	})

	t.Run("Rotates via header", func(t *testing.T) {
		recorder := post(server, "/refresh-token", nil, map[string]string{constants.HeaderRefreshToken: pair.RefreshToken})
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"data":{"subjectId":"u1","role":"AUTHOR"}}`, recorder.Body.String())
		assert.NotEmpty(t, recorder.Header().Get(constants.HeaderRefreshToken))
		assert.NotEqual(t, pair.RefreshToken, recorder.Header().Get(constants.HeaderRefreshToken))
	})

	t.Run("Replay is silent and clears cookies", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/refresh-token", nil)
		request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: pair.RefreshToken})
		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		cleared := cookieNamed(recorder, constants.RefreshTokenCookieName)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
		assert.Less(t, cleared.MaxAge, 0)
	})

	t.Run("Registry outage is not a 204", func(t *testing.T) {
		fresh, err := f.issuer.Issue("u1", sec.RoleAuthor)
		require.NoError(t, err)

		f.registry.down = true
		defer func() { f.registry.down = false }()

		recorder := post(server, "/refresh-token", nil, map[string]string{constants.HeaderRefreshToken: fresh.RefreshToken})
		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	})
}

/*
TestHandler_Logout verifies revocation and cookie clearing.
*/
func TestHandler_Logout(t *testing.T) {
	f, server := newServer(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	recorder := post(server, "/logout", nil, map[string]string{constants.HeaderRefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, cookieNamed(recorder, constants.AccessTokenCookieName))

	recorder = post(server, "/refresh-token", nil, map[string]string{constants.HeaderRefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestHandler_ProtectedRoutes verifies the Guard in front of the identity endpoints.
*/
func TestHandler_ProtectedRoutes(t *testing.T) {
	f, server := newServer(t)
	f.seed(t, "u1", "ada@quire.test", "correct-horse", sec.RoleUser)

	pair, err := f.issuer.Issue("u1", sec.RoleUser)
	require.NoError(t, err)

	t.Run("Anonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Me", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/me", nil)
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+pair.AccessToken)
		recorder := httptest.NewRecorder()
		server.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"email":"ada@quire.test"`)
	})

	t.Run("Toggle role reissues", func(t *testing.T) {
		recorder := post(server, "/toggle-role", nil, map[string]string{
			constants.HeaderAuthorization: "Bearer " + pair.AccessToken,
			constants.HeaderRefreshToken:  pair.RefreshToken,
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		claims, err := f.issuer.VerifyAccess(recorder.Header().Get(constants.HeaderAccessToken))
		require.NoError(t, err)
		assert.Equal(t, sec.RoleAuthor, claims.Role)
	})
}
