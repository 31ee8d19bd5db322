// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quire/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/quire/internal/platform/request"
	"github.com/taibuivan/quire/internal/platform/respond"
	"github.com/taibuivan/quire/internal/platform/sec"
)

// # Definitions & Constructors

// SessionTransport writes and reads tokens on the cookie and header channels.
type SessionTransport interface {
	Attach(writer http.ResponseWriter, pair *sec.TokenPair)
	Clear(writer http.ResponseWriter)
	ExtractRefresh(request *http.Request) string
}

// Handler implements the /auth HTTP endpoints.
//
// # Scope
//
// Every endpoint that mints tokens attaches them through [SessionTransport];
// the JSON body never carries tokens.
type Handler struct {
	authService  *Service
	transport    SessionTransport
	authenticate func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler].
//
// authenticate is the Guard middleware protecting the identity endpoints.
func NewHandler(service *Service, transport SessionTransport, authenticate func(http.Handler) http.Handler) *Handler {
	return &Handler{authService: service, transport: transport, authenticate: authenticate}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register         : Creates an account and starts a session.
//   - POST /login            : Starts a session.
//   - POST /logout           : Revokes the refresh token and clears cookies.
//   - POST /refresh-token    : Rotates the refresh token (204 on any token failure).
//   - GET  /me               : Current identity.
//   - POST /complete-profile : Fills in the profile.
//   - POST /toggle-role      : USER and AUTHOR swap, tokens reissued.
//   - POST /change-password  : New password, tokens reissued.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Post("/refresh-token", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.authenticate)
		r.Get("/me", handler.me)
		r.Post("/complete-profile", handler.completeProfile)
		r.Post("/toggle-role", handler.toggleRole)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type completeProfileRequest struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// # Response Payloads

type identityResponse struct {
	Identity *User `json:"identity"`
}

type registerResponse struct {
	Identity                  *User `json:"identity"`
	RequiresProfileCompletion bool  `json:"requiresProfileCompletion"`
}

type refreshResponse struct {
	SubjectID string       `json:"subjectId"`
	Role      sec.UserRole `json:"role"`
}

/*
register handles the creation of a new account.

POST /api/v1/auth/register

Response:
  - 201: {identity, requiresProfileCompletion} + tokens attached
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.transport.Attach(writer, session.Tokens)
	respond.Created(writer, registerResponse{
		Identity:                  session.User,
		RequiresProfileCompletion: session.User.RequiresProfileCompletion(),
	})
}

/*
login authenticates with email and password.

POST /api/v1/auth/login

Response:
  - 200: {identity} + tokens attached
  - 401: Invalid credentials (same message for unknown email and wrong password)
  - 503: Credential store unreachable
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.transport.Attach(writer, session.Tokens)
	respond.OK(writer, identityResponse{Identity: session.User})
}

/*
logout revokes the presented refresh token and clears the cookies.

POST /api/v1/auth/logout

Response:
  - 200: Always, unless the revocation store is unreachable (503)
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	err := handler.authService.Logout(request.Context(), handler.transport.ExtractRefresh(request))

	handler.transport.Clear(writer)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Logged out"})
}

/*
refresh rotates the refresh token.

POST /api/v1/auth/refresh-token

Response:
  - 200: {subjectId, role} + new tokens attached
  - 204: No, invalid, expired or revoked refresh token. Deliberately silent.
  - 503: A store is unreachable; the client may retry later.
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	session, err := handler.authService.Refresh(request.Context(), handler.transport.ExtractRefresh(request))
	if err != nil {
		if errors.Is(err, ErrRefreshRejected) {
			ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "refresh_rejected",
				slog.String("reason", err.Error()),
			)
			handler.transport.Clear(writer)
			respond.NoContent(writer)
			return
		}
		respond.Error(writer, request, err)
		return
	}

	handler.transport.Attach(writer, session.Tokens)
	respond.OK(writer, refreshResponse{SubjectID: session.User.ID, Role: session.User.Role})
}

/*
me returns the authenticated identity.

GET /api/v1/auth/me
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, identityResponse{Identity: user})
}

/*
completeProfile fills in the profile.

POST /api/v1/auth/complete-profile
*/
func (handler *Handler) completeProfile(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input completeProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CompleteProfile(request.Context(), principal.ID, CompleteProfileInput{
		Name:        input.Name,
		Affiliation: input.Affiliation,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, identityResponse{Identity: user})
}

/*
toggleRole swaps USER and AUTHOR and reissues tokens.

POST /api/v1/auth/toggle-role
*/
func (handler *Handler) toggleRole(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.ToggleRole(request.Context(), principal.ID, handler.transport.ExtractRefresh(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.transport.Attach(writer, session.Tokens)
	respond.OK(writer, identityResponse{Identity: session.User})
}

/*
changePassword replaces the password and reissues tokens.

POST /api/v1/auth/change-password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.ChangePassword(request.Context(), principal.ID, ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	}, handler.transport.ExtractRefresh(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.transport.Attach(writer, session.Tokens)
	respond.OK(writer, identityResponse{Identity: session.User})
}
