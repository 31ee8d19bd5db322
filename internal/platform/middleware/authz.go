// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/ctxutil"
	"github.com/taibuivan/quire/internal/platform/respond"
	"github.com/taibuivan/quire/internal/platform/sec"
)

// # Collaborators

// AccessVerifier verifies an access token's signature, expiry and type.
//
// # Why an interface?
//
// Defining it here decouples the middleware from the token issuer
// implementation, allowing fakes during unit testing.
type AccessVerifier interface {
	VerifyAccess(token string) (*sec.AuthClaims, error)
}

// AccessExtractor reads the candidate access token from the request.
type AccessExtractor interface {
	ExtractAccess(request *http.Request) string
}

// IdentityLoader loads the current principal for a token subject.
//
// Implementations return an [apperr.AppError] with status 404 when the
// account does not exist and 503 when the store cannot be reached.
type IdentityLoader interface {
	LoadPrincipal(ctx context.Context, id string) (*sec.Principal, error)
}

// # Guard

// Guard is the request-entry authorization middleware.
type Guard struct {
	verifier  AccessVerifier
	extractor AccessExtractor
	loader    IdentityLoader
}

// NewGuard creates a Guard.
func NewGuard(verifier AccessVerifier, extractor AccessExtractor, loader IdentityLoader) *Guard {
	return &Guard{verifier: verifier, extractor: extractor, loader: loader}
}

/*
Authenticate rejects requests without a valid access token.

# Flow
 1. Extract a candidate token (Bearer, X-Access-Token, cookie).
 2. Absent: 401 "No token provided".
 3. Bad signature or expired: 401 "Invalid token".
 4. Not an access token: 401 "Invalid token type".
 5. Subject no longer exists: 401 "Account not found". Store outage: 503.
 6. Attach {id, role, email} to the context.
*/
func (guard *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal, err := guard.resolve(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		notePrincipal(request.Context(), principal.ID)
		ctx := ctxutil.WithPrincipal(request.Context(), principal)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

/*
OptionalAuthenticate performs the same steps but never rejects.

Any failure leaves the request anonymous. Used for public endpoints whose
response depends on who is asking, such as the journal listing.
*/
func (guard *Guard) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal, err := guard.resolve(request)
		if err != nil {
			if apperr.HasStatus(err, http.StatusServiceUnavailable) {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "optional_auth_degraded",
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(writer, request)
			return
		}

		notePrincipal(request.Context(), principal.ID)
		ctx := ctxutil.WithPrincipal(request.Context(), principal)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// resolve runs the authentication steps and returns the principal or a typed error.
func (guard *Guard) resolve(request *http.Request) (*sec.Principal, error) {
	token := guard.extractor.ExtractAccess(request)
	if token == "" {
		return nil, apperr.Unauthorized("No token provided")
	}

	claims, err := guard.verifier.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, sec.ErrWrongTokenType) {
			return nil, apperr.Unauthorized("Invalid token type")
		}
		return nil, apperr.Unauthorized("Invalid token")
	}

	principal, err := guard.loader.LoadPrincipal(request.Context(), claims.SubjectID())
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return nil, apperr.Unauthorized("Account not found")
		}
		return nil, err
	}

	return principal, nil
}

// # Role gate

/*
RequireRole blocks requests whose principal's role is not in roles.

# Usage

Must be registered AFTER [Guard.Authenticate]. It composes with the guard,
never replaces it: an anonymous request still gets a 401.
*/
func RequireRole(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())

			if principal == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !principal.Role.In(roles...) {
				respond.Error(writer, request, apperr.Forbidden("Not authorized"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
