// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/quire/internal/platform/apperr"
	"github.com/taibuivan/quire/internal/platform/ctxutil"
	"github.com/taibuivan/quire/internal/platform/metrics"
	"github.com/taibuivan/quire/internal/platform/revocation"
	"github.com/taibuivan/quire/internal/platform/sec"
	"github.com/taibuivan/quire/internal/platform/validate"
	"github.com/taibuivan/quire/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer mints and verifies token pairs.
type TokenIssuer interface {
	Issue(subjectID string, role sec.UserRole) (*sec.TokenPair, error)
	VerifyRefresh(token string) (*sec.AuthClaims, error)
	Peek(token string) (*sec.AuthClaims, error)
}

// Events receives auth outcomes for metrics. [*metrics.Registry] implements it.
type Events interface {
	RefreshOutcome(outcome string)
	Revoked(reason string)
	ReuseDetected()
}

// ErrRefreshRejected is returned by [Service.Refresh] when the presented
// refresh token cannot be rotated: missing, malformed, forged, expired,
// revoked, or belonging to a vanished account.
var ErrRefreshRejected = errors.New("refresh token rejected")

// Service implements the identity use cases.
//
// # Review Process
//
// This service is critical for security. Changes to hashing, token rotation
// or revocation ordering deserve a second reviewer.
type Service struct {
	userRepository UserRepository
	tokenIssuer    TokenIssuer
	registry       revocation.Registry
	events         Events
}

// NewService constructs a new [Service] with its dependencies.
func NewService(users UserRepository, issuer TokenIssuer, registry revocation.Registry, events Events) *Service {
	return &Service{
		userRepository: users,
		tokenIssuer:    issuer,
		registry:       registry,
		events:         events,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new identity.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

/*
Register validates, hashes, persists a new identity and issues its first token pair.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Session: Created user and tokens
  - error: Validation (400), Conflict (409), store outage (503)
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Session, error) {
	email := normaliseEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldName, name).
		MaxLen(FieldName, name, NameMaxLength).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxBytes(FieldPassword, input.Password, PasswordMaxBytes)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Verify email uniqueness. The unique index still guards against a race.
	_, err := service.userRepository.FindByEmail(context, email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("Email is already registered")
	case !apperr.HasStatus(err, http.StatusNotFound):
		return nil, err
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  hashedPassword,
		Name:          name,
		Role:          sec.RoleUser,
		ProfileStatus: ProfileIncomplete,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	// A signing failure aborts the response; the account exists and the user can log in later.
	tokens, err := service.tokenIssuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_register_issue_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_registered", slog.String("user_id", user.ID))
	return &Session{User: user, Tokens: tokens}, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login validates credentials and issues a token pair.

Description: Unknown email and wrong password produce the same 401 and
cost the same bcrypt work, so responses cannot be used to enumerate accounts.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Authenticated user and tokens
  - error: Unauthorized (401) or store outage (503)
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {
	invalid := apperr.Unauthorized("Invalid email or password")

	user, err := service.userRepository.FindByEmail(context, normaliseEmail(input.Email))
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			sec.EqualiseTiming(input.Password)
			return nil, invalid
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, invalid
	}

	tokens, err := service.tokenIssuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_issue_failed: %w", err)
	}

	return &Session{User: user, Tokens: tokens}, nil
}

/*
Logout revokes the presented refresh token, if there is a verifiable one.

Description: Idempotent. A missing, malformed or already-revoked token is not
an error: there is nothing left to invalidate.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Revocation store outage (503)
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil || claims.RevocationID() == "" {
		return nil
	}

	inserted, err := service.registry.Revoke(context, claims.RevocationID(), claims.ExpiresAtTime())
	if err != nil {
		return revocationUnavailable(err)
	}
	if inserted {
		service.events.Revoked(reasonLogout)
	}

	return nil
}

// # Session Management

/*
Refresh rotates a refresh token into a new pair.

Description: Checks run cheapest first and any failure rejects:

 1. Decode the claims without trusting them.
 2. Registry membership of the revocation id.
 3. Token type is "refresh".
 4. Signature against the refresh key, then expiry.

A revoked id is only reported as reuse once the token verifies, so a forged
token naming someone else's id cannot raise alarms against their account.

The presented id is then revoked with an atomic insert. Only the caller that
performs the insert gets a new pair, so a token presented twice (even
concurrently) rotates once.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *Session: User (current role) and new tokens
  - error: ErrRefreshRejected, or 503 when a store is unreachable
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*Session, error) {
	logger := ctxutil.GetLogger(context)

	if refreshToken == "" {
		return nil, service.reject(metrics.RefreshMissing, "no token presented")
	}

	// 1. Untrusted decode
	unverified, err := service.tokenIssuer.Peek(refreshToken)
	if err != nil || unverified.RevocationID() == "" {
		return nil, service.reject(metrics.RefreshInvalid, "undecodable")
	}

	// 2. Registry
	revoked, err := service.registry.IsRevoked(context, unverified.RevocationID())
	if err != nil {
		service.events.RefreshOutcome(metrics.RefreshDegraded)
		return nil, revocationUnavailable(err)
	}
	if revoked {
		if claims, err := service.tokenIssuer.VerifyRefresh(refreshToken); err == nil {
			service.reportReuse(context, claims)
		}
		return nil, service.reject(metrics.RefreshRevoked, "revoked")
	}

	// 3. Type
	if unverified.TokenType != sec.TokenTypeRefresh {
		return nil, service.reject(metrics.RefreshInvalid, "wrong type")
	}

	// 4. Signature and expiry
	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, service.reject(metrics.RefreshInvalid, "verification failed")
	}

	user, err := service.userRepository.FindByID(context, claims.SubjectID())
	if err != nil {
		if apperr.HasStatus(err, http.StatusNotFound) {
			return nil, service.reject(metrics.RefreshNoUser, "account not found")
		}
		service.events.RefreshOutcome(metrics.RefreshDegraded)
		return nil, err
	}

	// Single use: only the first presenter inserts the id.
	inserted, err := service.registry.Revoke(context, claims.RevocationID(), claims.ExpiresAtTime())
	if err != nil {
		service.events.RefreshOutcome(metrics.RefreshDegraded)
		return nil, revocationUnavailable(err)
	}
	if !inserted {
		service.reportReuse(context, claims)
		return nil, service.reject(metrics.RefreshRevoked, "lost rotation race")
	}
	service.events.Revoked(reasonRotation)

	tokens, err := service.tokenIssuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_issue_failed: %w", err)
	}

	service.events.RefreshOutcome(metrics.RefreshRotated)
	logger.DebugContext(context, "session_rotated", slog.String("user_id", user.ID))

	return &Session{User: user, Tokens: tokens}, nil
}

// # Identity

// Me returns the current account.
func (service *Service) Me(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

// LoadPrincipal implements the Guard's identity loader.
func (service *Service) LoadPrincipal(context context.Context, userID string) (*sec.Principal, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

// CompleteProfileInput carries the profile details.
type CompleteProfileInput struct {
	Name        string
	Affiliation string
}

/*
CompleteProfile fills in the profile and marks it COMPLETE.

Parameters:
  - context: context.Context
  - userID: string
  - input: CompleteProfileInput

Returns:
  - *User: Updated account
  - error: Validation or storage failures
*/
func (service *Service) CompleteProfile(context context.Context, userID string, input CompleteProfileInput) (*User, error) {
	name := strings.TrimSpace(input.Name)
	affiliation := strings.TrimSpace(input.Affiliation)

	validator := &validate.Validator{}
	validator.Required(FieldName, name).
		MaxLen(FieldName, name, NameMaxLength).
		Required(FieldAffiliation, affiliation).
		MaxLen(FieldAffiliation, affiliation, AffiliationMaxLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Affiliation = affiliation
	user.ProfileStatus = ProfileComplete

	if err := service.userRepository.UpdateProfile(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
ToggleRole switches USER and AUTHOR and reissues tokens carrying the new role.

Description: Revoke-then-issue. The presented refresh token is revoked before
the role changes, so the old and new refresh tokens are never valid together.
A revocation outage aborts before anything is mutated.

Parameters:
  - context: context.Context
  - userID: string
  - refreshToken: string (May be empty)

Returns:
  - *Session: Updated user and new tokens
  - error: Forbidden for ADMIN, storage failures
*/
func (service *Service) ToggleRole(context context.Context, userID, refreshToken string) (*Session, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	next, ok := user.Role.Toggled()
	if !ok {
		return nil, apperr.Forbidden("Administrators cannot toggle their role")
	}

	if err := service.revokePresented(context, user.ID, refreshToken, reasonRoleChange); err != nil {
		return nil, err
	}

	if err := service.userRepository.UpdateRole(context, user.ID, next); err != nil {
		return nil, err
	}
	previous := user.Role
	user.Role = next

	tokens, err := service.tokenIssuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_toggle_issue_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_role_toggled",
		slog.String("user_id", user.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(next)),
	)

	return &Session{User: user, Tokens: tokens}, nil
}

// ChangePasswordInput carries the old and new passwords.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

/*
ChangePassword verifies the current password, stores the new hash, revokes the
presented refresh token and issues a fresh pair.

Parameters:
  - context: context.Context
  - userID: string
  - input: ChangePasswordInput
  - refreshToken: string (May be empty)

Returns:
  - *Session: User and new tokens
  - error: Validation, Unauthorized (wrong current password), storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID string, input ChangePasswordInput, refreshToken string) (*Session, error) {
	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		MinLen(FieldNewPassword, input.NewPassword, PasswordMinLength).
		MaxBytes(FieldNewPassword, input.NewPassword, PasswordMaxBytes).
		Custom(FieldNewPassword, input.NewPassword == input.CurrentPassword, "Must differ from the current password")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if !sec.CheckPasswordHash(input.CurrentPassword, user.PasswordHash) {
		return nil, apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.revokePresented(context, user.ID, refreshToken, reasonPasswordChange); err != nil {
		return nil, err
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return nil, err
	}
	user.PasswordHash = hashedPassword

	tokens, err := service.tokenIssuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_change_password_issue_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_password_changed", slog.String("user_id", user.ID))
	return &Session{User: user, Tokens: tokens}, nil
}

// # Helpers

// revokePresented revokes refreshToken when it verifies and belongs to userID.
func (service *Service) revokePresented(context context.Context, userID, refreshToken, reason string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil || claims.SubjectID() != userID || claims.RevocationID() == "" {
		return nil
	}

	inserted, err := service.registry.Revoke(context, claims.RevocationID(), claims.ExpiresAtTime())
	if err != nil {
		return revocationUnavailable(err)
	}
	if inserted {
		service.events.Revoked(reason)
	}
	return nil
}

// reject counts a failed refresh and returns the wrapped sentinel.
func (service *Service) reject(outcome, reason string) error {
	service.events.RefreshOutcome(outcome)
	return fmt.Errorf("%w: %s", ErrRefreshRejected, reason)
}

// reportReuse logs a revoked refresh token being presented again.
//
// This is either a client retrying with a stale token or a stolen token being replayed.
func (service *Service) reportReuse(context context.Context, claims *sec.AuthClaims) {
	service.events.ReuseDetected()
	ctxutil.GetLogger(context).WarnContext(context, "refresh_token_reuse_detected",
		slog.String("user_id", claims.SubjectID()),
		slog.String("revocation_id", claims.RevocationID()),
	)
}

func revocationUnavailable(err error) error {
	return apperr.ServiceUnavailable("Session store is temporarily unavailable").WithCause(err)
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
