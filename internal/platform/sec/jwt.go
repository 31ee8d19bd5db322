// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces declared by the consumers.
//
// # Two keys
//
// Access and refresh tokens are signed with distinct HMAC secrets, so a leaked
// access-signing key cannot mint refresh tokens and vice versa.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Lifetimes

const (
	// AccessTokenTTL bounds the exposure of a leaked access token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a refresh token and of its revocation entry.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens inside the claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalidToken is returned when a token fails signature, structure or expiry checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType is returned when a structurally valid token has the wrong type claim.
	ErrWrongTokenType = errors.New("invalid token type")
)

// AuthClaims represents the payload embedded inside both token kinds.
//
// The refresh token carries its revocation id in the registered `jti` claim.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	Role      UserRole  `json:"rol"`
	TokenType TokenType `json:"tkt"`
}

// SubjectID returns the identity the token was issued for.
func (c *AuthClaims) SubjectID() string { return c.Subject }

// RevocationID returns the refresh token's revocation id (empty for access tokens).
func (c *AuthClaims) RevocationID() string { return c.ID }

// ExpiresAtTime returns the expiry as a [time.Time], or the zero value.
func (c *AuthClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenPair is the result of a single issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RevocationID     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// # Issuer

// TokenIssuer mints and verifies HS256 tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// IssuerOption customises a [TokenIssuer].
type IssuerOption func(*TokenIssuer)

// WithTTL overrides the access and refresh lifetimes.
func WithTTL(access, refresh time.Duration) IssuerOption {
	return func(issuer *TokenIssuer) {
		issuer.accessTTL = access
		issuer.refreshTTL = refresh
	}
}

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) IssuerOption {
	return func(issuer *TokenIssuer) {
		issuer.now = now
	}
}

// NewTokenIssuer creates a TokenIssuer.
//
// Both secrets are required and must differ.
func NewTokenIssuer(accessSecret, refreshSecret, issuer string, options ...IssuerOption) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets must be provided")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}

	tokenIssuer := &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     AccessTokenTTL,
		refreshTTL:    RefreshTokenTTL,
		now:           time.Now,
	}
	for _, option := range options {
		option(tokenIssuer)
	}

	return tokenIssuer, nil
}

/*
Issue mints an access token and a refresh token for the identity.

Description: Pure generation. Storage and transport are the caller's concern.
A signing failure aborts the whole pair; callers never receive half a pair.

Parameters:
  - subjectID: string
  - role: UserRole

Returns:
  - *TokenPair: Both signed tokens and the refresh token's revocation id
  - error: Signing or entropy failures (configuration errors)
*/
func (issuer *TokenIssuer) Issue(subjectID string, role UserRole) (*TokenPair, error) {
	currentTime := issuer.now()

	revocationID, err := GenerateSecureToken(RevocationIDLength)
	if err != nil {
		return nil, err
	}

	accessExpiresAt := currentTime.Add(issuer.accessTTL)
	accessToken, err := issuer.sign(AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    issuer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
		},
		Role:      role,
		TokenType: TokenTypeAccess,
	}, issuer.accessSecret)
	if err != nil {
		return nil, err
	}

	refreshExpiresAt := currentTime.Add(issuer.refreshTTL)
	refreshToken, err := issuer.sign(AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        revocationID,
			Subject:   subjectID,
			Issuer:    issuer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(refreshExpiresAt),
		},
		Role:      role,
		TokenType: TokenTypeRefresh,
	}, issuer.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RevocationID:     revocationID,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// VerifyAccess checks the signature against the access key, then the type claim.
func (issuer *TokenIssuer) VerifyAccess(tokenString string) (*AuthClaims, error) {
	return issuer.verify(tokenString, issuer.accessSecret, TokenTypeAccess)
}

// VerifyRefresh checks the signature against the refresh key, then the type claim.
//
// It does NOT consult the revocation registry; see auth.Service for the full check.
func (issuer *TokenIssuer) VerifyRefresh(tokenString string) (*AuthClaims, error) {
	return issuer.verify(tokenString, issuer.refreshSecret, TokenTypeRefresh)
}

// Peek decodes the claims without verifying the signature or expiry.
//
// The result is untrusted and only good for cheap pre-checks (such as a
// revocation lookup) that can only ever reject.
func (issuer *TokenIssuer) Peek(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// sign serialises and signs claims with HS256.
func (issuer *TokenIssuer) sign(claims AuthClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// verify parses tokenString with secret and enforces the expected type.
func (issuer *TokenIssuer) verify(tokenString string, secret []byte, expected TokenType) (*AuthClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expected {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
