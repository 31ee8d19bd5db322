// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package client is a Go SDK for the Quire API that keeps a session alive.

A [Session] stores the token pair the server returns in the X-Access-Token
and X-Refresh-Token headers, attaches the access token to every request, and
rotates it through the refresh endpoint when the server answers 401.

# Refresh discipline

  - Refresh is never attempted after Logout, or after the server has said the
    refresh token is gone (204 or 401 from the refresh endpoint). Only Login or
    Register turns it back on.
  - After a failure, further attempts within the debounce window (10s by
    default) return immediately without touching the network.
  - Concurrent callers share one in-flight attempt.
  - An attempt that overlaps Login, Register or Logout is discarded. A token
    pair it minted after Logout is revoked on the server.
  - Every call is bounded by the HTTP client timeout (10s by default).
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/quire/internal/platform/constants"
)

// # Defaults

const (
	DefaultTimeout  = 10 * time.Second
	DefaultDebounce = 10 * time.Second
)

// # Errors

var (
	// ErrRefreshDisabled means the session ended (logout or a dead refresh token).
	ErrRefreshDisabled = errors.New("client: session refresh disabled")

	// ErrDebounced means a recent attempt failed and the debounce window has not passed.
	ErrDebounced = errors.New("client: session refresh debounced")

	// ErrSessionExpired means the server rejected the refresh token.
	ErrSessionExpired = errors.New("client: session expired")

	// ErrSessionChanged means Login, Register or Logout ran while the attempt was in flight.
	ErrSessionChanged = errors.New("client: session changed during refresh")
)

// APIError is a non-success response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %d %s: %s", e.Status, e.Code, e.Message)
}

// Transient reports whether retrying later may succeed.
func (e *APIError) Transient() bool {
	return e.Status >= http.StatusInternalServerError
}

// # Types

// Identity is the account as returned by the API.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Affiliation   string `json:"affiliation,omitempty"`
	Role          string `json:"role"`
	ProfileStatus string `json:"profileStatus"`
}

// Option configures a [Session].
type Option func(*Session)

// WithHTTPClient replaces the HTTP client. Its Timeout bounds every call.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Session) { s.httpClient = httpClient }
}

// WithClock overrides the time source used for debouncing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDebounce changes the window after a failure during which refresh is skipped.
func WithDebounce(window time.Duration) Option {
	return func(s *Session) { s.debounce = window }
}

// WithLogger sets the logger for refresh diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session is a client-side session against one API base URL.
//
// Safe for concurrent use.
type Session struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	debounce   time.Duration
	logger     *slog.Logger

	flight singleflight.Group

	mu sync.Mutex
	// epoch identifies the current session. Login, Register and Logout bump it,
	// and results of attempts started under an older epoch are dropped.
	epoch                uint64
	tokens               tokenPair
	identity             *Identity
	shouldAttemptRefresh bool
	lastFailedAttempt    time.Time
}

type tokenPair struct {
	access  string
	refresh string
}

// New creates a session for the API rooted at baseURL (e.g. "https://api.quire.app/api/v1").
func New(baseURL string, options ...Option) *Session {
	session := &Session{
		baseURL:              strings.TrimRight(baseURL, "/"),
		httpClient:           &http.Client{Timeout: DefaultTimeout},
		now:                  time.Now,
		debounce:             DefaultDebounce,
		logger:               slog.Default(),
		shouldAttemptRefresh: true,
	}
	for _, option := range options {
		option(session)
	}
	return session
}

// # State accessors

// Identity returns the last identity the server confirmed, or nil.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// ShouldAttemptRefresh reports whether a refresh may still be attempted.
func (s *Session) ShouldAttemptRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldAttemptRefresh
}

// LastFailedAttempt returns when the last session check failed, or the zero time.
func (s *Session) LastFailedAttempt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailedAttempt
}

// # Authentication

type envelope[T any] struct {
	Data T `json:"data"`
}

type identityBody struct {
	Identity *Identity `json:"identity"`
}

// Login authenticates and starts a fresh session. Refresh is re-enabled.
func (s *Session) Login(ctx context.Context, email, password string) (*Identity, error) {
	return s.startSession(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// Register creates an account and starts a fresh session. Refresh is re-enabled.
func (s *Session) Register(ctx context.Context, email, password, name string) (*Identity, error) {
	return s.startSession(ctx, "/auth/register", map[string]string{"email": email, "password": password, "name": name})
}

func (s *Session) startSession(ctx context.Context, path string, payload any) (*Identity, error) {
	response, err := s.send(ctx, http.MethodPost, path, payload, nil)
	if err != nil {
		return nil, err
	}
	defer drain(response)

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return nil, decodeError(response)
	}

	var body envelope[identityBody]
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("client: decode identity: %w", err)
	}

	s.mu.Lock()
	s.epoch++
	s.tokens = tokenPair{}
	s.captureTokensLocked(response)
	s.identity = body.Data.Identity
	s.shouldAttemptRefresh = true
	s.lastFailedAttempt = time.Time{}
	s.mu.Unlock()

	return body.Data.Identity, nil
}

// Logout ends the session locally and asks the server to revoke the refresh token.
//
// Local state is cleared even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.tokens.refresh
	s.epoch++
	s.tokens = tokenPair{}
	s.identity = nil
	s.shouldAttemptRefresh = false
	s.mu.Unlock()

	return s.revoke(ctx, refreshToken)
}

// revoke presents refreshToken to POST /auth/logout.
func (s *Session) revoke(ctx context.Context, refreshToken string) error {
	headers := map[string]string{}
	if refreshToken != "" {
		headers[constants.HeaderRefreshToken] = refreshToken
	}

	response, err := s.send(ctx, http.MethodPost, "/auth/logout", nil, headers)
	if err != nil {
		return err
	}
	defer drain(response)

	if response.StatusCode != http.StatusOK {
		return decodeError(response)
	}
	return nil
}

// # Session maintenance

/*
EnsureSession confirms the session with the server, refreshing it once if needed.

Description:

 1. Refresh disabled: return [ErrRefreshDisabled] without a network call.
 2. A failure within the debounce window: return [ErrDebounced] without a network call.
 3. Fetch the identity. On 401, rotate the refresh token once and fetch again.
 4. Success clears the failure timestamp and stores the identity.

A 204 or 401 from the refresh endpoint is definitive: tokens are dropped and
refresh stays disabled until the next Login. Network errors and 5xx only set
the failure timestamp.

Concurrent callers share one attempt and receive the same result. When
Login, Register or Logout runs during the attempt, its outcome is dropped and
[ErrSessionChanged] is returned.
*/
func (s *Session) EnsureSession(ctx context.Context) (*Identity, error) {
	if _, err := s.gate(); err != nil {
		return nil, err
	}

	result, err, _ := s.flight.Do("ensure", func() (any, error) {
		// A flight that finished just before this one started may have changed the state.
		epoch, err := s.gate()
		if err != nil {
			return nil, err
		}

		identity, err := s.ensure(ctx, epoch)
		if !s.record(epoch, identity, err) {
			return nil, ErrSessionChanged
		}
		return identity, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*Identity), nil
}

// gate applies the disabled and debounce checks and returns the current epoch.
func (s *Session) gate() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shouldAttemptRefresh {
		return s.epoch, ErrRefreshDisabled
	}
	if !s.lastFailedAttempt.IsZero() && s.now().Sub(s.lastFailedAttempt) < s.debounce {
		return s.epoch, ErrDebounced
	}
	return s.epoch, nil
}

func (s *Session) ensure(ctx context.Context, epoch uint64) (*Identity, error) {
	identity, status, err := s.fetchIdentity(ctx)
	if err != nil || status != http.StatusUnauthorized {
		return identity, err
	}

	if err := s.refresh(ctx, epoch); err != nil {
		return nil, err
	}

	identity, status, err = s.fetchIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, &APIError{Status: status, Code: "UNAUTHORIZED", Message: "rejected after refresh"}
	}
	return identity, nil
}

// fetchIdentity calls GET /auth/me. A 401 is reported through status, not err.
func (s *Session) fetchIdentity(ctx context.Context) (*Identity, int, error) {
	response, err := s.send(ctx, http.MethodGet, "/auth/me", nil, s.accessHeader())
	if err != nil {
		return nil, 0, err
	}
	defer drain(response)

	switch response.StatusCode {
	case http.StatusOK:
		var body envelope[identityBody]
		if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
			return nil, response.StatusCode, fmt.Errorf("client: decode identity: %w", err)
		}
		return body.Data.Identity, response.StatusCode, nil
	case http.StatusUnauthorized:
		return nil, response.StatusCode, nil
	default:
		return nil, response.StatusCode, decodeError(response)
	}
}

// refresh rotates the token pair through POST /auth/refresh-token.
//
// A pair minted after the epoch moved on belongs to no session; it is revoked
// at once so it cannot outlive the logout that replaced it.
func (s *Session) refresh(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionChanged
	}
	refreshToken := s.tokens.refresh
	s.mu.Unlock()

	// Never present a refresh token that is known to be absent.
	if refreshToken == "" {
		return ErrSessionExpired
	}

	response, err := s.send(ctx, http.MethodPost, "/auth/refresh-token", nil,
		map[string]string{constants.HeaderRefreshToken: refreshToken})
	if err != nil {
		return err
	}
	defer drain(response)

	switch response.StatusCode {
	case http.StatusOK:
		s.mu.Lock()
		current := s.epoch == epoch
		if current {
			s.captureTokensLocked(response)
		}
		s.mu.Unlock()

		if !current {
			if orphan := response.Header.Get(constants.HeaderRefreshToken); orphan != "" {
				if err := s.revoke(context.WithoutCancel(ctx), orphan); err != nil {
					s.logger.Warn("orphan_refresh_revoke_failed", slog.Any("error", err))
				}
			}
			return ErrSessionChanged
		}
		return nil
	case http.StatusNoContent, http.StatusUnauthorized:
		return ErrSessionExpired
	default:
		return decodeError(response)
	}
}

// record updates the session state from the outcome of one attempt started
// under epoch. It reports false, changing nothing, when the epoch has moved on.
func (s *Session) record(epoch uint64, identity *Identity, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || errors.Is(err, ErrSessionChanged) {
		return false
	}

	if err == nil {
		s.lastFailedAttempt = time.Time{}
		s.identity = identity
		return true
	}

	s.lastFailedAttempt = s.now()
	if errors.Is(err, ErrSessionExpired) {
		s.shouldAttemptRefresh = false
		s.tokens = tokenPair{}
		s.identity = nil
	}

	s.logger.Debug("session_check_failed",
		slog.Any("error", err),
		slog.Bool("refresh_enabled", s.shouldAttemptRefresh),
	)
	return true
}

// # Authenticated requests

/*
Do sends req with the access token attached.

On a 401 it runs [Session.EnsureSession] and, if that succeeds, retries once.
A request whose body cannot be replayed (Body set, GetBody nil) is not retried.
*/
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	response, err := s.do(req)
	if err != nil || response.StatusCode != http.StatusUnauthorized {
		return response, err
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return response, nil
	}

	if _, ensureErr := s.EnsureSession(req.Context()); ensureErr != nil {
		return response, nil
	}
	drain(response)

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("client: replay body: %w", err)
		}
		retry.Body = body
	}
	return s.do(retry)
}

func (s *Session) do(req *http.Request) (*http.Response, error) {
	for name, value := range s.accessHeader() {
		req.Header.Set(name, value)
	}
	return s.httpClient.Do(req)
}

// # Helpers

func (s *Session) accessHeader() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens.access == "" {
		return nil
	}
	return map[string]string{constants.HeaderAuthorization: "Bearer " + s.tokens.access}
}

// captureTokensLocked stores tokens from the response headers. Caller holds mu.
func (s *Session) captureTokensLocked(response *http.Response) {
	if access := response.Header.Get(constants.HeaderAccessToken); access != "" {
		s.tokens.access = access
	}
	if refresh := response.Header.Get(constants.HeaderRefreshToken); refresh != "" {
		s.tokens.refresh = refresh
	}
}

func (s *Session) send(ctx context.Context, method, path string, payload any, headers map[string]string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	return s.httpClient.Do(req)
}

func decodeError(response *http.Response) error {
	apiErr := &APIError{Status: response.StatusCode}
	_ = json.NewDecoder(response.Body).Decode(apiErr)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(response.StatusCode)
	}
	return apiErr
}

// drain consumes and closes the body so the connection can be reused.
func drain(response *http.Response) {
	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
}
