// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package transport carries session tokens between client and server.

Tokens travel on two redundant channels:

  - Cookies: secure, http-only, same-site cookies scoped to the whole path.
  - Headers: X-Access-Token and X-Refresh-Token carrying the same values.

Browsers that block cross-site cookies still receive the tokens through the
headers; clients with working cookies can ignore the header copy. Both
channels are always written from the same [sec.TokenPair], so they never diverge.
*/
package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/quire/internal/platform/constants"
	"github.com/taibuivan/quire/internal/platform/sec"
)

// Transport writes and reads tokens. The zero value is not useful; use [New].
type Transport struct {
	secure   bool
	sameSite http.SameSite
	domain   string
}

// New creates a Transport with the given cookie attributes.
func New(secure bool, sameSite http.SameSite, domain string) *Transport {
	return &Transport{secure: secure, sameSite: sameSite, domain: domain}
}

/*
Attach writes both tokens of pair to the cookie and header channels.

Parameters:
  - writer: http.ResponseWriter (Headers must not have been flushed yet)
  - pair: *sec.TokenPair
*/
func (transport *Transport) Attach(writer http.ResponseWriter, pair *sec.TokenPair) {
	http.SetCookie(writer, transport.cookie(constants.AccessTokenCookieName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(writer, transport.cookie(constants.RefreshTokenCookieName, pair.RefreshToken, pair.RefreshExpiresAt))

	writer.Header().Set(constants.HeaderAccessToken, pair.AccessToken)
	writer.Header().Set(constants.HeaderRefreshToken, pair.RefreshToken)
}

/*
Clear overwrites both cookies with an immediately-expired empty value.

Header copies held by the client are the client's to discard.
*/
func (transport *Transport) Clear(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		expired := transport.cookie(name, "", time.Unix(0, 0))
		expired.MaxAge = -1
		http.SetCookie(writer, expired)
	}
}

/*
ExtractAccess returns the access token presented with the request.

Sources are tried in order and the first non-empty one wins:

 1. Authorization: Bearer <token>
 2. X-Access-Token
 3. access_token cookie

Returns an empty string when no source carries a token.
*/
func (transport *Transport) ExtractAccess(request *http.Request) string {
	if token := bearer(request.Header.Get(constants.HeaderAuthorization)); token != "" {
		return token
	}
	if token := strings.TrimSpace(request.Header.Get(constants.HeaderAccessToken)); token != "" {
		return token
	}
	return cookieValue(request, constants.AccessTokenCookieName)
}

/*
ExtractRefresh returns the refresh token presented with the request.

Order: X-Refresh-Token, then the refresh_token cookie.
*/
func (transport *Transport) ExtractRefresh(request *http.Request) string {
	if token := strings.TrimSpace(request.Header.Get(constants.HeaderRefreshToken)); token != "" {
		return token
	}
	return cookieValue(request, constants.RefreshTokenCookieName)
}

// # Helpers

func (transport *Transport) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.SessionCookiePath,
		Domain:   transport.domain,
		Expires:  expires,
		Secure:   transport.secure,
		HttpOnly: true,
		SameSite: transport.sameSite,
	}
}

// bearer extracts the token from an "Authorization: Bearer <token>" value.
func bearer(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func cookieValue(request *http.Request, name string) string {
	cookie, err := request.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
