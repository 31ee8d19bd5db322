// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements identity and session management.

It owns the credential store, the login and registration flows, refresh-token
rotation against the revocation registry, and the account mutations (profile
completion, role toggle, password change) that reissue tokens.
*/
package auth

import (
	"time"

	"github.com/taibuivan/quire/internal/platform/sec"
)

// # Domain Entities

// ProfileStatus tracks whether the account has filled in its profile.
type ProfileStatus string

const (
	ProfileIncomplete ProfileStatus = "INCOMPLETE"
	ProfileComplete   ProfileStatus = "COMPLETE"
)

// User represents a registered identity.
//
// Users are never hard-deleted.
type User struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"` // Explicitly omitted from JSON for security.
	Name          string        `json:"name"`
	Affiliation   string        `json:"affiliation,omitempty"`
	Role          sec.UserRole  `json:"role"`
	ProfileStatus ProfileStatus `json:"profileStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// RequiresProfileCompletion reports whether the client should prompt for profile details.
func (user *User) RequiresProfileCompletion() bool {
	return user.ProfileStatus != ProfileComplete
}

// Principal projects the user onto the identity attached to requests.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{ID: user.ID, Role: user.Role, Email: user.Email}
}

// Session is the result of any flow that mints a new token pair.
type Session struct {
	User   *User
	Tokens *sec.TokenPair
}
