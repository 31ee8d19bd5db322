// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Reviews submissions and may read or mutate any journal
	RoleAdmin UserRole = "ADMIN"

	// Can submit and manage their own journals
	RoleAuthor UserRole = "AUTHOR"

	// Default role for standard registered readers
	RoleUser UserRole = "USER"
)

// IsValid reports whether r is a recognised [UserRole].
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleUser:
		return true
	}
	return false
}

// In reports whether r is a member of the allowed set.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

// Toggled returns the role an account moves to through the author toggle.
//
// USER and AUTHOR swap; ADMIN is never toggled and reports false.
func (r UserRole) Toggled() (UserRole, bool) {
	switch r {
	case RoleUser:
		return RoleAuthor, true
	case RoleAuthor:
		return RoleUser, true
	}
	return r, false
}
