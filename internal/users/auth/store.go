// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/quire/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for identities.
//
// Implementations return an [apperr.AppError]: 404 when the account does not
// exist, 409 on a duplicate email, 503 when the store is unreachable.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Not found or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email (case-insensitive).

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Not found or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Conflict on duplicate email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateProfile replaces the profile fields and status.

		Parameters:
		  - context: context.Context
		  - user: *User (ID, Name, Affiliation, ProfileStatus are read)

		Returns:
		  - error: Persistence failures
	*/
	UpdateProfile(context context.Context, user *User) error

	/*
		UpdateRole replaces only the account's role.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: sec.UserRole

		Returns:
		  - error: Persistence failures
	*/
	UpdateRole(context context.Context, userID string, role sec.UserRole) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error
}
