// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Credential Constraints

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8

	// PasswordMaxBytes is bcrypt's input limit. It counts bytes, not characters.
	PasswordMaxBytes = 72

	// NameMaxLength bounds display names.
	NameMaxLength = 120

	// AffiliationMaxLength bounds institution names.
	AffiliationMaxLength = 200
)

// # Field Identifiers

const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldName            = "name"
	FieldAffiliation     = "affiliation"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
)

// # Revocation reasons (metric labels)

const (
	reasonRotation       = "rotation"
	reasonLogout         = "logout"
	reasonRoleChange     = "role_change"
	reasonPasswordChange = "password_change"
)
