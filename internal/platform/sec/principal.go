// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Principal is the identity the Guard attaches to an authenticated request.
//
// It is loaded from the credential store, not copied from the token, so a
// role change or a missing account is observed on the next request.
type Principal struct {
	ID    string
	Role  UserRole
	Email string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
