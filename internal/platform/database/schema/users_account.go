// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns used by the Postgres stores,
// so SQL strings are assembled from one source of truth.
package schema

import "github.com/taibuivan/quire/internal/platform/constants"

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table         string
	ID            string
	Email         string
	Password      string
	Name          string
	Affiliation   string
	Role          string
	ProfileStatus string
	CreatedAt     string
	UpdatedAt     string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:         constants.SchemaUsers + ".account",
	ID:            "id",
	Email:         "email",
	Password:      "passwordhash",
	Name:          "name",
	Affiliation:   "affiliation",
	Role:          "role",
	ProfileStatus: "profilestatus",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

// Columns returns the columns selected when hydrating an account, in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.Name, t.Affiliation,
		t.Role, t.ProfileStatus, t.CreatedAt, t.UpdatedAt,
	}
}
