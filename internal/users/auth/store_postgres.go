// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/quire/internal/platform/database/schema"
	"github.com/taibuivan/quire/internal/platform/dberr"
	"github.com/taibuivan/quire/internal/platform/sec"
)

// resourceUser names the entity in storage errors ("User not found").
const resourceUser = "User"

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
//
// Storage errors are classified through [dberr.Wrap], so an unreachable
// database surfaces as 503 rather than 500.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var selectAccount = fmt.Sprintf(`SELECT %s FROM %s`,
	strings.Join(schema.UserAccount.Columns(), ", "), schema.UserAccount.Table)

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Affiliation,
		&user.Role,
		&user.ProfileStatus,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsValid() {
		return nil, fmt.Errorf("postgres_unknown_role: %q", user.Role)
	}
	return user, nil
}

/*
Create persists a new account into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict on duplicate email, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.UserAccount.Table, strings.Join(schema.UserAccount.Columns(), ", "),
	)

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Affiliation,
		user.Role,
		user.ProfileStatus,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, resourceUser)
}

// FindByEmail retrieves an account by its email, ignoring case.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := selectAccount + fmt.Sprintf(` WHERE LOWER(%s) = LOWER($1)`, schema.UserAccount.Email)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser)
	}
	return user, nil
}

// FindByID retrieves an account by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := selectAccount + fmt.Sprintf(` WHERE %s = $1`, schema.UserAccount.ID)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceUser)
	}
	return user, nil
}

// UpdateProfile persists name, affiliation and profile status.
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = NOW()
		WHERE %s = $1
		RETURNING %s`,
		schema.UserAccount.Table,
		schema.UserAccount.Name, schema.UserAccount.Affiliation, schema.UserAccount.ProfileStatus,
		schema.UserAccount.UpdatedAt, schema.UserAccount.ID, schema.UserAccount.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query, user.ID, user.Name, user.Affiliation, user.ProfileStatus).Scan(&user.UpdatedAt)
	return dberr.Wrap(err, resourceUser)
}

// UpdateRole persists a role change.
func (repository *PostgresUserRepository) UpdateRole(context context.Context, userID string, role sec.UserRole) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Role, schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)
	return repository.execOne(context, query, userID, role)
}

// UpdatePassword persists a new password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Password, schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)
	return repository.execOne(context, query, userID, newHash)
}

// execOne runs an UPDATE that must touch exactly one row.
func (repository *PostgresUserRepository) execOne(context context.Context, query string, args ...any) error {
	tag, err := repository.pool.Exec(context, query, args...)
	if err != nil {
		return dberr.Wrap(err, resourceUser)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, resourceUser)
	}
	return nil
}
