// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/quire/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Classification
//
//   - pgx.ErrNoRows: 404 for the named resource.
//   - Unique violation (23505): 409.
//   - Connection, timeout and admin-shutdown failures: 503 so clients back off and retry.
//   - Anything else: 500.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Constraint violations and server-side availability SQLSTATEs
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists").WithCause(err)
		case pgerrcode.AdminShutdown, pgerrcode.CrashShutdown, pgerrcode.CannotConnectNow,
			pgerrcode.TooManyConnections, pgerrcode.QueryCanceled:
			return apperr.ServiceUnavailable("Storage is temporarily unavailable").WithCause(err)
		}
		return apperr.Internal(err)
	}

	// 3. The store could not be reached at all
	if IsUnavailable(err) {
		return apperr.ServiceUnavailable("Storage is temporarily unavailable").WithCause(err)
	}

	return apperr.Internal(err)
}

// IsUnavailable reports whether err indicates the database could not be reached
// (as opposed to a query that reached it and failed).
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}
