// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package revocation tracks refresh-token ids that must no longer be honored.

It is the single source of truth for "has this refresh token been used or
invalidated". A structurally valid, unexpired refresh token is still rejected
when its id is present here.

Backends:

  - [MemoryRegistry]: process-local set. Correct only for single-instance deployments.
  - [RedisRegistry]: shared store for deployments running more than one instance.

An entry is kept at least until the expiry of the token it belongs to. After
that horizon the token would be rejected by its own expiry anyway, so the entry
may be dropped to bound memory.
*/
package revocation

import (
	"context"
	"time"
)

// Registry is the contract both backends implement.
type Registry interface {
	// Revoke records id as revoked until the given horizon.
	//
	// It is an atomic insert: inserted is true only for the call that added
	// the id. A second Revoke of the same id reports false, which is how
	// refresh-token rotation detects a token being presented twice.
	Revoke(ctx context.Context, id string, until time.Time) (inserted bool, err error)

	// IsRevoked reports whether id is currently revoked.
	IsRevoked(ctx context.Context, id string) (bool, error)
}
