// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/quire/internal/platform/constants"
)

// minimumEntryTTL keeps an entry alive briefly even when its horizon has already passed.
const minimumEntryTTL = time.Second

// RedisRegistry is a shared [Registry] for multi-instance deployments.
//
// Each revoked id is a key with a TTL equal to the remaining lifetime of its
// token, so Redis expires entries exactly at the horizon.
type RedisRegistry struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRegistry creates a Redis-backed registry.
func NewRedisRegistry(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

/*
Revoke stores the id with SET NX so the insert is atomic across instances.

Parameters:
  - context: context.Context
  - id: string
  - until: time.Time (Refresh token expiry)

Returns:
  - bool: True when this call inserted the id
  - error: Connectivity errors
*/
func (registry *RedisRegistry) Revoke(context context.Context, id string, until time.Time) (bool, error) {
	timeToLive := until.Sub(registry.now())
	if timeToLive < minimumEntryTTL {
		timeToLive = minimumEntryTTL
	}

	inserted, err := registry.client.SetNX(context, key(id), "1", timeToLive).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_set_failed: %w", err)
	}

	return inserted, nil
}

/*
IsRevoked checks key existence.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - bool: Membership
  - error: Connectivity errors
*/
func (registry *RedisRegistry) IsRevoked(context context.Context, id string) (bool, error) {
	count, err := registry.client.Exists(context, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_exists_failed: %w", err)
	}
	return count > 0, nil
}

// key builds the namespaced Redis key for a revocation id.
func key(id string) string {
	return constants.RedisPrefixRevoked + id
}
