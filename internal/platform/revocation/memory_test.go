// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package revocation_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quire/internal/platform/revocation"
)

/*
TestMemoryRegistry_RevokeAndCheck covers the basic membership contract.
*/
func TestMemoryRegistry_RevokeAndCheck(t *testing.T) {
	ctx := context.Background()
	registry := revocation.NewMemoryRegistry()

	revoked, err := registry.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	inserted, err := registry.Revoke(ctx, "abc", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = registry.Revoke(ctx, "abc", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, inserted, "second revoke of the same id must not report an insert")

	revoked, err = registry.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
}

/*
TestMemoryRegistry_ConcurrentRevoke ensures exactly one concurrent writer wins per id
and no update is lost.
*/
func TestMemoryRegistry_ConcurrentRevoke(t *testing.T) {
	ctx := context.Background()
	registry := revocation.NewMemoryRegistry()
	until := time.Now().Add(time.Hour)

	var winners atomic.Int64
	var wg sync.WaitGroup

	for worker := 0; worker < 32; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if inserted, _ := registry.Revoke(ctx, "shared", until); inserted {
				winners.Add(1)
			}
			_, _ = registry.Revoke(ctx, fmt.Sprintf("own-%d", worker), until)
			_, _ = registry.IsRevoked(ctx, "shared")
		}(worker)
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load())
	assert.Equal(t, 33, registry.Len())
}

/*
TestMemoryRegistry_Sweep verifies that entries survive until their horizon and no longer.
*/
func TestMemoryRegistry_Sweep(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	registry := revocation.NewMemoryRegistry().WithClock(func() time.Time { return current })

	_, _ = registry.Revoke(ctx, "short", current.Add(time.Minute))
	_, _ = registry.Revoke(ctx, "long", current.Add(time.Hour))

	assert.Equal(t, 0, registry.Sweep())

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 1, registry.Sweep())

	revoked, _ := registry.IsRevoked(ctx, "short")
	assert.False(t, revoked)
	revoked, _ = registry.IsRevoked(ctx, "long")
	assert.True(t, revoked)
}

/*
TestMemoryRegistry_HorizonNeverShrinks ensures a later, shorter revoke cannot make an
entry be forgotten early.
*/
func TestMemoryRegistry_HorizonNeverShrinks(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	registry := revocation.NewMemoryRegistry().WithClock(func() time.Time { return current })

	_, _ = registry.Revoke(ctx, "id", current.Add(time.Hour))
	_, _ = registry.Revoke(ctx, "id", current.Add(time.Minute))

	current = current.Add(30 * time.Minute)
	registry.Sweep()

	revoked, _ := registry.IsRevoked(ctx, "id")
	assert.True(t, revoked)
}
