// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package revocation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryRegistry is a process-local [Registry] backed by a mutex-guarded map.
//
// # Concurrency
//
// Safe for concurrent use. Revoke holds the write lock for the check-and-insert,
// so two concurrent revocations of the same id can never both report inserted.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRegistry creates an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock overrides the time source (used by tests).
func (registry *MemoryRegistry) WithClock(now func() time.Time) *MemoryRegistry {
	registry.now = now
	return registry
}

// Revoke implements [Registry].
func (registry *MemoryRegistry) Revoke(_ context.Context, id string, until time.Time) (bool, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if existing, found := registry.entries[id]; found {
		// Never shorten a horizon.
		if until.After(existing) {
			registry.entries[id] = until
		}
		return false, nil
	}

	registry.entries[id] = until
	return true, nil
}

// IsRevoked implements [Registry].
//
// Entries past their horizon still answer true until swept; their tokens are
// expired anyway, so the answer is the same either way.
func (registry *MemoryRegistry) IsRevoked(_ context.Context, id string) (bool, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	_, found := registry.entries[id]
	return found, nil
}

// Len returns the number of tracked ids.
func (registry *MemoryRegistry) Len() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.entries)
}

// Sweep drops entries whose horizon has passed and returns how many were removed.
func (registry *MemoryRegistry) Sweep() int {
	current := registry.now()

	registry.mu.Lock()
	defer registry.mu.Unlock()

	removed := 0
	for id, until := range registry.entries {
		if !current.Before(until) {
			delete(registry.entries, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps the registry every interval until ctx is cancelled.
func (registry *MemoryRegistry) StartJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := registry.Sweep(); removed > 0 {
					logger.Debug("revocation_registry_swept",
						slog.Int("removed", removed),
						slog.Int("remaining", registry.Len()),
					)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
