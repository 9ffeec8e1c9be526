// Package memory provides an in-process singleton-task locker.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// Locker grants named leases with an expiry. Acquiring an expired
// lease succeeds, so a crashed task run frees its lock after the TTL.
type Locker struct {
	clock lead.Clock

	mu     sync.Mutex
	leases map[string]time.Time
}

// New creates a Locker.
func New(clock lead.Clock) *Locker {
	return &Locker{clock: clock, leases: map[string]time.Time{}}
}

// TryAcquire takes the lease if it is free or expired.
func (l *Locker) TryAcquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if expiry, held := l.leases[name]; held && now.Before(expiry) {
		return false, nil
	}
	l.leases[name] = now.Add(ttl)
	return true, nil
}

// Release frees the lease.
func (l *Locker) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, name)
	return nil
}
