// Package postgres provides a lease-table locker for running the
// pipeline on more than one node against a shared database.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leadtrail/leadtrail/internal/lead"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Locker stores leases in the task_leases table. The insert-or-steal
// upsert only wins when the existing lease has expired, so exactly one
// node runs each task at a time.
type Locker struct {
	pool   execer
	holder string
	clock  lead.Clock
}

// New creates a Locker. The holder tag identifies this node in the
// lease table for operators.
func New(pool execer, holder string, clock lead.Clock) *Locker {
	return &Locker{pool: pool, holder: holder, clock: clock}
}

// TryAcquire takes the lease if it is free or expired.
func (l *Locker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := l.clock.Now()
	tag, err := l.pool.Exec(ctx, `
INSERT INTO task_leases (name, holder, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
WHERE task_leases.expires_at <= $4`,
		name, l.holder, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Release drops this holder's lease. A lease stolen after expiry
// belongs to the new holder and is left alone.
func (l *Locker) Release(ctx context.Context, name string) error {
	_, err := l.pool.Exec(ctx, `
DELETE FROM task_leases
WHERE name = $1 AND holder = $2`, name, l.holder)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
