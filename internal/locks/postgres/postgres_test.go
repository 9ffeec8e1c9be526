package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

func TestTryAcquireWinsWhenLeaseFree(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	l := New(mock, "node-a", fakeClock{now: now})

	mock.ExpectExec("INSERT INTO task_leases").
		WithArgs("vat_lookup", "node-a", now.Add(120*time.Second), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ok, err := l.TryAcquire(context.Background(), "vat_lookup", 120*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquireSkipsWhenLeaseHeld(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	l := New(mock, "node-a", fakeClock{now: now})

	mock.ExpectExec("INSERT INTO task_leases").
		WithArgs("vat_lookup", "node-a", now.Add(120*time.Second), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := l.TryAcquire(context.Background(), "vat_lookup", 120*time.Second)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseDeletesOwnLease(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	l := New(mock, "node-a", fakeClock{})
	mock.ExpectExec("DELETE FROM task_leases").
		WithArgs("vat_lookup", "node-a").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, l.Release(context.Background(), "vat_lookup"))
	require.NoError(t, mock.ExpectationsWereMet())
}
