// Package lock provides MySQL advisory locking for Firmament runs.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the lock is held by another instance.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// acquireTimeoutSeconds is the GET_LOCK wait. Runs are scheduled, so a
// concurrent holder means a prior run is still going and we fail fast.
const acquireTimeoutSeconds = 1

// RunLock prevents overlapping reconciliation runs against the same store.
// GET_LOCK is scoped to a single MySQL session, so the lock reserves one
// connection from the pool and holds it until Release: routing the
// RELEASE_LOCK through the pool could land on a different session, and the
// pool recycling the holding connection would silently drop the lock.
type RunLock struct {
	db   *sql.DB
	conn *sql.Conn // non-nil while the lock is held
	name string
}

// NewRunLock creates an advisory lock named "firmament:run".
func NewRunLock(db *sql.DB) *RunLock {
	return &RunLock{db: db, name: "firmament:run"}
}

// Acquire attempts to take the lock, failing fast if another run holds it.
// Returns ErrLockTimeout (wrapped) when another instance is running.
//
// GET_LOCK returns 1 on success, 0 on timeout, and NULL on error.
func (l *RunLock) Acquire(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.name, acquireTimeoutSeconds).Scan(&result); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	if !result.Valid {
		_ = conn.Close()
		return fmt.Errorf("GET_LOCK returned NULL for lock %q", l.name)
	}

	switch result.Int64 {
	case 1:
		l.conn = conn
		return nil
	case 0:
		_ = conn.Close()
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, l.name)
	default:
		_ = conn.Close()
		return fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// Release releases the lock on the session that acquired it and returns the
// reserved connection to the pool. Safe to call when the lock is not held.
//
// RELEASE_LOCK returns 1 when released, 0 when held by another session,
// and NULL when the lock does not exist.
func (l *RunLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}

	conn := l.conn
	l.conn = nil
	defer func() {
		_ = conn.Close()
	}()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.name).Scan(&result); err != nil {
		return fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}

	if !result.Valid {
		return fmt.Errorf("RELEASE_LOCK returned NULL for lock %q", l.name)
	}
	return nil
}

// IsHeld reports whether this instance currently holds the lock.
func (l *RunLock) IsHeld() bool {
	return l.conn != nil
}
