package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Lease is one row of the lock lease table.
type Lease struct {
	Key        string
	HolderID   string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// TryAcquireLease attempts to take the lease for key on behalf of holderID.
// The acquisition is a single conditional upsert: it succeeds when no lease
// exists or the existing lease has expired, so two processes racing on the
// same key cannot both win.
func (s *Store) TryAcquireLease(ctx context.Context, key, holderID string, now time.Time, ttl time.Duration) (bool, error) {
	nowStr := formatTime(now)
	expires := formatTime(now.Add(ttl))

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (key, holder_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			holder_id = excluded.holder_id,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		WHERE leases.expires_at <= ? OR leases.holder_id = excluded.holder_id`,
		key, holderID, nowStr, expires, nowStr)
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease rows affected: %w", err)
	}
	return n == 1, nil
}

// RenewLease extends the lease for key if holderID still owns it.
// Returns false when the lease was lost (expired and taken, or released).
func (s *Store) RenewLease(ctx context.Context, key, holderID string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leases SET expires_at = ? WHERE key = ? AND holder_id = ?`,
		formatTime(now.Add(ttl)), key, holderID)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseLease drops the lease for key if holderID owns it. Releasing a
// lease that was never held, already expired, or taken by someone else is a
// no-op, so callers can release unconditionally on every exit path.
func (s *Store) ReleaseLease(ctx context.Context, key, holderID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM leases WHERE key = ? AND holder_id = ?`, key, holderID)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// GetLease returns the current lease for key, or (nil, nil) when none exists.
// Expired leases are still returned; staleness policy belongs to the caller.
func (s *Store) GetLease(ctx context.Context, key string) (*Lease, error) {
	var l Lease
	var acquiredAt, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT key, holder_id, acquired_at, expires_at FROM leases WHERE key = ?`, key).Scan(
		&l.Key, &l.HolderID, &acquiredAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lease: %w", err)
	}
	l.AcquiredAt = parseTime(acquiredAt)
	l.ExpiresAt = parseTime(expiresAt)
	return &l, nil
}
