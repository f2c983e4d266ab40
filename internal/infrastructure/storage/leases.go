package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AcquireLease takes the named lease for owner with the given TTL.
// It succeeds when the lease is free, expired, or already held by the
// same owner (renewal). Returns false when a live lease belongs to
// someone else.
func (s *Store) AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var currentOwner string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT owner, expires_at FROM leases WHERE name = ?`, name,
	).Scan(&currentOwner, &expiresAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err == nil && currentOwner != owner && expiresAt.After(now) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leases (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at`,
		name, owner, now.Add(ttl))
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseLease frees the named lease if owner still holds it.
func (s *Store) ReleaseLease(ctx context.Context, name, owner string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM leases WHERE name = ? AND owner = ?`, name, owner)
	return err
}
