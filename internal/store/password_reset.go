package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreatePasswordReset stores a single-use token for userID that expires after ttl.
func (s *Store) CreatePasswordReset(ctx context.Context, userID int, token string, ttl time.Duration) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(time.Now().Add(ttl)))
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// PasswordResetUser returns the user a still-valid token belongs to without
// consuming it.
func (s *Store) PasswordResetUser(ctx context.Context, token string) (int, error) {
	return resetUser(ctx, s.DB, token)
}

func resetUser(ctx context.Context, q querier, token string) (int, error) {
	var userID int
	err := q.QueryRowContext(ctx,
		`SELECT user_id FROM password_resets WHERE token = ? AND used_at IS NULL AND expires_at > ?`, token, now()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("lookup password reset: %w", err)
	}
	return userID, nil
}

// ConsumePasswordReset marks the token used and stores the new password hash
// in one transaction.
func (s *Store) ConsumePasswordReset(ctx context.Context, token, hashedPassword string) (int, error) {
	var userID int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if userID, err = resetUser(ctx, tx, token); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE password_resets SET used_at = ? WHERE token = ?`, now(), token); err != nil {
			return fmt.Errorf("consume password reset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashedPassword, userID); err != nil {
			return fmt.Errorf("reset password for user %d: %w", userID, err)
		}
		return nil
	})
	return userID, err
}

// PurgeExpiredResets removes tokens that are used or past their expiry.
func (s *Store) PurgeExpiredResets(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE used_at IS NOT NULL OR expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("purge password resets: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
