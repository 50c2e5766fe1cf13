package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/santoshho/laundry/internal/models"
)

// Recipient identifies who a notification is addressed to. Admin
// notifications are shared by every admin and use ID 0.
type Recipient struct {
	Type string
	ID   int
}

func UserRecipient(id int) Recipient { return Recipient{Type: models.RecipientUser, ID: id} }

func AdminRecipient() Recipient { return Recipient{Type: models.RecipientAdmin} }

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return insertNotification(ctx, s.DB, n)
}

func insertNotification(ctx context.Context, q querier, n *models.Notification) error {
	ts := now()
	res, err := q.ExecContext(ctx,
		`INSERT INTO notifications (recipient_type, recipient_id, order_id, message, is_read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		n.RecipientType, n.RecipientID, nullableInt(n.OrderID), n.Message, ts)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = int(id)
	n.CreatedAt = parseTime(ts)
	return nil
}

// ListNotifications returns the newest notifications for r. A limit of zero
// means no limit.
func (s *Store) ListNotifications(ctx context.Context, r Recipient, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT id, recipient_type, recipient_id, COALESCE(order_id, 0), message, is_read, created_at, COALESCE(read_at, '')
		FROM notifications WHERE recipient_type = ? AND recipient_id = ?`
	args := []any{r.Type, r.ID}
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var createdAt, readAt string
		if err := rows.Scan(&n.ID, &n.RecipientType, &n.RecipientID, &n.OrderID, &n.Message, &n.Read, &createdAt, &readAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(createdAt)
		if readAt != "" {
			t := parseTime(readAt)
			n.ReadAt = &t
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context, r Recipient) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_type = ? AND recipient_id = ? AND is_read = 0`, r.Type, r.ID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// MarkNotificationRead only touches a notification owned by r; anything else
// reports ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, r Recipient, id int) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ? AND recipient_type = ? AND recipient_id = ?`,
		now(), id, r.Type, r.ID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return expectRow(res)
}

func (s *Store) MarkAllRead(ctx context.Context, r Recipient) (int, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = ? WHERE recipient_type = ? AND recipient_id = ? AND is_read = 0`,
		now(), r.Type, r.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeReadNotifications deletes read notifications created before cutoff.
func (s *Store) PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int, error) {
	var purged int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`, formatTime(cutoff))
		if err != nil {
			return fmt.Errorf("purge notifications: %w", err)
		}
		purged, err = res.RowsAffected()
		return err
	})
	return int(purged), err
}
