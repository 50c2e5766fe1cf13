package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santoshho/laundry/internal/models"
)

func (s *Store) SaveFormSubmission(ctx context.Context, f *models.FormSubmission) error {
	return insertFormSubmission(ctx, s.DB, f)
}

func insertFormSubmission(ctx context.Context, q querier, f *models.FormSubmission) error {
	ts := now()
	if !f.CreatedAt.IsZero() {
		ts = formatTime(f.CreatedAt)
	}
	res, err := q.ExecContext(ctx, `INSERT INTO form_submissions (kind, payload, created_at) VALUES (?, ?, ?)`,
		f.Kind, f.PayloadJSON(), ts)
	if err != nil {
		return fmt.Errorf("save form %q: %w", f.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = int(id)
	f.CreatedAt = parseTime(ts)
	return nil
}

// ListFormSubmissions returns the newest submissions first, optionally
// restricted to one kind.
func (s *Store) ListFormSubmissions(ctx context.Context, kind string) ([]models.FormSubmission, error) {
	query := `SELECT id, kind, payload, created_at FROM form_submissions`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []models.FormSubmission
	for rows.Next() {
		var f models.FormSubmission
		var payload, createdAt string
		if err := rows.Scan(&f.ID, &f.Kind, &payload, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &f.Payload); err != nil {
			f.Payload = map[string]string{"raw": payload}
		}
		f.CreatedAt = parseTime(createdAt)
		forms = append(forms, f)
	}
	return forms, rows.Err()
}
