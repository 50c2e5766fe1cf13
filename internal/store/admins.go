package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/santoshho/laundry/internal/models"
)

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	var createdAt string
	err := s.DB.QueryRowContext(ctx, `SELECT id, username, password, created_at FROM admins WHERE username = ?`, username).
		Scan(&a.ID, &a.Username, &a.Password, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin %q: %w", username, err)
	}
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

// CreateAdmin is used for seeding; hashedPassword must already be a bcrypt hash.
func (s *Store) CreateAdmin(ctx context.Context, username, hashedPassword string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO admins (username, password, created_at) VALUES (?, ?, ?)`,
		username, hashedPassword, now())
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create admin %q: %w", username, err)
	}
	return nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
