package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/santoshho/laundry/internal/models"
)

const userColumns = `id, name, email, phone, address, password, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.Password, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// CreateUser inserts a user whose Password is already hashed. A second
// registration with the same email, in any letter case, returns ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.TrimSpace(user.Email)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertUser(ctx, tx, user)
	})
}

func insertUser(ctx context.Context, q querier, user *models.User) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ? COLLATE NOCASE`, user.Email).Scan(&n); err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return ErrEmailTaken
	}

	createdAt := now()
	res, err := q.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, address, password, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.Phone, user.Address, user.Password, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = int(id)
	user.CreatedAt = parseTime(createdAt)
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserProfile changes name, phone and address. Email and password are
// left alone.
func (s *Store) UpdateUserProfile(ctx context.Context, user *models.User) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET name = ?, phone = ?, address = ? WHERE id = ?`,
		user.Name, user.Phone, user.Address, user.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return expectRow(res)
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int, hashedPassword string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashedPassword, id)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
