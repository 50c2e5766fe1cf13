package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/santoshho/laundry/internal/models"
)

const serviceColumns = `id, name, description, price, unit, available, created_at`

func scanService(row interface{ Scan(...any) error }) (*models.Service, error) {
	var svc models.Service
	var createdAt string
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Price, &svc.Unit, &svc.Available, &createdAt); err != nil {
		return nil, err
	}
	svc.CreatedAt = parseTime(createdAt)
	return &svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	return insertService(ctx, s.DB, svc)
}

func insertService(ctx context.Context, q querier, svc *models.Service) error {
	createdAt := now()
	res, err := q.ExecContext(ctx,
		`INSERT INTO services (name, description, price, unit, available, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		svc.Name, svc.Description, svc.Price, svc.Unit, svc.Available, createdAt)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	svc.ID = int(id)
	svc.CreatedAt = parseTime(createdAt)
	return nil
}

func (s *Store) GetService(ctx context.Context, id int) (*models.Service, error) {
	return getService(ctx, s.DB, id)
}

func getService(ctx context.Context, q querier, id int) (*models.Service, error) {
	svc, err := scanService(q.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return svc, nil
}

// ListServices returns the catalog in insertion order. Customers only see
// available entries; the admin pricing page passes onlyAvailable=false.
func (s *Store) ListServices(ctx context.Context, onlyAvailable bool) ([]models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if onlyAvailable {
		query += ` WHERE available = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

func (s *Store) UpdateService(ctx context.Context, svc *models.Service) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE services SET name = ?, description = ?, price = ?, unit = ?, available = ? WHERE id = ?`,
		svc.Name, svc.Description, svc.Price, svc.Unit, svc.Available, svc.ID)
	if err != nil {
		return fmt.Errorf("update service %d: %w", svc.ID, err)
	}
	return expectRow(res)
}

// DeleteService removes exactly one catalog entry. Orders keep their own
// copy of the name and price.
func (s *Store) DeleteService(ctx context.Context, id int) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	return expectRow(res)
}
