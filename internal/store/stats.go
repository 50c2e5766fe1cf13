package store

import (
	"context"
	"fmt"

	"github.com/santoshho/laundry/internal/models"
)

type DashboardStats struct {
	TotalOrders        int
	PendingOrders      int
	OrdersByStatus     map[string]int
	Revenue            float64 // sum of totals of done orders
	TotalCustomers     int
	TotalServices      int
	ServiceOrderCounts []ServiceOrderCount
	RecentOrders       []models.Order
}

type ServiceOrderCount struct {
	ServiceID  int
	Name       string
	OrderCount int
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int),
	}

	counts := []struct {
		query string
		dest  any
	}{
		{`SELECT COUNT(*) FROM orders`, &stats.TotalOrders},
		{`SELECT COUNT(*) FROM users`, &stats.TotalCustomers},
		{`SELECT COUNT(*) FROM services`, &stats.TotalServices},
		{`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = 'done'`, &stats.Revenue},
	}
	for _, c := range counts {
		if err := s.DB.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("dashboard stats: %w", err)
		}
	}

	// Each result set is drained before the next query: the pool has a
	// single connection.
	if err := s.ordersByStatus(ctx, stats); err != nil {
		return nil, err
	}
	stats.PendingOrders = stats.OrdersByStatus[models.StatusPending]

	if err := s.serviceOrderCounts(ctx, stats); err != nil {
		return nil, err
	}

	recent, err := s.ListOrders(ctx, OrderFilter{Limit: 5})
	if err != nil {
		return nil, err
	}
	stats.RecentOrders = recent
	return stats, nil
}

func (s *Store) ordersByStatus(ctx context.Context, stats *DashboardStats) error {
	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return fmt.Errorf("orders by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		stats.OrdersByStatus[status] = count
	}
	return rows.Err()
}

func (s *Store) serviceOrderCounts(ctx context.Context, stats *DashboardStats) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT sv.id, sv.name, COUNT(o.id) AS order_count
		FROM services sv
		LEFT JOIN orders o ON sv.id = o.service_id
		GROUP BY sv.id
		ORDER BY order_count DESC, sv.id
	`)
	if err != nil {
		return fmt.Errorf("service order counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c ServiceOrderCount
		if err := rows.Scan(&c.ServiceID, &c.Name, &c.OrderCount); err != nil {
			return err
		}
		stats.ServiceOrderCounts = append(stats.ServiceOrderCounts, c)
	}
	return rows.Err()
}
