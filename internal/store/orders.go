package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/santoshho/laundry/internal/models"
)

const orderColumns = `id, ref, COALESCE(user_id, 0), service_id, service_name, unit, customer_name, phone, address,
	quantity, unit_price, total, items, notes, pickup_date, delivery_method, attachment, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	var createdAt, updatedAt string
	err := row.Scan(&o.ID, &o.Ref, &o.UserID, &o.ServiceID, &o.ServiceName, &o.Unit, &o.CustomerName, &o.Phone, &o.Address,
		&o.Quantity, &o.UnitPrice, &o.Total, &o.Items, &o.Notes, &o.PickupDate, &o.DeliveryMethod, &o.Attachment, &o.Status,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

func generateOrderRef() string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no I, O, 1, 0
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "ORD" + strconv.FormatInt(time.Now().UnixNano()%100000, 10)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder prices the order from the current catalog entry and stores it
// together with its first history entry and an admin notification. An order
// with ServiceID 0 is stored unpriced for an admin to quote.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if order.ServiceID == 0 {
			order.ServiceName = models.UnspecifiedService
			order.Unit = ""
			order.UnitPrice = 0
			order.Total = 0
		} else {
			svc, err := getService(ctx, tx, order.ServiceID)
			if err != nil {
				return err
			}
			if !svc.Available {
				return ErrServiceUnavailable
			}
			order.ServiceName = svc.Name
			order.Unit = svc.Unit
			order.UnitPrice = svc.Price
			order.Total = roundMoney(svc.Price * order.Quantity)
		}
		order.Status = models.StatusPending
		if order.DeliveryMethod == "" {
			order.DeliveryMethod = "pickup"
		}
		ts := now()

		for attempt := 0; ; attempt++ {
			order.Ref = generateOrderRef()
			res, err := tx.ExecContext(ctx, `
				INSERT INTO orders (ref, user_id, service_id, service_name, unit, customer_name, phone, address, quantity,
					unit_price, total, items, notes, pickup_date, delivery_method, attachment, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				order.Ref, nullableInt(order.UserID), order.ServiceID, order.ServiceName, order.Unit, order.CustomerName,
				order.Phone, order.Address, order.Quantity, order.UnitPrice, order.Total, order.Items, order.Notes,
				order.PickupDate, order.DeliveryMethod, order.Attachment, order.Status, ts, ts)
			if isUniqueViolation(err) && attempt < 5 {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			order.ID = int(id)
			break
		}
		order.CreatedAt = parseTime(ts)
		order.UpdatedAt = order.CreatedAt

		changedBy := "guest"
		if order.UserID != 0 {
			changedBy = "user:" + strconv.Itoa(order.UserID)
		}
		if err := insertHistory(ctx, tx, order.ID, order.Status, "Order placed", changedBy); err != nil {
			return err
		}

		msg := fmt.Sprintf("New order %s from %s: %s, %s %s.", order.Ref, order.CustomerName, order.ServiceName,
			strconv.FormatFloat(order.Quantity, 'f', -1, 64), order.Unit)
		if order.ServiceID == 0 {
			msg = fmt.Sprintf("New order %s from %s needs a quote.", order.Ref, order.CustomerName)
		}
		return insertNotification(ctx, tx, &models.Notification{
			RecipientType: models.RecipientAdmin,
			OrderID:       order.ID,
			Message:       msg,
		})
	})
}

func (s *Store) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	return getOrder(ctx, s.DB, id)
}

func getOrder(ctx context.Context, q querier, id int) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

func (s *Store) GetOrderByRef(ctx context.Context, ref string) (*models.Order, error) {
	o, err := scanOrder(s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE ref = ?`, strings.ToUpper(ref)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %q: %w", ref, err)
	}
	return o, nil
}

type OrderFilter struct {
	Status string
	UserID int
	Limit  int
	Offset int
}

func (f OrderFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.UserID != 0 {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListOrders returns the newest orders first.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	where, args := f.where()
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Store) CountOrders(ctx context.Context, f OrderFilter) (int, error) {
	where, args := f.where()
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// UpdateOrderStatus sets the status of one order, appends it to the history
// and notifies the customer who placed it. Nothing but status and updated_at
// changes on the order row.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int, status, note, changedBy string) (*models.Order, error) {
	status, ok := models.NormalizeStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}

	var order *models.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = getOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		ts := now()
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, status, ts, id); err != nil {
			return fmt.Errorf("update order %d status: %w", id, err)
		}
		order.Status = status
		order.UpdatedAt = parseTime(ts)

		if err := insertHistory(ctx, tx, id, status, note, changedBy); err != nil {
			return err
		}
		if order.UserID == 0 {
			return nil
		}
		msg := fmt.Sprintf("Your order %s is now %s.", order.Ref, models.StatusLabel(status))
		if note != "" {
			msg += " " + note
		}
		return insertNotification(ctx, tx, &models.Notification{
			RecipientType: models.RecipientUser,
			RecipientID:   order.UserID,
			OrderID:       id,
			Message:       msg,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder lets a customer withdraw their own order while it is still pending.
func (s *Store) CancelOrder(ctx context.Context, id, userID int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		order, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return ErrNotFound
		}
		if order.Status != models.StatusPending {
			return ErrNotCancellable
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
			models.StatusCancelled, now(), id); err != nil {
			return fmt.Errorf("cancel order %d: %w", id, err)
		}
		if err := insertHistory(ctx, tx, id, models.StatusCancelled, "Cancelled by customer", "user:"+strconv.Itoa(userID)); err != nil {
			return err
		}
		return insertNotification(ctx, tx, &models.Notification{
			RecipientType: models.RecipientAdmin,
			OrderID:       id,
			Message:       fmt.Sprintf("Order %s was cancelled by %s.", order.Ref, order.CustomerName),
		})
	})
}

// DeleteOrder removes the order and its history and returns the deleted row
// so the caller can clean up the attachment.
func (s *Store) DeleteOrder(ctx context.Context, id int) (*models.Order, error) {
	var order *models.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if order, err = getOrder(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete order %d: %w", id, err)
		}
		return nil
	})
	return order, err
}

func (s *Store) OrderHistory(ctx context.Context, orderID int) ([]models.StatusChange, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, order_id, status, note, changed_by, created_at FROM order_status_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order history %d: %w", orderID, err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		var createdAt string
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Status, &c.Note, &c.ChangedBy, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		history = append(history, c)
	}
	return history, rows.Err()
}

func insertHistory(ctx context.Context, q querier, orderID int, status, note, changedBy string) error {
	if changedBy == "" {
		changedBy = "system"
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		orderID, status, note, changedBy, now())
	if err != nil {
		return fmt.Errorf("insert history for order %d: %w", orderID, err)
	}
	return nil
}
