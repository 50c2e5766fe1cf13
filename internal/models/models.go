package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Service is a catalog entry customers can order.
type Service struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit"` // "kg", "item", "load"
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

var ServiceUnits = []string{"kg", "item", "load"}

// UnspecifiedService names orders placed without choosing a catalog service.
const UnspecifiedService = "Unspecified"

type Order struct {
	ID             int       `json:"id"`
	Ref            string    `json:"ref"` // Public "A7X9..." reference
	UserID         int       `json:"user_id,omitempty"`
	ServiceID      int       `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	Unit           string    `json:"unit"`
	CustomerName   string    `json:"customer_name"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Quantity       float64   `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	Total          float64   `json:"total"`
	Items          string    `json:"items"`
	Notes          string    `json:"notes"`
	PickupDate     string    `json:"pickup_date"`
	DeliveryMethod string    `json:"delivery_method"` // "pickup" or "delivery"
	Attachment     string    `json:"attachment,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Order lifecycle states.
const (
	StatusPending    = "pending"
	StatusPickedUp   = "picked_up"
	StatusInProgress = "in_progress"
	StatusReady      = "ready"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

var OrderStatuses = []string{StatusPending, StatusPickedUp, StatusInProgress, StatusReady, StatusDone, StatusCancelled}

// NormalizeStatus maps free-form status text ("Pending", "In Progress") onto a
// known status. ok is false when nothing matches.
func NormalizeStatus(s string) (status string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "completed", "complete", "delivered":
		s = StatusDone
	case "canceled":
		s = StatusCancelled
	case "processing":
		s = StatusInProgress
	}
	for _, known := range OrderStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// StatusLabel is the human form of a status, used by templates.
func StatusLabel(status string) string {
	switch status {
	case StatusPickedUp:
		return "Picked up"
	case StatusInProgress:
		return "In progress"
	case "":
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

type StatusChange struct {
	ID        int       `json:"id"`
	OrderID   int       `json:"order_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Password  string    `json:"-"` // Store hashed password
	CreatedAt time.Time `json:"created_at"`
}

type Admin struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification recipients.
const (
	RecipientUser  = "user"
	RecipientAdmin = "admin"
)

type Notification struct {
	ID            int        `json:"id"`
	RecipientType string     `json:"recipient_type"`
	RecipientID   int        `json:"recipient_id"` // 0 addresses every admin
	OrderID       int        `json:"order_id,omitempty"`
	Message       string     `json:"message"`
	Read          bool       `json:"read"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}

type FormSubmission struct {
	ID        int               `json:"id"`
	Kind      string            `json:"kind"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// PayloadJSON is the stored form of the payload.
func (f FormSubmission) PayloadJSON() string {
	b, err := json.Marshal(f.Payload)
	if err != nil {
		return "{}"
	}
	return string(b)
}
