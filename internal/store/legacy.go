package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/santoshho/laundry/internal/models"
)

// Legacy data directory layout: one JSON array per entity.
const (
	LegacyUsersFile         = "users.json"
	LegacyOrdersFile        = "orders.json"
	LegacyServicesFile      = "services.json"
	LegacyPricingFile       = "pricing.json"
	LegacyAdminFile         = "admin.json"
	LegacyNotificationsFile = "notifications.json"
	LegacyFormsFile         = "forms.json"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(b))
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexFloat(v)
	return nil
}

// flexBool accepts true/false, "true"/"false" and 0/1.
type flexBool struct {
	Set   bool
	Value bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(string(s)) {
	case "true", "1", "yes":
		*f = flexBool{Set: true, Value: true}
	case "false", "0", "no":
		*f = flexBool{Set: true, Value: false}
	}
	return nil
}

func (f flexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

type legacyUser struct {
	ID           flexString `json:"id"`
	Name         string     `json:"name"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        flexString `json:"phone"`
	Address      string     `json:"address"`
	Password     string     `json:"password,omitempty"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	CreatedAt    string     `json:"createdAt,omitempty"`
}

type legacyAdmin struct {
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

type legacyService struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description"`
	Price       flexFloat  `json:"price"`
	Unit        string     `json:"unit"`
	Available   flexBool   `json:"available"`
	CreatedAt   string     `json:"createdAt,omitempty"`
}

type legacyHistory struct {
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	ChangedBy string `json:"changedBy,omitempty"`
	Date      string `json:"date"`
}

type legacyOrder struct {
	ID             flexString      `json:"id"`
	Ref            string          `json:"ref,omitempty"`
	UserID         flexString      `json:"userId"`
	Name           string          `json:"name"`
	Phone          flexString      `json:"phone"`
	Address        string          `json:"address"`
	ServiceID      flexString      `json:"serviceId"`
	ServiceIDAlt   flexString      `json:"service_id,omitempty"`
	ServiceName    string          `json:"serviceName,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Kg             flexFloat       `json:"kg"`
	Quantity       flexFloat       `json:"quantity,omitempty"`
	UnitPrice      flexFloat       `json:"unitPrice,omitempty"`
	TotalPrice     flexFloat       `json:"totalPrice"`
	Items          flexString      `json:"items"`
	Notes          string          `json:"notes,omitempty"`
	PickupDate     string          `json:"pickupDate,omitempty"`
	DeliveryMethod string          `json:"deliveryMethod,omitempty"`
	Attachment     string          `json:"attachment"`
	Status         string          `json:"status"`
	Date           string          `json:"date"`
	StatusHistory  []legacyHistory `json:"statusHistory,omitempty"`
}

type legacyNotification struct {
	ID            flexString `json:"id"`
	RecipientType string     `json:"recipientType"`
	Type          string     `json:"type,omitempty"`
	UserID        flexString `json:"userId,omitempty"`
	OrderID       flexString `json:"orderId,omitempty"`
	Message       string     `json:"message"`
	Read          flexBool   `json:"read"`
	CreatedAt     string     `json:"createdAt"`
}

// ImportReport counts what ImportLegacy stored.
type ImportReport struct {
	Users         int
	Admins        int
	Services      int
	Orders        int
	Notifications int
	Forms         int
	Skipped       int
}

// readLegacyArray reads one legacy file. A missing or unparsable file is an
// empty collection, matching how the JSON-file app behaved.
func readLegacyArray(dir, name string) []json.RawMessage {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Cannot read legacy file, treating as empty", "file", name, "error", err)
		}
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		// admin.json is sometimes a single object
		return []json.RawMessage{data}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("Cannot parse legacy file, treating as empty", "file", name, "error", err)
		return nil
	}
	return items
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func hashLegacyPassword(hash, plain string) (string, error) {
	if isBcryptHash(hash) {
		return hash, nil
	}
	if isBcryptHash(plain) {
		return plain, nil
	}
	if plain == "" {
		plain = hash
	}
	if plain == "" {
		return "", errors.New("no password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseLegacyTime understands ISO strings and millisecond epochs.
func parseLegacyTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return now()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return formatTime(time.UnixMilli(ms))
	}
	for _, layout := range []string{time.RFC3339Nano, timeLayout, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return formatTime(t)
		}
	}
	return now()
}

// ImportLegacy loads a legacy data directory in a single transaction. IDs are
// reassigned; references between files are remapped.
func (s *Store) ImportLegacy(ctx context.Context, dir string) (*ImportReport, error) {
	report := &ImportReport{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userIDs, userPhones, err := importUsers(ctx, tx, dir, report)
		if err != nil {
			return err
		}
		if err := importAdmins(ctx, tx, dir, report); err != nil {
			return err
		}
		serviceIDs, err := importServices(ctx, tx, dir, report)
		if err != nil {
			return err
		}
		orderIDs, err := importOrders(ctx, tx, dir, report, userIDs, userPhones, serviceIDs)
		if err != nil {
			return err
		}
		if err := importNotifications(ctx, tx, dir, report, userIDs, orderIDs); err != nil {
			return err
		}
		return importForms(ctx, tx, dir, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func importUsers(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport) (map[string]int, map[string]int, error) {
	ids := make(map[string]int)
	phones := make(map[string]int)
	for _, raw := range readLegacyArray(dir, LegacyUsersFile) {
		var lu legacyUser
		if err := json.Unmarshal(raw, &lu); err != nil || strings.TrimSpace(lu.Email) == "" {
			report.Skipped++
			continue
		}
		hash, err := hashLegacyPassword(lu.PasswordHash, lu.Password)
		if err != nil {
			slog.Warn("Skipping legacy user without password", "email", lu.Email)
			report.Skipped++
			continue
		}
		name := strings.TrimSpace(lu.Name)
		if name == "" {
			name = strings.TrimSpace(lu.FirstName + " " + lu.LastName)
		}
		u := &models.User{Name: name, Email: strings.TrimSpace(lu.Email), Phone: string(lu.Phone), Address: lu.Address, Password: hash}
		if err := insertUser(ctx, tx, u); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				slog.Warn("Skipping duplicate legacy user", "email", lu.Email)
				report.Skipped++
				continue
			}
			return nil, nil, err
		}
		if lu.CreatedAt != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE users SET created_at = ? WHERE id = ?`, parseLegacyTime(lu.CreatedAt), u.ID); err != nil {
				return nil, nil, err
			}
		}
		ids[string(lu.ID)] = u.ID
		if u.Phone != "" {
			phones[u.Phone] = u.ID
		}
		report.Users++
	}
	return ids, phones, nil
}

func importAdmins(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport) error {
	for _, raw := range readLegacyArray(dir, LegacyAdminFile) {
		var la legacyAdmin
		if err := json.Unmarshal(raw, &la); err != nil {
			report.Skipped++
			continue
		}
		username := la.Username
		if username == "" {
			username = la.Email
		}
		hash, err := hashLegacyPassword(la.PasswordHash, la.Password)
		if username == "" || err != nil {
			report.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO admins (username, password, created_at) VALUES (?, ?, ?)`, username, hash, now()); err != nil {
			if isUniqueViolation(err) {
				report.Skipped++
				continue
			}
			return fmt.Errorf("import admin %q: %w", username, err)
		}
		report.Admins++
	}
	return nil
}

func importServices(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport) (map[string]int, error) {
	ids := make(map[string]int)
	raws := readLegacyArray(dir, LegacyServicesFile)
	if len(raws) == 0 {
		raws = readLegacyArray(dir, LegacyPricingFile)
	}
	for _, raw := range raws {
		var ls legacyService
		if err := json.Unmarshal(raw, &ls); err != nil {
			report.Skipped++
			continue
		}
		name := ls.Name
		if name == "" {
			name = ls.Title
		}
		if name == "" || ls.Price <= 0 {
			report.Skipped++
			continue
		}
		unit := strings.ToLower(ls.Unit)
		if unit == "" {
			unit = "kg"
		}
		svc := &models.Service{
			Name:        name,
			Description: ls.Description,
			Price:       float64(ls.Price),
			Unit:        unit,
			Available:   !ls.Available.Set || ls.Available.Value,
		}
		if err := insertService(ctx, tx, svc); err != nil {
			return nil, err
		}
		ids[string(ls.ID)] = svc.ID
		report.Services++
	}
	return ids, nil
}

func importOrders(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport,
	userIDs, userPhones, serviceIDs map[string]int) (map[string]int, error) {

	ids := make(map[string]int)
	for _, raw := range readLegacyArray(dir, LegacyOrdersFile) {
		var lo legacyOrder
		if err := json.Unmarshal(raw, &lo); err != nil {
			report.Skipped++
			continue
		}

		userID := userIDs[string(lo.UserID)]
		if userID == 0 && lo.Phone != "" {
			userID = userPhones[string(lo.Phone)]
		}
		legacyService := lo.ServiceID
		if legacyService == "" {
			legacyService = lo.ServiceIDAlt
		}
		serviceID := serviceIDs[string(legacyService)]

		qty := float64(lo.Quantity)
		if qty == 0 {
			qty = float64(lo.Kg)
		}
		if qty <= 0 {
			qty = 1
		}
		total := float64(lo.TotalPrice)
		unitPrice := float64(lo.UnitPrice)
		if unitPrice == 0 && total > 0 {
			unitPrice = roundMoney(total / qty)
		}
		serviceName, unit := lo.ServiceName, lo.Unit
		if serviceID != 0 {
			if svc, err := getService(ctx, tx, serviceID); err == nil {
				if serviceName == "" {
					serviceName = svc.Name
				}
				if unit == "" {
					unit = svc.Unit
				}
				if unitPrice == 0 {
					unitPrice = svc.Price
				}
			}
		}
		if serviceName == "" {
			serviceName = "Unknown service"
		}
		if unit == "" {
			unit = "kg"
		}
		if total == 0 {
			total = roundMoney(unitPrice * qty)
		}
		status, ok := models.NormalizeStatus(lo.Status)
		if !ok {
			status = models.StatusPending
		}
		method := lo.DeliveryMethod
		if method == "" {
			method = "pickup"
		}
		ref := strings.ToUpper(lo.Ref)
		if ref == "" {
			ref = generateOrderRef()
		}
		created := parseLegacyTime(lo.Date)
		if lo.Date == "" {
			// Legacy ids are creation timestamps in milliseconds.
			created = parseLegacyTime(string(lo.ID))
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (ref, user_id, service_id, service_name, unit, customer_name, phone, address, quantity,
				unit_price, total, items, notes, pickup_date, delivery_method, attachment, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref, nullableInt(userID), serviceID, serviceName, unit, lo.Name, string(lo.Phone), lo.Address, qty,
			unitPrice, total, string(lo.Items), lo.Notes, lo.PickupDate, method, lo.Attachment, status, created, created)
		if err != nil {
			if isUniqueViolation(err) {
				report.Skipped++
				continue
			}
			return nil, fmt.Errorf("import order %s: %w", lo.ID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		history := lo.StatusHistory
		if len(history) == 0 {
			history = []legacyHistory{{Status: status, Note: "Imported", Date: lo.Date}}
		}
		for _, h := range history {
			hs, ok := models.NormalizeStatus(h.Status)
			if !ok {
				continue
			}
			changedBy := h.ChangedBy
			if changedBy == "" {
				changedBy = "system"
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_status_history (order_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
				id, hs, h.Note, changedBy, parseLegacyTime(h.Date)); err != nil {
				return nil, fmt.Errorf("import history for order %s: %w", lo.ID, err)
			}
		}

		ids[string(lo.ID)] = int(id)
		report.Orders++
	}
	return ids, nil
}

func importNotifications(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport, userIDs, orderIDs map[string]int) error {
	for _, raw := range readLegacyArray(dir, LegacyNotificationsFile) {
		var ln legacyNotification
		if err := json.Unmarshal(raw, &ln); err != nil || ln.Message == "" {
			report.Skipped++
			continue
		}
		kind := ln.RecipientType
		if kind == "" {
			kind = ln.Type
		}
		n := models.Notification{Message: ln.Message, OrderID: orderIDs[string(ln.OrderID)]}
		if strings.EqualFold(kind, models.RecipientAdmin) {
			n.RecipientType = models.RecipientAdmin
		} else {
			n.RecipientType = models.RecipientUser
			n.RecipientID = userIDs[string(ln.UserID)]
			if n.RecipientID == 0 {
				report.Skipped++
				continue
			}
		}
		created := parseLegacyTime(ln.CreatedAt)
		var readAt any
		if ln.Read.Value {
			readAt = created
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notifications (recipient_type, recipient_id, order_id, message, is_read, created_at, read_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.RecipientType, n.RecipientID, nullableInt(n.OrderID), n.Message, ln.Read.Value, created, readAt); err != nil {
			return fmt.Errorf("import notification: %w", err)
		}
		report.Notifications++
	}
	return nil
}

func importForms(ctx context.Context, tx *sql.Tx, dir string, report *ImportReport) error {
	for _, raw := range readLegacyArray(dir, LegacyFormsFile) {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			report.Skipped++
			continue
		}
		f := &models.FormSubmission{Kind: "form", Payload: make(map[string]string)}
		for k, v := range fields {
			switch k {
			case "kind", "formType", "form":
				f.Kind = fmt.Sprint(v)
			case "createdAt", "date":
				f.CreatedAt = parseTime(parseLegacyTime(fmt.Sprint(v)))
			case "id":
			default:
				f.Payload[k] = fmt.Sprint(v)
			}
		}
		if err := insertFormSubmission(ctx, tx, f); err != nil {
			return err
		}
		report.Forms++
	}
	return nil
}

// ExportLegacy writes the database in the legacy layout, one indented JSON
// array per file. Each file is written to a temp file and renamed into place.
func (s *Store) ExportLegacy(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	legacyUsers := make([]legacyUser, 0, len(users))
	for _, u := range users {
		legacyUsers = append(legacyUsers, legacyUser{
			ID: flexString(strconv.Itoa(u.ID)), Name: u.Name, Email: u.Email, Phone: flexString(u.Phone),
			Address: u.Address, PasswordHash: u.Password, CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}

	admins, err := s.listAdmins(ctx)
	if err != nil {
		return err
	}

	services, err := s.ListServices(ctx, false)
	if err != nil {
		return err
	}
	legacyServices := make([]legacyService, 0, len(services))
	for _, svc := range services {
		legacyServices = append(legacyServices, legacyService{
			ID: flexString(strconv.Itoa(svc.ID)), Name: svc.Name, Description: svc.Description, Price: flexFloat(svc.Price),
			Unit: svc.Unit, Available: flexBool{Set: true, Value: svc.Available}, CreatedAt: svc.CreatedAt.Format(time.RFC3339),
		})
	}

	orders, err := s.ListOrders(ctx, OrderFilter{})
	if err != nil {
		return err
	}
	legacyOrders := make([]legacyOrder, 0, len(orders))
	for _, o := range orders {
		history, err := s.OrderHistory(ctx, o.ID)
		if err != nil {
			return err
		}
		lh := make([]legacyHistory, 0, len(history))
		for _, h := range history {
			lh = append(lh, legacyHistory{Status: h.Status, Note: h.Note, ChangedBy: h.ChangedBy, Date: h.CreatedAt.Format(time.RFC3339)})
		}
		lo := legacyOrder{
			ID: flexString(strconv.Itoa(o.ID)), Ref: o.Ref, Name: o.CustomerName, Phone: flexString(o.Phone),
			Address: o.Address, ServiceID: flexString(strconv.Itoa(o.ServiceID)), ServiceName: o.ServiceName, Unit: o.Unit,
			Quantity: flexFloat(o.Quantity), UnitPrice: flexFloat(o.UnitPrice), TotalPrice: flexFloat(o.Total),
			Items: flexString(o.Items), Notes: o.Notes, PickupDate: o.PickupDate, DeliveryMethod: o.DeliveryMethod,
			Attachment: o.Attachment, Status: o.Status, Date: o.CreatedAt.Format(time.RFC3339), StatusHistory: lh,
		}
		if o.Unit == "kg" {
			lo.Kg = lo.Quantity
		}
		if o.UserID != 0 {
			lo.UserID = flexString(strconv.Itoa(o.UserID))
		}
		legacyOrders = append(legacyOrders, lo)
	}

	notifications, err := s.allNotifications(ctx)
	if err != nil {
		return err
	}

	forms, err := s.ListFormSubmissions(ctx, "")
	if err != nil {
		return err
	}
	legacyForms := make([]map[string]string, 0, len(forms))
	for _, f := range forms {
		m := map[string]string{"id": strconv.Itoa(f.ID), "kind": f.Kind, "createdAt": f.CreatedAt.Format(time.RFC3339)}
		for k, v := range f.Payload {
			if _, reserved := m[k]; !reserved {
				m[k] = v
			}
		}
		legacyForms = append(legacyForms, m)
	}

	files := []struct {
		name string
		data any
	}{
		{LegacyUsersFile, legacyUsers},
		{LegacyAdminFile, admins},
		{LegacyServicesFile, legacyServices},
		{LegacyOrdersFile, legacyOrders},
		{LegacyNotificationsFile, notifications},
		{LegacyFormsFile, legacyForms},
	}
	for _, f := range files {
		if err := writeJSONFile(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) listAdmins(ctx context.Context) ([]legacyAdmin, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT username, password FROM admins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	admins := []legacyAdmin{}
	for rows.Next() {
		var a legacyAdmin
		if err := rows.Scan(&a.Username, &a.PasswordHash); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (s *Store) allNotifications(ctx context.Context) ([]legacyNotification, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, recipient_type, recipient_id, COALESCE(order_id, 0), message, is_read, created_at FROM notifications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	out := []legacyNotification{}
	for rows.Next() {
		var id, recipientID, orderID int
		var read bool
		var n legacyNotification
		var createdAt string
		if err := rows.Scan(&id, &n.RecipientType, &recipientID, &orderID, &n.Message, &read, &createdAt); err != nil {
			return nil, err
		}
		n.ID = flexString(strconv.Itoa(id))
		if recipientID != 0 {
			n.UserID = flexString(strconv.Itoa(recipientID))
		}
		if orderID != 0 {
			n.OrderID = flexString(strconv.Itoa(orderID))
		}
		n.Read = flexBool{Set: true, Value: read}
		n.CreatedAt = parseTime(createdAt).Format(time.RFC3339)
		out = append(out, n)
	}
	return out, rows.Err()
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
