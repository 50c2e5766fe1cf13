package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
	"github.com/santoshho/laundry/internal/uploads"
	"github.com/santoshho/laundry/web"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	srv    *httptest.Server
	app    *App
	router http.Handler
	store  *store.Store
	svc    *models.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	templates := newTestTemplates(t)
	files, err := uploads.New(t.TempDir())
	if err != nil {
		t.Fatalf("uploads: %v", err)
	}

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err := db.CreateAdmin(ctx, "admin", string(hash)); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	svc := &models.Service{Name: "Wash & Fold", Price: 120, Unit: "kg", Available: true}
	if err := db.CreateService(ctx, svc); err != nil {
		t.Fatalf("create service: %v", err)
	}

	// httptest serves plain HTTP, so the cookies must not be Secure.
	cookies := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	cookies.Options.Secure = false
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Path = "/"

	app := &App{
		Store:          db,
		Templates:      templates,
		SessionStore:   cookies,
		Uploads:        files,
		MaxUploadBytes: 5 << 20,
		BaseURL:        "http://localhost",
	}
	router := NewRouter(app, web.Static(), Limiters{
		Orders: NewRateLimiter(1000, 1000),
		Auth:   NewRateLimiter(1000, 1000),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, app: app, router: router, store: db, svc: svc}
}

// client keeps cookies and stops at the first redirect.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(e.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func (e *testEnv) loginAdmin(t *testing.T, c *http.Client) {
	t.Helper()
	resp, _ := e.post(t, c, "/admin/login", url.Values{"username": {"admin"}, "password": {"secret123"}})
	expectRedirect(t, resp, "/admin/dashboard")
}

func (e *testEnv) registerAndLogin(t *testing.T, c *http.Client, email string) *models.User {
	t.Helper()
	resp, _ := e.post(t, c, "/register", url.Values{
		"name":             {"Sita Sharma"},
		"email":            {email},
		"phone":            {"9800000000"},
		"address":          {"Baneshwor, Kathmandu"},
		"password":         {"hunter22"},
		"confirm_password": {"hunter22"},
	})
	expectRedirect(t, resp, "/login")
	resp, _ = e.post(t, c, "/login", url.Values{"email": {email}, "password": {"hunter22"}})
	expectRedirect(t, resp, "/user/dashboard")

	user, err := e.store.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("registered user missing: %v", err)
	}
	return user
}

func (e *testEnv) orderForm() url.Values {
	return url.Values{
		"name":       {"Ram Bahadur"},
		"phone":      {"+977 9812345678"},
		"address":    {"Lalitpur"},
		"service_id": {strconv.Itoa(e.svc.ID)},
		"quantity":   {"2.5"},
	}
}

func TestPublicPagesRender(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	for _, path := range []string{"/", "/pricing", "/login", "/register", "/forgot-password", "/admin/login", "/order-success"} {
		resp, body := e.get(t, c, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
		if !strings.Contains(body, "</html>") {
			t.Errorf("GET %s did not render a full page", path)
		}
	}

	_, body := e.get(t, c, "/pricing")
	if !strings.Contains(body, "Wash &amp; Fold") {
		t.Error("pricing page does not list the catalog")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.get(t, e.client(t), "/no-such-page")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, e.client(t), "sita@example.com")

	resp, body := e.post(t, e.client(t), "/register", url.Values{
		"name":     {"Someone Else"},
		"email":    {"SITA@example.com"},
		"password": {"another1"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want form re-render", resp.StatusCode)
	}
	if !strings.Contains(body, "already exists") {
		t.Error("duplicate email error not shown")
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.post(t, e.client(t), "/register", url.Values{
		"name":             {"Sita"},
		"email":            {"not-an-email"},
		"password":         {"abc"},
		"confirm_password": {"abd"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "valid email") {
		t.Errorf("email error missing from page")
	}
	users, _ := e.store.ListUsers(context.Background())
	if len(users) != 0 {
		t.Fatalf("invalid registration stored %d users", len(users))
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, e.client(t), "sita@example.com")

	resp, body := e.post(t, e.client(t), "/login", url.Values{"email": {"sita@example.com"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "Invalid email or password.") {
		t.Error("login error not shown")
	}
}

func TestGuestCreateOrder(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	resp, _ := e.post(t, c, "/create-order", e.orderForm())
	expectRedirect(t, resp, "/order-success")

	orders, err := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if err != nil || len(orders) != 1 {
		t.Fatalf("orders = %d (%v), want 1", len(orders), err)
	}
	o := orders[0]
	if o.Status != models.StatusPending || o.UserID != 0 || o.Total != 300 {
		t.Fatalf("order = %+v", o)
	}

	_, body := e.get(t, c, "/order-success")
	if !strings.Contains(body, o.Ref) {
		t.Errorf("success page does not show ref %s", o.Ref)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	form := e.orderForm()
	form.Set("phone", "12ab")
	form.Set("quantity", "0")
	resp, _ := e.post(t, c, "/create-order", form)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if n, _ := e.store.CountOrders(context.Background(), store.OrderFilter{}); n != 0 {
		t.Fatalf("invalid order stored (%d orders)", n)
	}
}

func TestCreateOrderAcceptsLegacyKgField(t *testing.T) {
	e := newTestEnv(t)
	form := e.orderForm()
	form.Del("quantity")
	form.Set("kg", "4")
	resp, _ := e.post(t, e.client(t), "/create-order", form)
	expectRedirect(t, resp, "/order-success")

	orders, _ := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if len(orders) != 1 || orders[0].Quantity != 4 {
		t.Fatalf("orders = %+v, want one order of 4kg", orders)
	}
}

func TestLoggedInOrderBelongsToUser(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	user := e.registerAndLogin(t, c, "sita@example.com")

	form := url.Values{"service_id": {strconv.Itoa(e.svc.ID)}, "quantity": {"1"}}
	resp, _ := e.post(t, c, "/create-order", form)
	expectRedirect(t, resp, "/order-success")

	orders, _ := e.store.ListOrders(context.Background(), store.OrderFilter{UserID: user.ID})
	if len(orders) != 1 {
		t.Fatalf("user orders = %d, want 1", len(orders))
	}
	if orders[0].CustomerName != user.Name || orders[0].Phone != user.Phone {
		t.Errorf("contact details not taken from profile: %+v", orders[0])
	}

	resp, body := e.get(t, c, "/user/requests/"+strconv.Itoa(orders[0].ID))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, orders[0].Ref) {
		t.Fatalf("own order detail status = %d", resp.StatusCode)
	}
}

func TestUserCannotSeeOthersOrder(t *testing.T) {
	e := newTestEnv(t)
	owner := e.client(t)
	e.registerAndLogin(t, owner, "owner@example.com")
	e.post(t, owner, "/create-order", url.Values{"service_id": {strconv.Itoa(e.svc.ID)}, "quantity": {"1"}})
	orders, _ := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	id := strconv.Itoa(orders[0].ID)

	other := e.client(t)
	e.registerAndLogin(t, other, "other@example.com")
	resp, _ := e.get(t, other, "/user/requests/"+id)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp, _ = e.post(t, other, "/user/requests/"+id+"/cancel", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel status = %d, want 404", resp.StatusCode)
	}
}

func TestUserPagesRequireLogin(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/user/dashboard", "/user/requests", "/user/new-request", "/user/profile"} {
		resp, _ := e.get(t, e.client(t), path)
		expectRedirect(t, resp, "/login")
	}
}

func TestUserPagesRender(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	e.registerAndLogin(t, c, "sita@example.com")
	for _, path := range []string{"/user/dashboard", "/user/requests", "/user/new-request", "/user/profile"} {
		resp, _ := e.get(t, c, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestLegacyRedirects(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	resp, _ := e.get(t, c, "/user/login")
	if resp.StatusCode != http.StatusMovedPermanently || resp.Header.Get("Location") != "/login" {
		t.Fatalf("/user/login = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	e.registerAndLogin(t, c, "sita@example.com")
	resp, _ = e.get(t, c, "/user/request-details?id=7")
	if resp.StatusCode != http.StatusMovedPermanently || resp.Header.Get("Location") != "/user/requests/7" {
		t.Fatalf("/user/request-details = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	for _, path := range []string{"/admin/dashboard", "/admin/orders", "/admin/pricing", "/admin/users", "/admin/forms"} {
		resp, _ := e.get(t, c, path)
		expectRedirect(t, resp, "/admin/login")
	}
	resp, _ := e.post(t, c, "/admin/order/1/status", url.Values{"status": {"done"}})
	expectRedirect(t, resp, "/admin/login")
}

func TestCustomerIsNotAdmin(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	e.registerAndLogin(t, c, "sita@example.com")
	resp, _ := e.get(t, c, "/admin/dashboard")
	expectRedirect(t, resp, "/admin/login")
}

func TestAdminLoginAndLogout(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	resp, body := e.post(t, c, "/admin/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Invalid username or password") {
		t.Fatalf("bad login: status %d", resp.StatusCode)
	}

	e.loginAdmin(t, c)
	for _, path := range []string{"/admin/dashboard", "/admin/orders", "/admin/pricing", "/admin/pricing/new", "/admin/users", "/admin/forms"} {
		resp, _ := e.get(t, c, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, _ = e.post(t, c, "/admin/logout", nil)
	expectRedirect(t, resp, "/")
	resp, _ = e.get(t, c, "/admin/dashboard")
	expectRedirect(t, resp, "/admin/login")
}

func TestAdminUpdateStatusNotifiesCustomer(t *testing.T) {
	e := newTestEnv(t)
	customer := e.client(t)
	user := e.registerAndLogin(t, customer, "sita@example.com")
	e.post(t, customer, "/create-order", url.Values{"service_id": {strconv.Itoa(e.svc.ID)}, "quantity": {"3"}, "notes": {"no starch"}})
	orders, _ := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	before := orders[0]

	admin := e.client(t)
	e.loginAdmin(t, admin)
	resp, _ := e.post(t, admin, "/admin/order/"+strconv.Itoa(before.ID)+"/status", url.Values{"status": {"In Progress"}})
	expectRedirect(t, resp, "/admin/orders")

	after, err := e.store.GetOrder(context.Background(), before.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != models.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", after.Status)
	}
	if after.Notes != before.Notes || after.Total != before.Total || after.CustomerName != before.CustomerName {
		t.Fatalf("status update changed other fields: %+v", after)
	}

	n, _ := e.store.UnreadCount(context.Background(), store.UserRecipient(user.ID))
	if n != 1 {
		t.Fatalf("customer unread = %d, want 1", n)
	}

	resp, _ = e.post(t, admin, "/admin/order/"+strconv.Itoa(before.ID)+"/status", url.Values{"status": {"bogus"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("invalid status = %d, want 302", resp.StatusCode)
	}
	after, _ = e.store.GetOrder(context.Background(), before.ID)
	if after.Status != models.StatusInProgress {
		t.Fatalf("invalid status was applied: %q", after.Status)
	}

	resp, _ = e.post(t, admin, "/admin/order/99999/status", url.Values{"status": {"done"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing order = %d, want 404", resp.StatusCode)
	}
}

func TestAdminDeleteOrder(t *testing.T) {
	e := newTestEnv(t)
	e.post(t, e.client(t), "/create-order", e.orderForm())
	orders, _ := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}

	admin := e.client(t)
	e.loginAdmin(t, admin)
	resp, _ := e.post(t, admin, "/admin/order/"+strconv.Itoa(orders[0].ID)+"/delete", nil)
	expectRedirect(t, resp, "/admin/orders")
	if _, err := e.store.GetOrder(context.Background(), orders[0].ID); err == nil {
		t.Fatal("order still exists")
	}
}

func TestAdminPricingCRUD(t *testing.T) {
	e := newTestEnv(t)
	admin := e.client(t)
	e.loginAdmin(t, admin)
	ctx := context.Background()

	resp, _ := e.post(t, admin, "/admin/pricing", url.Values{
		"name": {"Dry Clean"}, "price": {"350"}, "unit": {"item"}, "available": {"on"},
	})
	expectRedirect(t, resp, "/admin/pricing")
	services, _ := e.store.ListServices(ctx, false)
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2", len(services))
	}
	var created models.Service
	for _, s := range services {
		if s.Name == "Dry Clean" {
			created = s
		}
	}
	if created.ID == 0 || created.Price != 350 || created.Unit != "item" || !created.Available {
		t.Fatalf("created = %+v", created)
	}

	resp, _ = e.get(t, admin, "/admin/pricing/"+strconv.Itoa(created.ID)+"/edit")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit form = %d", resp.StatusCode)
	}
	resp, _ = e.post(t, admin, "/admin/pricing/"+strconv.Itoa(created.ID), url.Values{
		"name": {"Dry Clean"}, "price": {"400"}, "unit": {"item"},
	})
	expectRedirect(t, resp, "/admin/pricing")
	updated, _ := e.store.GetService(ctx, created.ID)
	if updated.Price != 400 || updated.Available {
		t.Fatalf("updated = %+v", updated)
	}

	resp, _ = e.post(t, admin, "/admin/pricing", url.Values{"name": {""}, "price": {"-1"}, "unit": {"kg"}})
	if n, _ := e.store.ListServices(ctx, false); len(n) != 2 {
		t.Fatalf("invalid service was stored (status %d)", resp.StatusCode)
	}

	resp, _ = e.post(t, admin, "/admin/pricing/"+strconv.Itoa(created.ID)+"/delete", nil)
	expectRedirect(t, resp, "/admin/pricing")
	services, _ = e.store.ListServices(ctx, false)
	if len(services) != 1 || services[0].ID != e.svc.ID {
		t.Fatalf("delete removed the wrong services: %+v", services)
	}

	resp, _ = e.post(t, admin, "/admin/pricing/"+strconv.Itoa(created.ID)+"/delete", nil)
	expectRedirect(t, resp, "/admin/pricing")
}

func TestNotificationAPI(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.get(t, e.client(t), "/api/notifications")
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(body, "authentication required") {
		t.Fatalf("anonymous = %d %s", resp.StatusCode, body)
	}

	c := e.client(t)
	user := e.registerAndLogin(t, c, "sita@example.com")
	ctx := context.Background()
	for _, msg := range []string{"first", "second"} {
		n := &models.Notification{RecipientType: models.RecipientUser, RecipientID: user.ID, Message: msg}
		if err := e.store.CreateNotification(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	foreign := &models.Notification{RecipientType: models.RecipientUser, RecipientID: user.ID + 100, Message: "not yours"}
	e.store.CreateNotification(ctx, foreign)

	resp, body = e.get(t, c, "/api/notifications")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d", resp.StatusCode)
	}
	var list struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Notifications) != 2 || list.Unread != 2 {
		t.Fatalf("list = %+v", list)
	}

	resp, _ = e.post(t, c, "/api/notifications/"+strconv.Itoa(foreign.ID)+"/read", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign mark read = %d, want 404", resp.StatusCode)
	}
	resp, _ = e.post(t, c, "/api/notifications/"+strconv.Itoa(list.Notifications[0].ID)+"/read", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read = %d", resp.StatusCode)
	}

	_, body = e.get(t, c, "/api/notifications/unread-count")
	var count struct{ Count int }
	json.Unmarshal([]byte(body), &count)
	if count.Count != 1 {
		t.Fatalf("unread = %d, want 1", count.Count)
	}

	_, body = e.post(t, c, "/api/notifications/read-all", nil)
	var all struct{ Updated int }
	json.Unmarshal([]byte(body), &all)
	if all.Updated != 1 {
		t.Fatalf("read-all updated %d, want 1", all.Updated)
	}
}

func TestAdminReceivesNewOrderNotification(t *testing.T) {
	e := newTestEnv(t)
	e.post(t, e.client(t), "/create-order", e.orderForm())

	admin := e.client(t)
	e.loginAdmin(t, admin)
	_, body := e.get(t, admin, "/api/notifications/unread-count")
	var count struct{ Count int }
	json.Unmarshal([]byte(body), &count)
	if count.Count != 1 {
		t.Fatalf("admin unread = %d, want 1", count.Count)
	}
}

func TestFormSubmission(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	resp, body := e.post(t, c, "/forms/contact", url.Values{"name": {"Hari"}, "message": {"Do you iron shirts?"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("form = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "</html>") {
		t.Error("thank-you page not rendered")
	}

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/forms/feedback", strings.NewReader(`{"rating":5,"comment":"great"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("json form = %d", resp.StatusCode)
	}

	resp, _ = e.post(t, c, "/forms/contact", url.Values{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty form = %d, want 400", resp.StatusCode)
	}
	resp, _ = e.post(t, c, "/forms/Bad%20Kind", url.Values{"a": {"b"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("bad kind = %d, want 404", resp.StatusCode)
	}

	subs, _ := e.store.ListFormSubmissions(context.Background(), "feedback")
	if len(subs) != 1 || subs[0].Payload["rating"] != "5" {
		t.Fatalf("feedback = %+v", subs)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	e := newTestEnv(t)
	user := e.registerAndLogin(t, e.client(t), "sita@example.com")
	ctx := context.Background()

	c := e.client(t)
	resp, _ := e.post(t, c, "/forgot-password", url.Values{"email": {"unknown@example.com"}})
	expectRedirect(t, resp, "/forgot-password")

	if err := e.store.CreatePasswordReset(ctx, user.ID, "tok-123", time.Hour); err != nil {
		t.Fatal(err)
	}
	resp, _ = e.get(t, c, "/reset-password?token=tok-123")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset form = %d", resp.StatusCode)
	}
	resp, _ = e.post(t, c, "/reset-password", url.Values{
		"token": {"tok-123"}, "new_password": {"brandnew1"}, "confirm_password": {"brandnew1"},
	})
	expectRedirect(t, resp, "/login")

	resp, _ = e.post(t, c, "/login", url.Values{"email": {"sita@example.com"}, "password": {"brandnew1"}})
	expectRedirect(t, resp, "/user/dashboard")
}

func TestHealthzAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	resp, body := e.get(t, c, "/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
	resp, body = e.get(t, c, "/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "laundry_http_requests_total") {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
