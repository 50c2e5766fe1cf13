package handlers

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/santoshho/laundry/internal/models"
	"github.com/santoshho/laundry/internal/store"
)

// postMultipart sends fields plus one attachment as multipart/form-data.
func (e *testEnv) postMultipart(t *testing.T, c *http.Client, path string, fields url.Values, filename string, content []byte) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, vs := range fields {
		for _, v := range vs {
			w.WriteField(k, v)
		}
	}
	part, err := w.CreateFormFile("attachment", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	resp, err := c.Post(e.srv.URL+path, w.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp
}

func (e *testEnv) orders(t *testing.T) []models.Order {
	t.Helper()
	orders, err := e.store.ListOrders(context.Background(), store.OrderFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return orders
}

func TestCreateOrderWithoutServiceIsStoredForQuote(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.post(t, e.client(t), "/create-order", url.Values{
		"name":    {"Test User"},
		"phone":   {"1234567890"},
		"address": {"123 Test St"},
		"items":   {"Shirts, Pants"},
	})
	expectRedirect(t, resp, "/order-success")

	orders := e.orders(t)
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	o := orders[0]
	if o.ServiceID != 0 || o.ServiceName != models.UnspecifiedService || o.Total != 0 || o.Items != "Shirts, Pants" {
		t.Fatalf("order = %+v", o)
	}
}

func TestCreateOrderFromJSON(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	payload := `{"name":"Ram Bahadur","phone":"9812345678","address":"Lalitpur","service_id":` +
		strconv.Itoa(e.svc.ID) + `,"quantity":2,"items":"bedsheets"}`

	resp, err := c.Post(e.srv.URL+"/create-order", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectRedirect(t, resp, "/order-success")

	orders := e.orders(t)
	if len(orders) != 1 || orders[0].Quantity != 2 || orders[0].Total != 240 || orders[0].Items != "bedsheets" {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestCreateOrderRejectsBrokenJSON(t *testing.T) {
	e := newTestEnv(t)
	resp, err := e.client(t).Post(e.srv.URL+"/create-order", "application/json", strings.NewReader(`{"name":`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || len(e.orders(t)) != 0 {
		t.Fatalf("status = %d, orders = %d", resp.StatusCode, len(e.orders(t)))
	}
}

func TestCreateOrderServiceNeedsQuantity(t *testing.T) {
	e := newTestEnv(t)
	form := e.orderForm()
	form.Del("quantity")
	resp, _ := e.post(t, e.client(t), "/create-order", form)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") == "/order-success" {
		t.Fatalf("status = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if len(e.orders(t)) != 0 {
		t.Fatal("order without quantity was stored")
	}
}

func TestCreateOrderWithImageAttachment(t *testing.T) {
	e := newTestEnv(t)
	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 30)))

	resp := e.postMultipart(t, e.client(t), "/create-order", e.orderForm(), "shirt.png", img.Bytes())
	expectRedirect(t, resp, "/order-success")

	orders := e.orders(t)
	if len(orders) != 1 || orders[0].Attachment == "" {
		t.Fatalf("orders = %+v", orders)
	}
	if _, err := os.Stat(e.app.Uploads.Path(orders[0].Attachment)); err != nil {
		t.Fatalf("attachment not on disk: %v", err)
	}

	resp, _ = e.get(t, e.client(t), "/uploads/"+orders[0].Attachment)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET attachment = %d", resp.StatusCode)
	}
}

func TestCreateOrderRejectsUnsupportedAttachment(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	resp := e.postMultipart(t, c, "/create-order", e.orderForm(), "setup.exe", []byte("MZ\x90\x00"))
	expectRedirect(t, resp, "/")
	if len(e.orders(t)) != 0 {
		t.Fatal("order stored with unsupported attachment")
	}

	_, body := e.get(t, c, "/")
	if !strings.Contains(body, "Unsupported attachment") {
		t.Error("unsupported attachment message not flashed")
	}
	entries, _ := os.ReadDir(e.app.Uploads.Dir)
	if len(entries) != 0 {
		t.Fatalf("upload dir has %d files", len(entries))
	}
}

func TestCreateOrderRejectsOversizeUpload(t *testing.T) {
	e := newTestEnv(t)
	e.app.MaxUploadBytes = 32 << 10
	c := e.client(t)

	resp := e.postMultipart(t, c, "/create-order", e.orderForm(), "scan.pdf", bytes.Repeat([]byte("%"), 64<<10))
	expectRedirect(t, resp, "/")
	if len(e.orders(t)) != 0 {
		t.Fatal("oversize order was stored")
	}

	_, body := e.get(t, c, "/")
	if !strings.Contains(body, "File too large") {
		t.Error("size limit message not flashed")
	}
}

func TestCustomerCancelsOwnPendingOrder(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)
	user := e.registerAndLogin(t, c, "sita@example.com")
	e.post(t, c, "/create-order", url.Values{"service_id": {strconv.Itoa(e.svc.ID)}, "quantity": {"1"}})
	orders := e.orders(t)
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	id := strconv.Itoa(orders[0].ID)

	resp, _ := e.post(t, c, "/user/requests/"+id+"/cancel", nil)
	expectRedirect(t, resp, "/user/requests/"+id)
	got, _ := e.store.GetOrder(context.Background(), orders[0].ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", got.Status)
	}

	_, body := e.get(t, c, "/user/requests/"+id)
	if !strings.Contains(body, "Your order was cancelled.") {
		t.Error("cancel confirmation not shown")
	}

	// A second cancel is refused with a message, not an error page.
	resp, _ = e.post(t, c, "/user/requests/"+id+"/cancel", nil)
	expectRedirect(t, resp, "/user/requests/"+id)
	_, body = e.get(t, c, "/user/requests/"+id)
	if !strings.Contains(body, "Only pending orders can be cancelled.") {
		t.Error("second cancel message not shown")
	}
	if n, _ := e.store.CountOrders(context.Background(), store.OrderFilter{UserID: user.ID, Status: models.StatusCancelled}); n != 1 {
		t.Fatalf("cancelled orders = %d, want 1", n)
	}
}
