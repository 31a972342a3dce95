package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"warungpos/backend/internal/cloud"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/store/memory"
	"warungpos/backend/internal/syncer"
)

// newTestAPI builds a full API over a seeded in-memory store, a stub cloud
// and real auth so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded("test-store")
	bridge := syncer.New(repo, cloud.NewStub(0), syncer.WithDelay(time.Hour))
	stores := service.NewRegistry(repo, bridge)
	auth := NewAuthManager("test-secret-key", time.Hour, []domain.UserAccount{
		{Username: "admin", Password: mustHashPassword(t, "admin123"), Role: domain.RoleAdmin, Active: true},
		{Username: "cashier", Password: mustHashPassword(t, "cashier123"), Role: domain.RoleCashier, Active: true},
	})

	return New(stores, auth, bridge, "test-store", "*")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	return payload.AccessToken
}

// call sends a JSON request. Mutating requests carry a fresh CSRF token.
func call(t *testing.T, api *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, api))
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v (status %d)", err, res.Code)
	}
	return body
}

func firstProduct(t *testing.T, api *API, token string) map[string]any {
	t.Helper()
	res := call(t, api, http.MethodGet, "/api/v1/products?q=mie", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list products: %d %s", res.Code, res.Body.String())
	}
	items, _ := decodeBody(t, res)["items"].([]any)
	if len(items) == 0 {
		t.Fatalf("expected seeded products")
	}
	return items[0].(map[string]any)
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	res := call(t, api, http.MethodGet, "/healthz", "", nil)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	res := call(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestGuestCanBrowseButNotMutate(t *testing.T) {
	api := newTestAPI(t)

	if res := call(t, api, http.MethodGet, "/api/v1/products", "", nil); res.Code != http.StatusOK {
		t.Fatalf("expected guest browse 200, got %d", res.Code)
	}

	res := call(t, api, http.MethodPost, "/api/v1/products", "", map[string]any{
		"name": "Kerupuk", "category": "snack", "cost_price": "1", "selling_price": "2", "quantity": "5",
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected guest mutation 401, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["action"] != "login" {
		t.Fatalf("expected login action hint, got %v", body)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	res := call(t, api, http.MethodGet, "/api/v1/products", "not-a-token", nil)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestCashierProductViewHidesCost(t *testing.T) {
	api := newTestAPI(t)

	cashier := firstProduct(t, api, login(t, api, "cashier", "cashier123"))
	if _, ok := cashier["cost_price"]; ok {
		t.Fatalf("expected cost_price hidden from cashier, got %v", cashier)
	}

	admin := firstProduct(t, api, login(t, api, "admin", "admin123"))
	if _, ok := admin["cost_price"]; !ok {
		t.Fatalf("expected cost_price visible to admin, got %v", admin)
	}
}

func TestCreateProductValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin", "admin123")

	res := call(t, api, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name": "", "category": "snack", "cost_price": "abc", "selling_price": "2", "quantity": "5",
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", res.Code, res.Body.String())
	}
	errs, _ := decodeBody(t, res)["errors"].(map[string]any)
	if len(errs) == 0 {
		t.Fatalf("expected field errors")
	}

	res = call(t, api, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name": "Kerupuk", "category": "snack", "cost_price": "1", "selling_price": 2, "quantity": "5",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
}

func TestTransactionAndVoidFlow(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")
	product := firstProduct(t, api, token)
	id := product["id"].(string)
	before := product["quantity"].(float64)

	res := call(t, api, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"items":          []map[string]any{{"productId": id, "quantity": 2}},
		"payment_method": "Cash",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
	saleID := decodeBody(t, res)["id"].(string)

	if got := firstProduct(t, api, token)["quantity"].(float64); got != before-2 {
		t.Fatalf("expected stock %v, got %v", before-2, got)
	}

	res = call(t, api, http.MethodPost, "/api/v1/transactions/"+saleID+"/void", token, domain.VoidRequest{Reason: " "})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blank reason, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/transactions/"+saleID+"/void", token, domain.VoidRequest{Reason: "wrong item"})
	if res.Code != http.StatusOK || decodeBody(t, res)["status"] != "voided" {
		t.Fatalf("expected voided, got %d", res.Code)
	}
	if got := firstProduct(t, api, token)["quantity"].(float64); got != before {
		t.Fatalf("expected stock restored to %v, got %v", before, got)
	}

	res = call(t, api, http.MethodPost, "/api/v1/transactions/"+saleID+"/void", token, domain.VoidRequest{Reason: "again"})
	if res.Code != http.StatusOK || decodeBody(t, res)["status"] != "already_voided" {
		t.Fatalf("expected already_voided, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/transactions/missing/void", token, domain.VoidRequest{Reason: "x"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", res.Code)
	}
}

func TestTransactionWithoutReceiptStaysOutOfReceiptHistory(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")
	id := firstProduct(t, api, token)["id"].(string)

	res := call(t, api, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"items": []map[string]any{{"productId": id, "quantity": 1}},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
	created := decodeBody(t, res)
	if created["hasReceipt"] != false {
		t.Fatalf("expected sale without receipt, got %v", created)
	}

	res = call(t, api, http.MethodGet, "/api/v1/transactions", token, nil)
	if items := decodeBody(t, res)["items"].([]any); len(items) != 0 {
		t.Fatalf("expected no receipts, got %d", len(items))
	}

	res = call(t, api, http.MethodGet, "/api/v1/sales", token, nil)
	items := decodeBody(t, res)["items"].([]any)
	if len(items) == 0 || items[0].(map[string]any)["id"] != created["id"] {
		t.Fatalf("expected sale %v first in sales list, got %v", created["id"], items)
	}
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")
	id := firstProduct(t, api, token)["id"].(string)

	res := call(t, api, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"product_id": id, "quantity": "100000",
	})
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", res.Code, res.Body.String())
	}
	if body := decodeBody(t, res); body["available"] == nil {
		t.Fatalf("expected available quantity in body, got %v", body)
	}

	res = call(t, api, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"product_id": id, "quantity": "1.9",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
	if body := decodeBody(t, res); body["quantity"].(float64) != 1 {
		t.Fatalf("expected fractional quantity truncated to 1, got %v", body["quantity"])
	}
}

func TestDailyReportAccess(t *testing.T) {
	api := newTestAPI(t)
	cashier := login(t, api, "cashier", "cashier123")
	admin := login(t, api, "admin", "admin123")

	if res := call(t, api, http.MethodGet, "/api/v1/reports/daily", "", nil); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected guest 401, got %d", res.Code)
	}
	if res := call(t, api, http.MethodGet, "/api/v1/reports/daily", cashier, nil); res.Code != http.StatusForbidden {
		t.Fatalf("expected cashier 403, got %d", res.Code)
	}

	res := call(t, api, http.MethodGet, "/api/v1/reports/daily?format=csv", admin, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Body.String(), "section,key,value\n") {
		t.Fatalf("unexpected csv body %q", res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("expected text/csv, got %q", got)
	}

	if res := call(t, api, http.MethodGet, "/api/v1/reports/daily?date=bad", admin, nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", res.Code)
	}
}

func TestAdminSwitchElevatesCashier(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", "admin123")
	cashier := login(t, api, "cashier", "cashier123")

	res := call(t, api, http.MethodPatch, "/api/v1/settings", admin, map[string]any{"adminSwitchPassword": "rahasia123"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if body := decodeBody(t, res); body["adminSwitchConfigured"] != true {
		t.Fatalf("expected admin switch configured, got %v", body)
	}

	res = call(t, api, http.MethodPost, "/api/v1/auth/admin-switch", cashier, domain.AdminSwitchRequest{Password: "wrong"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/auth/admin-switch", cashier, domain.AdminSwitchRequest{Password: "rahasia123"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	var elevated domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&elevated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if elevated.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", elevated.Role)
	}
	if res := call(t, api, http.MethodGet, "/api/v1/reports/daily", elevated.AccessToken, nil); res.Code != http.StatusOK {
		t.Fatalf("expected elevated token to reach admin routes, got %d", res.Code)
	}
}

func TestSyncStatusAndRetry(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := call(t, api, http.MethodPost, "/api/v1/sync/retry", token, nil)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 with nothing to sync, got %d", res.Code)
	}

	id := firstProduct(t, api, token)["id"].(string)
	res = call(t, api, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"items": []map[string]any{{"productId": id, "quantity": 1}},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("record transaction: %d", res.Code)
	}

	res = call(t, api, http.MethodGet, "/api/v1/sync/status", token, nil)
	if state := decodeBody(t, res)["state"]; state != string(syncer.StatePending) {
		t.Fatalf("expected pending, got %v", state)
	}

	res = call(t, api, http.MethodPost, "/api/v1/sync/retry", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if state := decodeBody(t, res)["state"]; state != string(syncer.StateSynced) {
		t.Fatalf("expected synced, got %v", state)
	}
}

func TestStoreSwitch(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := call(t, api, http.MethodPost, "/api/v1/stores/branch-2/switch", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if body := decodeBody(t, res); body["store_id"] != "branch-2" {
		t.Fatalf("expected branch-2, got %v", body["store_id"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(storeHeader, "branch-2")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if items, _ := decodeBody(t, rec)["items"].([]any); len(items) != 0 {
		t.Fatalf("expected empty branch store, got %d products", len(items))
	}
}

func TestGuestReadOfUnknownStoreIsNotKeptOpen(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(storeHeader, "random-store-7f3a")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if items := decodeBody(t, res)["items"].([]any); len(items) != 0 {
		t.Fatalf("expected empty catalog for unknown store, got %d items", len(items))
	}

	engine, err := api.stores.View(req.Context(), "random-store-7f3a")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := engine.AddProduct(service.WithActor(req.Context(), domain.Actor{Username: "admin", Role: domain.RoleAdmin}), domain.ProductDraft{Name: "X", Category: "Y"}); !errors.Is(err, service.ErrStoreClosed) {
		t.Fatalf("expected unknown store to stay closed, got %v", err)
	}
}
