package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/security"
	"github.com/hitoshi/propman/internal/storage"
)

func newTransactionTestHandler(t *testing.T) (*TransactionHandler, *storage.MemStore, *model.User, *model.Property) {
	t.Helper()

	store := storage.NewMemStore()
	tenant := registerUser(t, store, "tenant1", "tenant1@example.com", "secret123", model.RoleClient)
	property, err := store.CreateProperty(context.Background(), storage.CreatePropertyInput{
		Name: "Garden Villas", Address: "456 Garden Ave", Type: "apartment",
	})
	if err != nil {
		t.Fatalf("failed to create property: %v", err)
	}

	h := NewTransactionHandler(store, security.NewContentSanitizer(), nil)
	return h, store, tenant, property
}

func staffPrincipal() middleware.Principal {
	return middleware.Principal{UserID: 99, Role: model.RoleOwner}
}

func TestTransactionCreate_Success(t *testing.T) {
	h, store, tenant, property := newTransactionTestHandler(t)

	body := `{"tenantId":` + strconv.Itoa(tenant.ID) +
		`,"propertyId":` + strconv.Itoa(property.ID) +
		`,"type":"rent_payment","amount":120000,"paymentMethod":"card"}`
	req := authedRequest(http.MethodPost, "/api/transactions", body, staffPrincipal())
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp transactionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Amount != 120000 {
		t.Errorf("Amount = %d, want 120000", resp.Amount)
	}
	if resp.ProcessedByID != 99 {
		t.Errorf("ProcessedByID = %d, want principal user 99", resp.ProcessedByID)
	}

	// 監査レコードが1件追記される
	activities, err := store.ListActivities(context.Background(), 0)
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(activities))
	}
	if activities[0].EntityType != "transaction" || activities[0].Action != "created" {
		t.Errorf("activity = %s/%s, want transaction/created",
			activities[0].EntityType, activities[0].Action)
	}
}

func TestTransactionCreate_NonPositiveAmount(t *testing.T) {
	h, store, tenant, property := newTransactionTestHandler(t)

	for _, amount := range []int{0, -500} {
		body := `{"tenantId":` + strconv.Itoa(tenant.ID) +
			`,"propertyId":` + strconv.Itoa(property.ID) +
			`,"type":"rent_payment","amount":` + strconv.Itoa(amount) + `}`
		req := authedRequest(http.MethodPost, "/api/transactions", body, staffPrincipal())
		w := httptest.NewRecorder()

		h.Create(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %d: status = %d, want 400", amount, w.Code)
		}
	}

	txs, _ := store.ListTransactions(context.Background())
	if len(txs) != 0 {
		t.Errorf("transactions = %d, want 0", len(txs))
	}
}

func TestTransactionCreate_UnknownTenant(t *testing.T) {
	h, _, _, property := newTransactionTestHandler(t)

	body := `{"tenantId":999,"propertyId":` + strconv.Itoa(property.ID) +
		`,"type":"rent_payment","amount":100}`
	req := authedRequest(http.MethodPost, "/api/transactions", body, staffPrincipal())
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTransactionCreate_SanitizesNotes(t *testing.T) {
	h, _, tenant, property := newTransactionTestHandler(t)

	body := `{"tenantId":` + strconv.Itoa(tenant.ID) +
		`,"propertyId":` + strconv.Itoa(property.ID) +
		`,"type":"repair_charge","amount":2500,"notes":"<script>alert(1)</script>boiler part"}`
	req := authedRequest(http.MethodPost, "/api/transactions", body, staffPrincipal())
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp transactionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Notes != "boiler part" {
		t.Errorf("Notes = %q, want markup stripped", resp.Notes)
	}
}

func TestTransactionList_FilterByTenant(t *testing.T) {
	h, store, tenant, property := newTransactionTestHandler(t)
	other := registerUser(t, store, "tenant2", "tenant2@example.com", "secret123", model.RoleClient)

	for _, tenantID := range []int{tenant.ID, other.ID, tenant.ID} {
		if _, err := store.CreateTransaction(context.Background(), storage.CreateTransactionInput{
			TenantID:      tenantID,
			PropertyID:    property.ID,
			Type:          "rent_payment",
			Amount:        100,
			PaymentMethod: "cash",
			ProcessedByID: 99,
		}); err != nil {
			t.Fatalf("failed to create transaction: %v", err)
		}
	}

	req := authedRequest(http.MethodGet, "/api/transactions?tenantId="+strconv.Itoa(tenant.ID), "", staffPrincipal())
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp []transactionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("len = %d, want 2", len(resp))
	}
}
