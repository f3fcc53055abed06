package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/propman/internal/storage"
)

func newActivityTestHandler(t *testing.T, records int) (*ActivityHandler, *storage.MemStore) {
	t.Helper()

	store := storage.NewMemStore()
	for i := 0; i < records; i++ {
		if _, err := store.CreateActivity(context.Background(), storage.CreateActivityInput{
			UserID:     1,
			Action:     "created",
			EntityType: "task",
			EntityID:   i + 1,
		}); err != nil {
			t.Fatalf("CreateActivity failed: %v", err)
		}
	}
	return NewActivityHandler(store), store
}

func TestActivityList_NoLimitReturnsAll(t *testing.T) {
	h, _ := newActivityTestHandler(t, 25)

	req := httptest.NewRequest(http.MethodGet, "/api/activities", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp []activityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 25 {
		t.Errorf("len = %d, want all 25 records when limit is unspecified", len(resp))
	}
}

func TestActivityList_LimitApplies(t *testing.T) {
	h, _ := newActivityTestHandler(t, 25)

	req := httptest.NewRequest(http.MethodGet, "/api/activities?limit=10", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp []activityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 10 {
		t.Fatalf("len = %d, want 10", len(resp))
	}
	// 新しい順に返ること
	if resp[0].EntityID != 25 {
		t.Errorf("first EntityID = %d, want 25 (newest)", resp[0].EntityID)
	}
}

func TestActivityList_InvalidLimit(t *testing.T) {
	h, _ := newActivityTestHandler(t, 3)

	for _, raw := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/activities?limit="+raw, nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", raw, w.Code)
		}
	}
}
