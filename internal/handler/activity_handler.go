package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

// ActivityHandler は監査ログ参照のHTTPハンドラー。
// 監査ログは追記専用で、このハンドラーは読み取りのみを公開する。
type ActivityHandler struct {
	store storage.Store
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(store storage.Store) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// activityResponse は監査レコードのAPIレスポンス。
type activityResponse struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   int       `json:"entityId"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toActivityResponse(a *model.Activity) activityResponse {
	return activityResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    a.Details,
		CreatedAt:  a.CreatedAt,
	}
}

// List は監査レコードを新しい順に一覧する。
// limit未指定の場合は全件を返す。
// GET /api/activities?limit=N
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitは正の整数で指定してください。"))
			return
		}
		limit = parsed
	}

	activities, err := h.store.ListActivities(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, toActivityResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}
