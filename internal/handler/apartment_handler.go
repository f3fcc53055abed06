package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

// ApartmentHandler は部屋管理のHTTPハンドラー。
type ApartmentHandler struct {
	store   storage.Store
	metrics metrics.MetricsCollector
}

// NewApartmentHandler はApartmentHandlerを生成する。
func NewApartmentHandler(store storage.Store, collector metrics.MetricsCollector) *ApartmentHandler {
	return &ApartmentHandler{store: store, metrics: collector}
}

// createApartmentRequest は部屋登録リクエストのボディ。
type createApartmentRequest struct {
	PropertyID int    `json:"propertyId"`
	Number     string `json:"number"`
	TenantID   *int   `json:"tenantId"`
	Status     string `json:"status"`
	Price      int    `json:"price"`
}

// apartmentResponse は部屋情報のAPIレスポンス。
type apartmentResponse struct {
	ID         int    `json:"id"`
	PropertyID int    `json:"propertyId"`
	Number     string `json:"number"`
	TenantID   *int   `json:"tenantId"`
	Status     string `json:"status"`
	Price      int    `json:"price"`
}

func toApartmentResponse(a *model.Apartment) apartmentResponse {
	return apartmentResponse{
		ID:         a.ID,
		PropertyID: a.PropertyID,
		Number:     a.Number,
		TenantID:   a.TenantID,
		Status:     a.Status,
		Price:      a.Price,
	}
}

// Create は部屋を登録する。
// POST /api/apartments （owner / caretakerのみ）
func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createApartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.PropertyID == 0 || req.Number == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("物件IDと部屋番号は必須です。"))
		return
	}

	// 親物件の存在確認
	property, err := h.store.GetProperty(r.Context(), req.PropertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if property == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("物件"))
		return
	}

	apartment, err := h.store.CreateApartment(r.Context(), storage.CreateApartmentInput{
		PropertyID: req.PropertyID,
		Number:     req.Number,
		TenantID:   req.TenantID,
		Status:     req.Status,
		Price:      req.Price,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     p.UserID,
		Action:     "created",
		EntityType: "apartment",
		EntityID:   apartment.ID,
		Details:    "物件 " + property.Name + " に部屋 " + apartment.Number + " を登録",
	})

	writeJSON(w, http.StatusCreated, toApartmentResponse(apartment))
}

// ListByProperty は物件に属する部屋を一覧する。
// GET /api/properties/{propertyId}/apartments
func (h *ApartmentHandler) ListByProperty(w http.ResponseWriter, r *http.Request) {
	propertyID, err := strconv.Atoi(chi.URLParam(r, "propertyId"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("物件IDは整数で指定してください。"))
		return
	}

	property, err := h.store.GetProperty(r.Context(), propertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if property == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("物件"))
		return
	}

	apartments, err := h.store.ListApartmentsByProperty(r.Context(), propertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]apartmentResponse, 0, len(apartments))
	for _, a := range apartments {
		resp = append(resp, toApartmentResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}
