package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

// PropertyHandler は物件管理のHTTPハンドラー。
type PropertyHandler struct {
	store   storage.Store
	metrics metrics.MetricsCollector
}

// NewPropertyHandler はPropertyHandlerを生成する。
func NewPropertyHandler(store storage.Store, collector metrics.MetricsCollector) *PropertyHandler {
	return &PropertyHandler{store: store, metrics: collector}
}

// createPropertyRequest は物件登録リクエストのボディ。
type createPropertyRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	District  string  `json:"district"`
	Status    string  `json:"status"`
	Type      string  `json:"type"`
	Price     int     `json:"price"`
	Bedrooms  int     `json:"bedrooms"`
	Bathrooms int     `json:"bathrooms"`
	Size      int     `json:"size"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// propertyResponse は物件情報のAPIレスポンス。
type propertyResponse struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	District  string    `json:"district"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Price     int       `json:"price"`
	Bedrooms  int       `json:"bedrooms"`
	Bathrooms int       `json:"bathrooms"`
	Size      int       `json:"size"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPropertyResponse(p *model.Property) propertyResponse {
	return propertyResponse{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		City:      p.City,
		District:  p.District,
		Status:    p.Status,
		Type:      p.Type,
		Price:     p.Price,
		Bedrooms:  p.Bedrooms,
		Bathrooms: p.Bathrooms,
		Size:      p.Size,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		CreatedAt: p.CreatedAt,
	}
}

// Create は物件を登録する。
// POST /api/properties （owner / caretakerのみ）
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createPropertyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.Name == "" || req.Address == "" || req.Type == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("物件名、住所、物件種別は必須です。"))
		return
	}

	property, err := h.store.CreateProperty(r.Context(), storage.CreatePropertyInput{
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		District:  req.District,
		Status:    req.Status,
		Type:      req.Type,
		Price:     req.Price,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		Size:      req.Size,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     p.UserID,
		Action:     "created",
		EntityType: "property",
		EntityID:   property.ID,
		Details:    "物件 " + property.Name + " を登録",
	})

	writeJSON(w, http.StatusCreated, toPropertyResponse(property))
}

// List は全物件を一覧する。
// GET /api/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	properties, err := h.store.ListProperties(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]propertyResponse, 0, len(properties))
	for _, p := range properties {
		resp = append(resp, toPropertyResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は物件詳細を取得する。
// GET /api/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("物件IDは整数で指定してください。"))
		return
	}

	property, err := h.store.GetProperty(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if property == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("物件"))
		return
	}

	writeJSON(w, http.StatusOK, toPropertyResponse(property))
}
