package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/security"
	"github.com/hitoshi/propman/internal/storage"
)

// TransactionHandler は取引管理のHTTPハンドラー。
type TransactionHandler struct {
	store     storage.Store
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(store storage.Store, sanitizer security.ContentSanitizerService, collector metrics.MetricsCollector) *TransactionHandler {
	return &TransactionHandler{store: store, sanitizer: sanitizer, metrics: collector}
}

// createTransactionRequest は取引登録リクエストのボディ。Amountはセント単位。
type createTransactionRequest struct {
	TenantID      int    `json:"tenantId"`
	ApartmentID   *int   `json:"apartmentId"`
	PropertyID    int    `json:"propertyId"`
	Type          string `json:"type"`
	Amount        int    `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Description   string `json:"description"`
	Notes         string `json:"notes"`
}

// transactionResponse は取引情報のAPIレスポンス。
type transactionResponse struct {
	ID            int       `json:"id"`
	TenantID      int       `json:"tenantId"`
	ApartmentID   *int      `json:"apartmentId"`
	PropertyID    int       `json:"propertyId"`
	Type          string    `json:"type"`
	Amount        int       `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	Description   string    `json:"description"`
	Notes         string    `json:"notes"`
	ProcessedByID int       `json:"processedById"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		TenantID:      t.TenantID,
		ApartmentID:   t.ApartmentID,
		PropertyID:    t.PropertyID,
		Type:          t.Type,
		Amount:        t.Amount,
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		Notes:         t.Notes,
		ProcessedByID: t.ProcessedByID,
		CreatedAt:     t.CreatedAt,
	}
}

// Create は取引を登録する。
// POST /api/transactions （owner / caretakerのみ）
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.TenantID == 0 || req.PropertyID == 0 || req.Type == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("入居者ID、物件ID、取引種別は必須です。"))
		return
	}
	if req.Amount <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("金額はセント単位の正の整数で指定してください。"))
		return
	}

	tenant, err := h.store.GetUser(r.Context(), req.TenantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if tenant == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("入居者"))
		return
	}

	property, err := h.store.GetProperty(r.Context(), req.PropertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if property == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("物件"))
		return
	}

	tx, err := h.store.CreateTransaction(r.Context(), storage.CreateTransactionInput{
		TenantID:      req.TenantID,
		ApartmentID:   req.ApartmentID,
		PropertyID:    req.PropertyID,
		Type:          req.Type,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Description:   h.sanitizer.Sanitize(req.Description),
		Notes:         h.sanitizer.Sanitize(req.Notes),
		ProcessedByID: p.UserID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     p.UserID,
		Action:     "created",
		EntityType: "transaction",
		EntityID:   tx.ID,
		Details:    "取引 " + tx.Type + " を記録",
	})

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// List は取引を一覧する。
// GET /api/transactions?tenantId=N （owner / caretakerのみ）
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		txs []*model.Transaction
		err error
	)

	if raw := r.URL.Query().Get("tenantId"); raw != "" {
		tenantID, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("tenantIdは整数で指定してください。"))
			return
		}
		txs, err = h.store.ListTransactionsByTenant(r.Context(), tenantID)
	} else {
		txs, err = h.store.ListTransactions(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}
