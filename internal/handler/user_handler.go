package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	store   storage.Store
	metrics metrics.MetricsCollector
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(store storage.Store, collector metrics.MetricsCollector) *UserHandler {
	return &UserHandler{store: store, metrics: collector}
}

// createUserRequest はユーザー登録リクエストのボディ。
type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Create はユーザーを登録する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" || req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ユーザー名、パスワード、メールアドレス、氏名は必須です。"))
		return
	}
	role := model.Role(req.Role)
	if req.Role == "" {
		role = model.RoleClient
	}
	if !model.ValidRole(role) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("指定されたロールは定義されていません。"))
		return
	}

	user, err := h.store.CreateUser(r.Context(), storage.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     role,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateUsername):
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateUserError("ユーザー名"))
		case errors.Is(err, storage.ErrDuplicateEmail):
			writeAPIErrorResponse(w, http.StatusConflict, model.NewDuplicateUserError("メールアドレス"))
		default:
			handleServiceError(w, err)
		}
		return
	}

	slog.Info("user registered",
		slog.Int("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     user.ID,
		Action:     "created",
		EntityType: "user",
		EntityID:   user.ID,
		Details:    "ユーザー " + user.Username + " を登録",
	})

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// List は全ユーザーを一覧する。
// GET /api/users （owner / caretakerのみ）
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}
