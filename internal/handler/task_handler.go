package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/priority"
	"github.com/hitoshi/propman/internal/security"
	"github.com/hitoshi/propman/internal/storage"
)

// TaskHandler はタスク管理のHTTPハンドラー。
// 自由記述フィールドは格納前にサニタイズする。
type TaskHandler struct {
	store     storage.Store
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(store storage.Store, sanitizer security.ContentSanitizerService, collector metrics.MetricsCollector) *TaskHandler {
	return &TaskHandler{store: store, sanitizer: sanitizer, metrics: collector}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Type         string     `json:"type"`
	PropertyID   int        `json:"propertyId"`
	ApartmentID  *int       `json:"apartmentId"`
	AssignedToID *int       `json:"assignedToId"`
	DueDate      *time.Time `json:"dueDate"`
}

// updateTaskStatusRequest はタスク状態更新リクエストのボディ。
type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

// suggestPriorityRequest は優先度推定リクエストのボディ。
type suggestPriorityRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Type         string     `json:"type"`
	PropertyID   int        `json:"propertyId"`
	ApartmentID  *int       `json:"apartmentId"`
	AssignedToID *int       `json:"assignedToId"`
	ReportedByID int        `json:"reportedById"`
	DueDate      *time.Time `json:"dueDate"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		Type:         t.Type,
		PropertyID:   t.PropertyID,
		ApartmentID:  t.ApartmentID,
		AssignedToID: t.AssignedToID,
		ReportedByID: t.ReportedByID,
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		CompletedAt:  t.CompletedAt,
	}
}

// Create はタスクを登録する。
// POST /api/tasks
// 優先度が未指定の場合はキーワード解析による推定値を使う。
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	title := h.sanitizer.Sanitize(req.Title)
	description := h.sanitizer.Sanitize(req.Description)

	if title == "" || req.PropertyID == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("タイトルと物件IDは必須です。"))
		return
	}

	status := model.TaskStatus(req.Status)
	if req.Status == "" {
		status = model.TaskStatusOpen
	}
	if !model.ValidTaskStatus(status) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("指定されたタスク状態は定義されていません。"))
		return
	}

	taskPriority := model.TaskPriority(req.Priority)
	if req.Priority == "" {
		taskPriority = priority.Suggest(title, description).Priority
	}
	if !model.ValidTaskPriority(taskPriority) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("指定された優先度は定義されていません。"))
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

	task, err := h.store.CreateTask(r.Context(), storage.CreateTaskInput{
		Title:        title,
		Description:  description,
		Status:       status,
		Priority:     taskPriority,
		Type:         req.Type,
		PropertyID:   req.PropertyID,
		ApartmentID:  req.ApartmentID,
		AssignedToID: req.AssignedToID,
		ReportedByID: p.UserID,
		DueDate:      req.DueDate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     p.UserID,
		Action:     "created",
		EntityType: "task",
		EntityID:   task.ID,
		Details:    "タスク " + task.Title + " を登録",
	})

	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// List はタスクを一覧する。
// GET /api/tasks?propertyId=N / ?assignedToId=N
// フィルターは同時指定不可。両方指定された場合はpropertyIdを優先する。
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*model.Task
		err   error
	)

	switch {
	case r.URL.Query().Get("propertyId") != "":
		propertyID, convErr := strconv.Atoi(r.URL.Query().Get("propertyId"))
		if convErr != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("propertyIdは整数で指定してください。"))
			return
		}
		tasks, err = h.store.ListTasksByProperty(r.Context(), propertyID)
	case r.URL.Query().Get("assignedToId") != "":
		assigneeID, convErr := strconv.Atoi(r.URL.Query().Get("assignedToId"))
		if convErr != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("assignedToIdは整数で指定してください。"))
			return
		}
		tasks, err = h.store.ListTasksByAssignee(r.Context(), assigneeID)
	default:
		tasks, err = h.store.ListTasks(r.Context())
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus はタスクの状態を遷移させる。
// PATCH /api/tasks/{id}/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("タスクIDは整数で指定してください。"))
		return
	}

	var req updateTaskStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	status := model.TaskStatus(req.Status)
	if !model.ValidTaskStatus(status) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("指定されたタスク状態は定義されていません。"))
		return
	}

	task, err := h.store.UpdateTaskStatus(r.Context(), id, status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("タスク"))
		return
	}

	recordActivity(r.Context(), h.store, h.metrics, storage.CreateActivityInput{
		UserID:     p.UserID,
		Action:     "status_changed",
		EntityType: "task",
		EntityID:   task.ID,
		Details:    "タスク " + task.Title + " を " + string(status) + " に変更",
	})

	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

// SuggestPriority はタイトルと説明文から優先度を推定して返す。
// POST /api/tasks/suggest-priority
// 推定結果は保存しない（タスク作成時に優先度未指定なら同じ推定が適用される）。
func (h *TaskHandler) SuggestPriority(w http.ResponseWriter, r *http.Request) {
	var req suggestPriorityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	suggestion := priority.Suggest(req.Title, req.Description)
	if h.metrics != nil {
		h.metrics.RecordPrioritySuggestion(string(suggestion.Priority))
	}

	writeJSON(w, http.StatusOK, suggestion)
}
