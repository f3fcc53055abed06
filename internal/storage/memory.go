package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/propman/internal/model"
)

// MemStore はStoreのインメモリ実装。
// エンティティ種別ごとの単調増加カウンターでIDを払い出し、
// マップでO(1)のID検索を提供する。開発・テスト用のフォールバック。
// 全操作を単一のミューテックスで直列化する。
type MemStore struct {
	mu sync.Mutex

	users        map[int]*model.User
	properties   map[int]*model.Property
	apartments   map[int]*model.Apartment
	tasks        map[int]*model.Task
	transactions map[int]*model.Transaction
	activities   map[int]*model.Activity
	sessions     map[string]*model.Session

	nextUserID        int
	nextPropertyID    int
	nextApartmentID   int
	nextTaskID        int
	nextTransactionID int
	nextActivityID    int

	// テストで時刻を固定するためのフック。
	now func() time.Time
}

// NewMemStore は空のMemStoreを生成する。
func NewMemStore() *MemStore {
	return &MemStore{
		users:             make(map[int]*model.User),
		properties:        make(map[int]*model.Property),
		apartments:        make(map[int]*model.Apartment),
		tasks:             make(map[int]*model.Task),
		transactions:      make(map[int]*model.Transaction),
		activities:        make(map[int]*model.Activity),
		sessions:          make(map[string]*model.Session),
		nextUserID:        1,
		nextPropertyID:    1,
		nextApartmentID:   1,
		nextTaskID:        1,
		nextTransactionID: 1,
		nextActivityID:    1,
		now:               time.Now,
	}
}

// NewSeededMemStore はサンプルデータを投入済みのMemStoreを生成する。
// シードに失敗した場合でもストア自体は使用可能な状態で返す。
func NewSeededMemStore(ctx context.Context) (*MemStore, error) {
	s := NewMemStore()
	if err := runSeed(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// --- User ---

// GetUser は指定IDのユーザーを取得する。見つからない場合は(nil, nil)を返す。
func (s *MemStore) GetUser(_ context.Context, id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.users[id]), nil
}

// GetUserByUsername はユーザー名でユーザーを検索する。
func (s *MemStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.findUserLocked(func(u *model.User) bool { return u.Username == username })), nil
}

// GetUserByEmail はメールアドレスでユーザーを検索する。
func (s *MemStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.findUserLocked(func(u *model.User) bool { return u.Email == email })), nil
}

// GetUserByGoogleID はGoogleアカウントIDでユーザーを検索する。
func (s *MemStore) GetUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.findUserLocked(func(u *model.User) bool {
		return u.GoogleID != nil && *u.GoogleID == googleID
	})), nil
}

// ListUsers は全ユーザーをID昇順で返す。
func (s *MemStore) ListUsers(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreateUser はユーザーを作成する。重複時は行を作成せずErrDuplicate*を返す。
func (s *MemStore) CreateUser(_ context.Context, in CreateUserInput) (*model.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findUserLocked(func(u *model.User) bool { return u.Username == in.Username }) != nil {
		return nil, ErrDuplicateUsername
	}
	if s.findUserLocked(func(u *model.User) bool { return u.Email == in.Email }) != nil {
		return nil, ErrDuplicateEmail
	}
	if in.GoogleID != nil {
		if s.findUserLocked(func(u *model.User) bool {
			return u.GoogleID != nil && *u.GoogleID == *in.GoogleID
		}) != nil {
			return nil, ErrDuplicateGoogleID
		}
	}

	user := &model.User{
		ID:           s.nextUserID,
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         in.Role,
		GoogleID:     in.GoogleID,
		CreatedAt:    s.now(),
	}
	s.nextUserID++
	s.users[user.ID] = user
	return copyUser(user), nil
}

// UserCount はテスト用に現在のユーザー行数を返す。
func (s *MemStore) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *MemStore) findUserLocked(match func(*model.User) bool) *model.User {
	for _, u := range s.users {
		if match(u) {
			return u
		}
	}
	return nil
}

// --- Property ---

// GetProperty は指定IDの物件を取得する。見つからない場合は(nil, nil)を返す。
func (s *MemStore) GetProperty(_ context.Context, id int) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.properties[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// ListProperties は全物件をID昇順で返す。
func (s *MemStore) ListProperties(_ context.Context) ([]*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := make([]*model.Property, 0, len(s.properties))
	for _, p := range s.properties {
		cp := *p
		props = append(props, &cp)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].ID < props[j].ID })
	return props, nil
}

// CreateProperty は物件を作成する。
func (s *MemStore) CreateProperty(_ context.Context, in CreatePropertyInput) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	property := &model.Property{
		ID:        s.nextPropertyID,
		Name:      in.Name,
		Address:   in.Address,
		City:      in.City,
		District:  in.District,
		Status:    in.Status,
		Type:      in.Type,
		Price:     in.Price,
		Bedrooms:  in.Bedrooms,
		Bathrooms: in.Bathrooms,
		Size:      in.Size,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		CreatedAt: s.now(),
	}
	s.nextPropertyID++
	s.properties[property.ID] = property
	cp := *property
	return &cp, nil
}

// --- Apartment ---

// GetApartment は指定IDの部屋を取得する。見つからない場合は(nil, nil)を返す。
func (s *MemStore) GetApartment(_ context.Context, id int) (*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.apartments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

// ListApartmentsByProperty は指定物件の部屋一覧をID昇順で返す。
func (s *MemStore) ListApartmentsByProperty(_ context.Context, propertyID int) ([]*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Apartment
	for _, a := range s.apartments {
		if a.PropertyID == propertyID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateApartment は部屋を作成する。
func (s *MemStore) CreateApartment(_ context.Context, in CreateApartmentInput) (*model.Apartment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apartment := &model.Apartment{
		ID:         s.nextApartmentID,
		PropertyID: in.PropertyID,
		Number:     in.Number,
		TenantID:   in.TenantID,
		Status:     in.Status,
		Price:      in.Price,
	}
	s.nextApartmentID++
	s.apartments[apartment.ID] = apartment
	cp := *apartment
	return &cp, nil
}

// --- Task ---

// GetTask は指定IDのタスクを取得する。見つからない場合は(nil, nil)を返す。
func (s *MemStore) GetTask(_ context.Context, id int) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

// ListTasks は全タスクをID昇順で返す。
func (s *MemStore) ListTasks(_ context.Context) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTasksLocked(func(*model.Task) bool { return true }), nil
}

// ListTasksByProperty は指定物件のタスク一覧を返す。
func (s *MemStore) ListTasksByProperty(_ context.Context, propertyID int) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTasksLocked(func(t *model.Task) bool { return t.PropertyID == propertyID }), nil
}

// ListTasksByAssignee は指定ユーザーに割り当てられたタスク一覧を返す。
func (s *MemStore) ListTasksByAssignee(_ context.Context, userID int) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTasksLocked(func(t *model.Task) bool {
		return t.AssignedToID != nil && *t.AssignedToID == userID
	}), nil
}

func (s *MemStore) listTasksLocked(match func(*model.Task) bool) []*model.Task {
	var result []*model.Task
	for _, t := range s.tasks {
		if match(t) {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CreateTask はタスクを作成する。CompletedAtは常にnilで開始する。
func (s *MemStore) CreateTask(_ context.Context, in CreateTaskInput) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &model.Task{
		ID:           s.nextTaskID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		Type:         in.Type,
		PropertyID:   in.PropertyID,
		ApartmentID:  in.ApartmentID,
		AssignedToID: in.AssignedToID,
		ReportedByID: in.ReportedByID,
		DueDate:      in.DueDate,
		CreatedAt:    s.now(),
	}
	s.nextTaskID++
	s.tasks[task.ID] = task
	cp := *task
	return &cp, nil
}

// UpdateTaskStatus はタスク状態を更新する。
// completedへの遷移で未設定の場合のみCompletedAtを設定し、
// 他の状態へ戻しても既存のCompletedAtは保持する。
func (s *MemStore) UpdateTaskStatus(_ context.Context, id int, status model.TaskStatus) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	task.Status = status
	if status == model.TaskStatusCompleted && task.CompletedAt == nil {
		now := s.now()
		task.CompletedAt = &now
	}
	cp := *task
	return &cp, nil
}

// --- Transaction ---

// GetTransaction は指定IDの取引を取得する。見つからない場合は(nil, nil)を返す。
func (s *MemStore) GetTransaction(_ context.Context, id int) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transactions[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

// ListTransactions は全取引をID昇順で返す。
func (s *MemStore) ListTransactions(_ context.Context) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTransactionsLocked(func(*model.Transaction) bool { return true }), nil
}

// ListTransactionsByTenant は指定入居者の取引一覧を返す。
func (s *MemStore) ListTransactionsByTenant(_ context.Context, tenantID int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTransactionsLocked(func(t *model.Transaction) bool { return t.TenantID == tenantID }), nil
}

func (s *MemStore) listTransactionsLocked(match func(*model.Transaction) bool) []*model.Transaction {
	var result []*model.Transaction
	for _, t := range s.transactions {
		if match(t) {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CreateTransaction は取引を作成する。
func (s *MemStore) CreateTransaction(_ context.Context, in CreateTransactionInput) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transaction := &model.Transaction{
		ID:            s.nextTransactionID,
		TenantID:      in.TenantID,
		ApartmentID:   in.ApartmentID,
		PropertyID:    in.PropertyID,
		Type:          in.Type,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Description:   in.Description,
		Notes:         in.Notes,
		ProcessedByID: in.ProcessedByID,
		CreatedAt:     s.now(),
	}
	s.nextTransactionID++
	s.transactions[transaction.ID] = transaction
	cp := *transaction
	return &cp, nil
}

// --- Activity ---

// ListActivities は監査レコードを作成日時の降順で返す。
// limit > 0の場合、新しい方からlimit件のみ返す。
func (s *MemStore) ListActivities(_ context.Context, limit int) ([]*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activities := make([]*model.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		cp := *a
		activities = append(activities, &cp)
	}
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].ID > activities[j].ID
		}
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

// CreateActivity は監査レコードを追記する。
func (s *MemStore) CreateActivity(_ context.Context, in CreateActivityInput) (*model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity := &model.Activity{
		ID:         s.nextActivityID,
		UserID:     in.UserID,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Details:    in.Details,
		CreatedAt:  s.now(),
	}
	s.nextActivityID++
	s.activities[activity.ID] = activity
	cp := *activity
	return &cp, nil
}

// --- Session ---

// CreateSession はセッションを作成する。
func (s *MemStore) CreateSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession は指定IDのセッションを取得する。期限切れの場合は(nil, nil)を返す。
func (s *MemStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if !session.ExpiresAt.After(s.now()) {
		delete(s.sessions, id)
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

// DeleteSession は指定IDのセッションを削除する。存在しない場合も成功扱い。
func (s *MemStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// compile-time interface check
var _ Store = (*MemStore)(nil)
