// Package storage はエンティティ永続化の能力インターフェースと
// 差し替え可能な2実装（インメモリ / PostgreSQL）を提供する。
// 呼び出し側はStoreインターフェースのみに依存し、実装は起動時に1回選択される。
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/propman/internal/model"
)

// 重複エラー。ユニーク制約違反を実装非依存に通知する。
var (
	ErrDuplicateUsername = errors.New("username already in use")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrDuplicateGoogleID = errors.New("google id already linked")
)

// CreateUserInput はユーザー作成の入力。
// Passwordは平文で受け取り、ストレージ層がbcryptハッシュ化してから格納する。
// OAuth経由のユーザーはPasswordを空にする。
type CreateUserInput struct {
	Username string
	Password string
	Email    string
	Name     string
	Phone    string
	Role     model.Role
	GoogleID *string
}

// CreatePropertyInput は物件作成の入力。
type CreatePropertyInput struct {
	Name      string
	Address   string
	City      string
	District  string
	Status    string
	Type      string
	Price     int
	Bedrooms  int
	Bathrooms int
	Size      int
	Latitude  float64
	Longitude float64
}

// CreateApartmentInput は部屋作成の入力。
type CreateApartmentInput struct {
	PropertyID int
	Number     string
	TenantID   *int
	Status     string
	Price      int
}

// CreateTaskInput はタスク作成の入力。
type CreateTaskInput struct {
	Title        string
	Description  string
	Status       model.TaskStatus
	Priority     model.TaskPriority
	Type         string
	PropertyID   int
	ApartmentID  *int
	AssignedToID *int
	ReportedByID int
	DueDate      *time.Time
}

// CreateTransactionInput は取引作成の入力。Amountはセント単位。
type CreateTransactionInput struct {
	TenantID      int
	ApartmentID   *int
	PropertyID    int
	Type          string
	Amount        int
	PaymentMethod string
	Description   string
	Notes         string
	ProcessedByID int
}

// CreateActivityInput は監査レコード作成の入力。
type CreateActivityInput struct {
	UserID     int
	Action     string
	EntityType string
	EntityID   int
	Details    string
}

// Store はエンティティごとの取得・一覧・作成操作と、
// タスクの状態遷移、追記専用の監査ログ、セッション管理を公開する。
// 取得系はIDが存在しない場合、エラーではなく(nil, nil)を返す。
type Store interface {
	// User
	GetUser(ctx context.Context, id int) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	// CreateUser はユーザーを作成する。平文パスワードは格納前にハッシュ化される。
	// username/email/google idの重複時はErrDuplicate*を返し、行は作成されない。
	CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error)

	// Property
	GetProperty(ctx context.Context, id int) (*model.Property, error)
	ListProperties(ctx context.Context) ([]*model.Property, error)
	CreateProperty(ctx context.Context, in CreatePropertyInput) (*model.Property, error)

	// Apartment
	GetApartment(ctx context.Context, id int) (*model.Apartment, error)
	ListApartmentsByProperty(ctx context.Context, propertyID int) ([]*model.Apartment, error)
	CreateApartment(ctx context.Context, in CreateApartmentInput) (*model.Apartment, error)

	// Task
	GetTask(ctx context.Context, id int) (*model.Task, error)
	ListTasks(ctx context.Context) ([]*model.Task, error)
	ListTasksByProperty(ctx context.Context, propertyID int) ([]*model.Task, error)
	ListTasksByAssignee(ctx context.Context, userID int) ([]*model.Task, error)
	CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error)
	// UpdateTaskStatus はタスクの状態を更新する。completedへの遷移で
	// CompletedAtを設定する。completedから戻してもCompletedAtは保持する。
	// タスクが存在しない場合は(nil, nil)を返す。
	UpdateTaskStatus(ctx context.Context, id int, status model.TaskStatus) (*model.Task, error)

	// Transaction
	GetTransaction(ctx context.Context, id int) (*model.Transaction, error)
	ListTransactions(ctx context.Context) ([]*model.Transaction, error)
	ListTransactionsByTenant(ctx context.Context, tenantID int) ([]*model.Transaction, error)
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*model.Transaction, error)

	// Activity（追記専用監査ログ）
	// ListActivitiesは作成日時の降順で返す。limit > 0の場合は先頭limit件のみ。
	ListActivities(ctx context.Context, limit int) ([]*model.Activity, error)
	CreateActivity(ctx context.Context, in CreateActivityInput) (*model.Activity, error)

	// Session
	CreateSession(ctx context.Context, session *model.Session) error
	// GetSession は期限切れセッションを(nil, nil)として扱う。
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// hashPassword は平文パスワードをbcryptでハッシュ化する。
// 空文字列（OAuthユーザー等のパスワードなし）はnilを返す。
func hashPassword(plain string) (*string, error) {
	if plain == "" {
		return nil, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	s := string(hashed)
	return &s, nil
}
