// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

// 定義済みロール
const (
	RoleClient     Role = "client"
	RoleOwner      Role = "owner"
	RoleCaretaker  Role = "caretaker"
	RoleContractor Role = "contractor"
	RoleHandyman   Role = "handyman"
)

// ValidRole はロール値が定義済みかどうかを判定する。
func ValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleOwner, RoleCaretaker, RoleContractor, RoleHandyman:
		return true
	default:
		return false
	}
}

// TaskStatus はタスクの状態を表す。
type TaskStatus string

// タスク状態。open → in_progress → completed を想定するが、
// 逆方向の遷移（再オープン）も禁止しない。
const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatus はタスク状態値が定義済みかどうかを判定する。
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

// 定義済み優先度
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ValidTaskPriority は優先度値が定義済みかどうかを判定する。
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// User はサービス利用ユーザーを表す。
// PasswordHashはbcrypt済みハッシュのみを保持し、平文は決して格納しない。
// OAuth経由で作成されたユーザーはPasswordHashがnilになる。
type User struct {
	ID           int
	Username     string
	Email        string
	Name         string
	Phone        string
	PasswordHash *string
	Role         Role
	GoogleID     *string
	CreatedAt    time.Time
}

// Property は管理対象の物件を表す。
type Property struct {
	ID        int
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
	CreatedAt time.Time
}

// Apartment は物件内の一室を表す。TenantIDは入居者がいない場合nil。
type Apartment struct {
	ID         int
	PropertyID int
	Number     string
	TenantID   *int
	Status     string
	Price      int
}

// Task は保守・運用タスクを表す。
// CompletedAtはステータスがcompletedになった時点で設定される。
// completedから別ステータスへ戻してもCompletedAtはクリアしない。
type Task struct {
	ID           int
	Title        string
	Description  string
	Status       TaskStatus
	Priority     TaskPriority
	Type         string
	PropertyID   int
	ApartmentID  *int
	AssignedToID *int
	ReportedByID int
	DueDate      *time.Time
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Transaction は入金・支払いの取引を表す。Amountはセント単位。
type Transaction struct {
	ID            int
	TenantID      int
	ApartmentID   *int
	PropertyID    int
	Type          string
	Amount        int
	PaymentMethod string
	Description   string
	Notes         string
	ProcessedByID int
	CreatedAt     time.Time
}

// Activity は状態変更操作の追記専用監査レコードを表す。
type Activity struct {
	ID         int
	UserID     int
	Action     string
	EntityType string
	EntityID   int
	Details    string
	CreatedAt  time.Time
}

// Session はユーザーのログインセッションを表す。
// 永続化されるのはユーザーIDのみで、ユーザー本体はリクエストごとに解決する。
// 有効期限は発行時点から固定TTL（既定24時間）。
type Session struct {
	ID        string
	UserID    int
	ExpiresAt time.Time
	CreatedAt time.Time
}
