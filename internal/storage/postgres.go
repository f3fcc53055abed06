package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/propman/internal/model"
)

// PostgresStore はPostgreSQLを使用したStore実装。
// 直列化・行ロックはデータベース側の保証に委ねる。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, username, email, name, phone, password_hash, role, google_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Name, &user.Phone,
		&user.PasswordHash, &user.Role, &user.GoogleID, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUser は指定IDのユーザーを取得する。見つからない場合は(nil, nil)を返す。
func (s *PostgresStore) GetUser(ctx context.Context, id int) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByUsername はユーザー名でユーザーを検索する。
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// GetUserByEmail はメールアドレスでユーザーを検索する。
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetUserByGoogleID はGoogleアカウントIDでユーザーを検索する。
func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

// ListUsers は全ユーザーをID昇順で返す。
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser はユーザーを作成する。平文パスワードは格納前にbcryptハッシュ化する。
// ユニーク制約違反はErrDuplicate*にマップして返す。
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, name, phone, password_hash, role, google_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+userColumns,
		in.Username, in.Email, in.Name, in.Phone, hash, in.Role, in.GoogleID,
	).Scan(
		&user.ID, &user.Username, &user.Email, &user.Name, &user.Phone,
		&user.PasswordHash, &user.Role, &user.GoogleID, &user.CreatedAt,
	)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// mapUniqueViolation はユニーク制約違反を対応する重複エラーへ変換する。
// 対象外のエラーの場合はnilを返す。
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_google_id_key":
		return ErrDuplicateGoogleID
	default:
		return nil
	}
}

const propertyColumns = `id, name, address, city, district, status, type, price,
	bedrooms, bathrooms, size, latitude, longitude, created_at`

func scanProperty(row interface{ Scan(...any) error }) (*model.Property, error) {
	p := &model.Property{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Address, &p.City, &p.District, &p.Status, &p.Type, &p.Price,
		&p.Bedrooms, &p.Bathrooms, &p.Size, &p.Latitude, &p.Longitude, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return p, nil
}

// GetProperty は指定IDの物件を取得する。見つからない場合は(nil, nil)を返す。
func (s *PostgresStore) GetProperty(ctx context.Context, id int) (*model.Property, error) {
	return scanProperty(s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
}

// ListProperties は全物件をID昇順で返す。
func (s *PostgresStore) ListProperties(ctx context.Context) ([]*model.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var props []*model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// CreateProperty は物件を作成する。
func (s *PostgresStore) CreateProperty(ctx context.Context, in CreatePropertyInput) (*model.Property, error) {
	return scanProperty(s.db.QueryRowContext(ctx,
		`INSERT INTO properties (name, address, city, district, status, type, price,
		  bedrooms, bathrooms, size, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+propertyColumns,
		in.Name, in.Address, in.City, in.District, in.Status, in.Type, in.Price,
		in.Bedrooms, in.Bathrooms, in.Size, in.Latitude, in.Longitude,
	))
}

const apartmentColumns = `id, property_id, number, tenant_id, status, price`

func scanApartment(row interface{ Scan(...any) error }) (*model.Apartment, error) {
	a := &model.Apartment{}
	err := row.Scan(&a.ID, &a.PropertyID, &a.Number, &a.TenantID, &a.Status, &a.Price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan apartment: %w", err)
	}
	return a, nil
}

// GetApartment は指定IDの部屋を取得する。見つからない場合は(nil, nil)を返す。
func (s *PostgresStore) GetApartment(ctx context.Context, id int) (*model.Apartment, error) {
	return scanApartment(s.db.QueryRowContext(ctx,
		`SELECT `+apartmentColumns+` FROM apartments WHERE id = $1`, id))
}

// ListApartmentsByProperty は指定物件の部屋一覧をID昇順で返す。
func (s *PostgresStore) ListApartmentsByProperty(ctx context.Context, propertyID int) ([]*model.Apartment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apartmentColumns+` FROM apartments WHERE property_id = $1 ORDER BY id`,
		propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list apartments: %w", err)
	}
	defer rows.Close()

	var apartments []*model.Apartment
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, err
		}
		apartments = append(apartments, a)
	}
	return apartments, rows.Err()
}

// CreateApartment は部屋を作成する。
func (s *PostgresStore) CreateApartment(ctx context.Context, in CreateApartmentInput) (*model.Apartment, error) {
	return scanApartment(s.db.QueryRowContext(ctx,
		`INSERT INTO apartments (property_id, number, tenant_id, status, price)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+apartmentColumns,
		in.PropertyID, in.Number, in.TenantID, in.Status, in.Price,
	))
}

const taskColumns = `id, title, description, status, priority, type, property_id,
	apartment_id, assigned_to_id, reported_by_id, due_date, created_at, completed_at`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	t := &model.Task{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Type, &t.PropertyID,
		&t.ApartmentID, &t.AssignedToID, &t.ReportedByID, &t.DueDate, &t.CreatedAt, &t.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return t, nil
}

// GetTask は指定IDのタスクを取得する。見つからない場合は(nil, nil)を返す。
func (s *PostgresStore) GetTask(ctx context.Context, id int) (*model.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListTasks は全タスクをID昇順で返す。
func (s *PostgresStore) ListTasks(ctx context.Context) ([]*model.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

// ListTasksByProperty は指定物件のタスク一覧を返す。
func (s *PostgresStore) ListTasksByProperty(ctx context.Context, propertyID int) ([]*model.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE property_id = $1 ORDER BY id`, propertyID)
}

// ListTasksByAssignee は指定ユーザーに割り当てられたタスク一覧を返す。
func (s *PostgresStore) ListTasksByAssignee(ctx context.Context, userID int) ([]*model.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assigned_to_id = $1 ORDER BY id`, userID)
}

func (s *PostgresStore) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask はタスクを作成する。
func (s *PostgresStore) CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, type, property_id,
		  apartment_id, assigned_to_id, reported_by_id, due_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+taskColumns,
		in.Title, in.Description, in.Status, in.Priority, in.Type, in.PropertyID,
		in.ApartmentID, in.AssignedToID, in.ReportedByID, in.DueDate,
	))
}

// UpdateTaskStatus はタスク状態を更新する。
// completedへの遷移で未設定の場合のみcompleted_atを設定し、
// 他の状態へ戻しても既存のcompleted_atは保持する。
// タスクが存在しない場合は(nil, nil)を返す。
func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id int, status model.TaskStatus) (*model.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET status = $2,
		     completed_at = CASE WHEN $2 = 'completed' THEN COALESCE(completed_at, now())
		                         ELSE completed_at END
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, status,
	))
}

const transactionColumns = `id, tenant_id, apartment_id, property_id, type, amount,
	payment_method, description, notes, processed_by_id, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	t := &model.Transaction{}
	err := row.Scan(
		&t.ID, &t.TenantID, &t.ApartmentID, &t.PropertyID, &t.Type, &t.Amount,
		&t.PaymentMethod, &t.Description, &t.Notes, &t.ProcessedByID, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return t, nil
}

// GetTransaction は指定IDの取引を取得する。見つからない場合は(nil, nil)を返す。
func (s *PostgresStore) GetTransaction(ctx context.Context, id int) (*model.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// ListTransactions は全取引をID昇順で返す。
func (s *PostgresStore) ListTransactions(ctx context.Context) ([]*model.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
}

// ListTransactionsByTenant は指定入居者の取引一覧を返す。
func (s *PostgresStore) ListTransactionsByTenant(ctx context.Context, tenantID int) ([]*model.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE tenant_id = $1 ORDER BY id`,
		tenantID)
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// CreateTransaction は取引を作成する。
func (s *PostgresStore) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*model.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx,
		`INSERT INTO transactions (tenant_id, apartment_id, property_id, type, amount,
		  payment_method, description, notes, processed_by_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+transactionColumns,
		in.TenantID, in.ApartmentID, in.PropertyID, in.Type, in.Amount,
		in.PaymentMethod, in.Description, in.Notes, in.ProcessedByID,
	))
}

const activityColumns = `id, user_id, action, entity_type, entity_id, details, created_at`

func scanActivity(row interface{ Scan(...any) error }) (*model.Activity, error) {
	a := &model.Activity{}
	err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID, &a.Details, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	return a, nil
}

// ListActivities は監査レコードを作成日時の降順で返す。
// limit > 0の場合、新しい方からlimit件のみ返す。
func (s *PostgresStore) ListActivities(ctx context.Context, limit int) ([]*model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// CreateActivity は監査レコードを追記する。
func (s *PostgresStore) CreateActivity(ctx context.Context, in CreateActivityInput) (*model.Activity, error) {
	return scanActivity(s.db.QueryRowContext(ctx,
		`INSERT INTO activities (user_id, action, entity_type, entity_id, details)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+activityColumns,
		in.UserID, in.Action, in.EntityType, in.EntityID, in.Details,
	))
}

// CreateSession はセッションを作成する。
func (s *PostgresStore) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession は指定IDのセッションを取得する。期限切れの場合は(nil, nil)を返す。
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// DeleteSession は指定IDのセッションを削除する。
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SeedIfEmpty はusersテーブルが空の場合のみサンプルデータを投入する。
// 起動時に1回だけ呼ばれ、再入されない前提。
func (s *PostgresStore) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	return runSeed(ctx, s)
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
