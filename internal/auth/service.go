// Package auth は認証情報の検証、OAuth連携、セッションのライフサイクル管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

// ErrInvalidCredentials は認証失敗を表す。
// 識別子が存在しないのかパスワードが誤っているのかを区別しない
// （ユーザー列挙攻撃の防止）。
var ErrInvalidCredentials = errors.New("invalid credentials")

// Store は認証サービスが必要とするストレージ操作の部分集合。
type Store interface {
	GetUser(ctx context.Context, id int) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	CreateUser(ctx context.Context, in storage.CreateUserInput) (*model.User, error)
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）。発行時点からの固定TTL。
}

// Service は認証に関するビジネスロジックを提供する。
// 検証ストラテジーはすべて明示的なメソッドとして公開する。
type Service struct {
	store  Store
	config ServiceConfig
}

// NewService はServiceを生成する。
func NewService(store Store, config ServiceConfig) *Service {
	return &Service{store: store, config: config}
}

// VerifyEmailPassword はメールアドレスとパスワードでユーザーを検証する。
// メールアドレスは登録時の値と完全一致で照合する。
// ユーザー未存在・パスワード不一致のどちらもErrInvalidCredentialsを返す。
func (s *Service) VerifyEmailPassword(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return s.verifyPassword(user, password)
}

// VerifyUsernamePassword はユーザー名とパスワードでユーザーを検証する。
func (s *Service) VerifyUsernamePassword(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return s.verifyPassword(user, password)
}

// verifyPassword は格納済みハッシュとパスワードを定数時間で比較する。
// パスワードを持たないアカウント（OAuth専用）は常に検証に失敗する。
func (s *Service) verifyPassword(user *model.User, password string) (*model.User, error) {
	if user == nil || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// VerifyOrCreateFromOAuthProfile はOAuthプロバイダーのプロファイルからユーザーを解決する。
//  1. プロバイダーIDに紐付く既存ユーザーがいればそのままログイン。
//  2. プロファイルのメールアドレスが既存ローカルアカウントと一致すればそのアカウントを返す（リンク）。
//  3. どちらもなければrole=clientの新規ユーザーを作成する。ユーザー名は表示名から導出し、
//     衝突時は数値サフィックスで解決する。パスワードは持たない。
func (s *Service) VerifyOrCreateFromOAuthProfile(ctx context.Context, profile *OAuthUserInfo) (*model.User, error) {
	user, err := s.store.GetUserByGoogleID(ctx, profile.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google id: %w", err)
	}
	if user != nil {
		return user, nil
	}

	if profile.Email != "" {
		existing, err := s.store.GetUserByEmail(ctx, profile.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			slog.Info("linking oauth login to existing account",
				slog.Int("user_id", existing.ID),
			)
			return existing, nil
		}
	}

	if profile.Email == "" || profile.Name == "" {
		return nil, fmt.Errorf("oauth profile is missing email or display name")
	}

	username, err := s.uniqueUsername(ctx, profile.Name)
	if err != nil {
		return nil, err
	}

	googleID := profile.ProviderUserID
	created, err := s.store.CreateUser(ctx, storage.CreateUserInput{
		Username: username,
		Email:    profile.Email,
		Name:     profile.Name,
		Role:     model.RoleClient,
		GoogleID: &googleID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	slog.Info("new user created from oauth profile",
		slog.Int("user_id", created.ID),
		slog.String("username", created.Username),
	)
	return created, nil
}

// uniqueUsername は表示名からユーザー名を導出する。
// 空白を除去して小文字化し、既存ユーザーと衝突する間は数値サフィックスを増やす。
func (s *Service) uniqueUsername(ctx context.Context, displayName string) (string, error) {
	base := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	if base == "" {
		base = "user"
	}

	username := base
	for counter := 1; ; counter++ {
		existing, err := s.store.GetUserByUsername(ctx, username)
		if err != nil {
			return "", fmt.Errorf("failed to check username availability: %w", err)
		}
		if existing == nil {
			return username, nil
		}
		username = base + strconv.Itoa(counter)
	}
}

// CreateSession はユーザーIDのみを保持するセッションを発行し永続化する。
// 有効期限は発行時点からの固定TTLで、リクエストごとに延長されない。
func (s *Service) CreateSession(ctx context.Context, userID int) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// ResolvePrincipal はセッションIDからユーザー本体を解決する。
// セッションが無効・期限切れ、またはユーザーが削除済みの場合は(nil, nil)を返す。
func (s *Service) ResolvePrincipal(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
