package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	return NewService(store, ServiceConfig{SessionMaxAge: 86400}), store
}

func createTestUser(t *testing.T, store *storage.MemStore, username, email, password string) *model.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), storage.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		Name:     "Test User",
		Role:     model.RoleClient,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestVerifyEmailPassword_Success(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "alice", "alice@example.com", "secret123")

	user, err := svc.VerifyEmailPassword(context.Background(), "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("VerifyEmailPassword failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %d, want %d", user.ID, created.ID)
	}
}

func TestVerifyEmailPassword_MixedCaseEmail(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "alice", "Alice@Example.com", "secret123")

	// 登録時のメールアドレスそのままでログインできること
	user, err := svc.VerifyEmailPassword(context.Background(), "Alice@Example.com", "secret123")
	if err != nil {
		t.Fatalf("VerifyEmailPassword failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %d, want %d", user.ID, created.ID)
	}

	// 照合は完全一致であり、別表記は別の識別子として扱う
	_, err = svc.VerifyEmailPassword(context.Background(), "alice@example.com", "secret123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyEmailPassword_WrongPassword(t *testing.T) {
	svc, store := newTestService(t)
	createTestUser(t, store, "alice", "alice@example.com", "secret123")

	_, err := svc.VerifyEmailPassword(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyEmailPassword_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyEmailPassword(context.Background(), "nobody@example.com", "secret123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyUsernamePassword_Success(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "bob", "bob@example.com", "hunter22")

	user, err := svc.VerifyUsernamePassword(context.Background(), "bob", "hunter22")
	if err != nil {
		t.Fatalf("VerifyUsernamePassword failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %d, want %d", user.ID, created.ID)
	}
}

func TestVerifyUsernamePassword_OAuthOnlyUserAlwaysFails(t *testing.T) {
	svc, store := newTestService(t)
	googleID := "google-sub-1"
	_, err := store.CreateUser(context.Background(), storage.CreateUserInput{
		Username: "oauthonly",
		Email:    "oauth@example.com",
		Name:     "OAuth Only",
		Role:     model.RoleClient,
		GoogleID: &googleID,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err = svc.VerifyUsernamePassword(context.Background(), "oauthonly", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyOrCreateFromOAuthProfile_ExistingGoogleID(t *testing.T) {
	svc, store := newTestService(t)
	googleID := "google-sub-42"
	created, err := store.CreateUser(context.Background(), storage.CreateUserInput{
		Username: "carol",
		Email:    "carol@example.com",
		Name:     "Carol",
		Role:     model.RoleOwner,
		GoogleID: &googleID,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := svc.VerifyOrCreateFromOAuthProfile(context.Background(), &OAuthUserInfo{
		ProviderUserID: googleID,
		Email:          "carol@example.com",
		Name:           "Carol",
		Provider:       "google",
	})
	if err != nil {
		t.Fatalf("VerifyOrCreateFromOAuthProfile failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %d, want %d", user.ID, created.ID)
	}
	if user.Role != model.RoleOwner {
		t.Errorf("role = %s, want owner (role must not change on login)", user.Role)
	}
}

func TestVerifyOrCreateFromOAuthProfile_LinksByEmail(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "dave", "dave@example.com", "pass1234")

	user, err := svc.VerifyOrCreateFromOAuthProfile(context.Background(), &OAuthUserInfo{
		ProviderUserID: "google-sub-99",
		Email:          "dave@example.com",
		Name:           "Dave",
		Provider:       "google",
	})
	if err != nil {
		t.Fatalf("VerifyOrCreateFromOAuthProfile failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %d, want existing %d", user.ID, created.ID)
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount = %d, want 1 (no new user on email link)", store.UserCount())
	}
}

func TestVerifyOrCreateFromOAuthProfile_CreatesNewClient(t *testing.T) {
	svc, store := newTestService(t)

	user, err := svc.VerifyOrCreateFromOAuthProfile(context.Background(), &OAuthUserInfo{
		ProviderUserID: "google-sub-7",
		Email:          "jane@example.com",
		Name:           "Jane Doe",
		Provider:       "google",
	})
	if err != nil {
		t.Fatalf("VerifyOrCreateFromOAuthProfile failed: %v", err)
	}
	if user.Username != "janedoe" {
		t.Errorf("username = %q, want janedoe", user.Username)
	}
	if user.Role != model.RoleClient {
		t.Errorf("role = %s, want client", user.Role)
	}
	if user.PasswordHash != nil {
		t.Error("oauth user must not have a password hash")
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount = %d, want 1", store.UserCount())
	}
}

func TestVerifyOrCreateFromOAuthProfile_UsernameCollision(t *testing.T) {
	svc, store := newTestService(t)
	createTestUser(t, store, "janedoe", "other@example.com", "pass1234")

	user, err := svc.VerifyOrCreateFromOAuthProfile(context.Background(), &OAuthUserInfo{
		ProviderUserID: "google-sub-8",
		Email:          "jane@example.com",
		Name:           "Jane Doe",
		Provider:       "google",
	})
	if err != nil {
		t.Fatalf("VerifyOrCreateFromOAuthProfile failed: %v", err)
	}
	if user.Username != "janedoe1" {
		t.Errorf("username = %q, want janedoe1", user.Username)
	}
}

func TestVerifyOrCreateFromOAuthProfile_MissingProfileFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyOrCreateFromOAuthProfile(context.Background(), &OAuthUserInfo{
		ProviderUserID: "google-sub-9",
		Provider:       "google",
	})
	if err == nil {
		t.Error("expected error for profile without email and name")
	}
}

func TestCreateSession_AndResolvePrincipal(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "eve", "eve@example.com", "pass1234")

	session, err := svc.CreateSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("session ID is empty")
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		t.Error("session must expire after creation time")
	}

	user, err := svc.ResolvePrincipal(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if user == nil || user.ID != created.ID {
		t.Errorf("resolved user = %+v, want ID %d", user, created.ID)
	}
}

func TestResolvePrincipal_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.ResolvePrincipal(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}

func TestLogout_RemovesSession(t *testing.T) {
	svc, store := newTestService(t)
	created := createTestUser(t, store, "frank", "frank@example.com", "pass1234")

	session, err := svc.CreateSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := svc.Logout(context.Background(), session.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	user, err := svc.ResolvePrincipal(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResolvePrincipal failed: %v", err)
	}
	if user != nil {
		t.Error("session must be invalid after logout")
	}
}

func TestGenerateState_Unique(t *testing.T) {
	if GenerateState() == GenerateState() {
		t.Error("consecutive states must differ")
	}
}

// compile-time interface check
var _ Store = (*storage.MemStore)(nil)
