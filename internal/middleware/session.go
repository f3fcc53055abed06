// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/propman/internal/auth"
	"github.com/hitoshi/propman/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	principalContextKey = contextKey("principal")
	sessionIDContextKey = contextKey("session_id")
)

// Principal は認証済みリクエストの主体を表す。
type Principal struct {
	UserID int
	Role   model.Role
}

// PrincipalResolver はセッションIDからユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, sessionID string) (*model.User, error)
}

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	Secret string // Cookie値のHMAC署名鍵
}

// NewSessionMiddleware は署名付きCookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーのPrincipalとセッションIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(resolver PrincipalResolver, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			sessionID, ok := auth.VerifySignedValue(cookie.Value, config.Secret)
			if !ok {
				slog.Warn("session cookie signature mismatch",
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			user, err := resolver.ResolvePrincipal(r.Context(), sessionID)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithPrincipal(r.Context(), Principal{UserID: user.ID, Role: user.Role})
			ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからPrincipalを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, fmt.Errorf("principal not found in context")
	}
	return p, nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
// ログアウト処理で使用する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return id, nil
}
