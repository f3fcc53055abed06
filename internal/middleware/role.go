package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/propman/internal/model"
)

// RequireRoles は認証済みユーザーのロールが許可リストに含まれることを要求する
// ミドルウェアを返す。認証チェックの後に配置する（順序が逆だと未認証が403になる）。
// ロールが一致しない場合は403 Forbiddenを返す。
func RequireRoles(roles ...model.Role) func(next http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			if !allowed[p.Role] {
				slog.Warn("role check failed",
					slog.Int("user_id", p.UserID),
					slog.String("role", string(p.Role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
