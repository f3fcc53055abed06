package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/propman/internal/auth"
	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
	"github.com/hitoshi/propman/internal/security"
	"github.com/hitoshi/propman/internal/storage"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Store       storage.Store
	AuthService *auth.Service
	// OAuthProvider はGoogle OAuth未設定の場合nil。
	OAuthProvider auth.OAuthProvider
	Sanitizer     security.ContentSanitizerService
	Metrics       metrics.MetricsCollector
	RateLimiter   *middleware.RateLimiter
	Logger        *slog.Logger

	// Gatherer は/metricsエンドポイントで公開するレジストリ。
	Gatherer prometheus.Gatherer

	AuthConfig        AuthHandlerConfig
	CORSAllowedOrigin string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//
// 認証が必要なルートはさらに Session → CSRF → RateLimit(General) を通る。
// ログインエンドポイントはIP単位のレート制限のみを通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.OAuthProvider, deps.Metrics, deps.AuthConfig)
	userHandler := NewUserHandler(deps.Store, deps.Metrics)
	propertyHandler := NewPropertyHandler(deps.Store, deps.Metrics)
	apartmentHandler := NewApartmentHandler(deps.Store, deps.Metrics)
	taskHandler := NewTaskHandler(deps.Store, deps.Sanitizer, deps.Metrics)
	transactionHandler := NewTransactionHandler(deps.Store, deps.Sanitizer, deps.Metrics)
	activityHandler := NewActivityHandler(deps.Store)

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	// 認証フロー。ログイン試行はIP単位のレート制限を通す。
	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.LoginWithEmail)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login/username", authHandler.LoginWithUsername)
		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/current-user", authHandler.CurrentUser)
	})

	// ユーザー登録は未認証で可能（サインアップ）
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/api/users", userHandler.Create)

	// 物件・部屋の参照は公開
	r.Get("/api/properties", propertyHandler.List)
	r.Get("/api/properties/{id}", propertyHandler.Get)
	r.Get("/api/properties/{propertyId}/apartments", apartmentHandler.ListByProperty)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.AuthService, middleware.SessionConfig{
			Secret: deps.AuthConfig.SessionSecret,
		}))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		requireStaff := middleware.RequireRoles(model.RoleOwner, model.RoleCaretaker)

		// ユーザー一覧はスタッフのみ
		r.With(requireStaff).Get("/api/users", userHandler.List)

		// 物件・部屋の登録はスタッフのみ
		r.With(requireStaff).Post("/api/properties", propertyHandler.Create)
		r.With(requireStaff).Post("/api/apartments", apartmentHandler.Create)

		// タスクは全ロールが参照・登録できる
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Post("/suggest-priority", taskHandler.SuggestPriority)
			r.Patch("/{id}/status", taskHandler.UpdateStatus)
		})

		// 取引はスタッフのみ
		r.Route("/api/transactions", func(r chi.Router) {
			r.Use(requireStaff)
			r.Get("/", transactionHandler.List)
			r.Post("/", transactionHandler.Create)
		})

		// 監査ログ
		r.Get("/api/activities", activityHandler.List)
	})

	return r
}

// healthHandler は死活監視エンドポイント。
// GET /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
