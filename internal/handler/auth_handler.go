package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/propman/internal/auth"
	"github.com/hitoshi/propman/internal/metrics"
	"github.com/hitoshi/propman/internal/middleware"
	"github.com/hitoshi/propman/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int    // セッションCookieの有効期間（秒）
	SessionSecret string // Cookie値のHMAC署名鍵
}

// AuthHandler はログイン・ログアウト・OAuthフローのHTTPハンドラー。
// OAuthプロバイダーが未設定（nil）の場合、Googleログインは503を返す。
type AuthHandler struct {
	service  *auth.Service
	provider auth.OAuthProvider
	metrics  metrics.MetricsCollector
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service *auth.Service, provider auth.OAuthProvider, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		provider: provider,
		metrics:  collector,
		config:   config,
	}
}

// loginRequest はメールアドレスログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// usernameLoginRequest はユーザー名ログインのリクエストボディ。
type usernameLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginWithEmail はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) LoginWithEmail(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスとパスワードは必須です。"))
		return
	}

	user, err := h.service.VerifyEmailPassword(r.Context(), req.Email, req.Password)
	h.finishPasswordLogin(w, r, user, err, "email")
}

// LoginWithUsername はユーザー名とパスワードでログインする。
// POST /api/auth/login/username
func (h *AuthHandler) LoginWithUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("ユーザー名とパスワードは必須です。"))
		return
	}

	user, err := h.service.VerifyUsernamePassword(r.Context(), req.Username, req.Password)
	h.finishPasswordLogin(w, r, user, err, "username")
}

// finishPasswordLogin は検証結果を共通処理する。
// 成功時はセッションを発行し、署名付きCookieを設定してユーザー情報を返す。
func (h *AuthHandler) finishPasswordLogin(w http.ResponseWriter, r *http.Request, user *model.User, err error, method string) {
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure(method)
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
			return
		}
		handleServiceError(w, err)
		return
	}

	session, err := h.service.CreateSession(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	if h.metrics != nil {
		h.metrics.RecordLoginSuccess(method)
	}

	slog.Info("user logged in",
		slog.Int("user_id", user.ID),
		slog.String("method", method),
	)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewOAuthUnavailableError())
		return
	}

	state := auth.GenerateState()

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewOAuthUnavailableError())
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. プロファイルの取得とユーザー解決
	profile, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.RecordLoginFailure("google")
		}
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := h.service.VerifyOrCreateFromOAuthProfile(r.Context(), profile)
	if err != nil {
		slog.Error("oauth user resolution failed", slog.String("error", err.Error()))
		if h.metrics != nil {
			h.metrics.RecordLoginFailure("google")
		}
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. セッションの発行
	session, err := h.service.CreateSession(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	if h.metrics != nil {
		h.metrics.RecordLoginSuccess("google")
	}

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if sessionID, ok := auth.VerifySignedValue(cookie.Value, h.config.SessionSecret); ok {
			if logoutErr := h.service.Logout(r.Context(), sessionID); logoutErr != nil {
				slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
				// ログアウト失敗してもCookieはクリアする
			}
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser は現在のログインユーザー情報を返す。
// GET /api/auth/current-user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	sessionID, ok := auth.VerifySignedValue(cookie.Value, h.config.SessionSecret)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.ResolvePrincipal(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// setSessionCookie は署名付きセッションCookieを設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    auth.SignSessionID(sessionID, h.config.SessionSecret),
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを失効させる。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
