// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// StorageBackend はストレージ実装の選択を表す。
type StorageBackend string

// 選択可能なストレージバックエンド
const (
	BackendPostgres StorageBackend = "postgres"
	BackendMemory   StorageBackend = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageBackend StorageBackend
	DatabaseURL    string

	// OAuth（未設定の場合はGoogleログインを無効化し警告のみ）
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// Session
	SessionSecret string
	SessionMaxAge int // 秒

	// Server
	Port    string
	BaseURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（未存在は無視）。
// postgresバックエンドでDATABASE_URLが未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	backend := StorageBackend(getEnvString("STORAGE_BACKEND", string(BackendPostgres)))
	switch backend {
	case BackendPostgres, BackendMemory:
		cfg.StorageBackend = backend
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q (expected postgres or memory)", backend)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StorageBackend == BackendPostgres {
		return nil, fmt.Errorf("required environment variable is not set: DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET is not set, using insecure default")
		cfg.SessionSecret = "propman-dev-session-secret"
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleCallbackURL = os.Getenv("GOOGLE_CALLBACK_URL")
	if !cfg.GoogleOAuthEnabled() {
		slog.Warn("Google OAuth credentials are not fully set, Google login is disabled")
	}

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.Port = getEnvString("PORT", "5000")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Port)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// GoogleOAuthEnabled はGoogle OAuthに必要な設定が揃っているかどうかを返す。
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleCallbackURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
