// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge    int           // セッション有効期間（秒）
	HydrationTimeout time.Duration // セッション解決の待機上限

	// AI suggestion
	SuggestBaseURL string        // チャット補完APIのベースURL
	SuggestModel   string        // 使用モデル名
	SuggestToken   string        // Bearerトークン（空の場合は認証なし）
	SuggestTimeout time.Duration // 1回の生成リクエストのタイムアウト

	// Art job worker
	ArtJobInterval      time.Duration // ジョブポーリング間隔
	ArtJobMaxConcurrent int           // 同時生成数の上限
	ArtJobMaxAttempts   int           // 失敗確定までの最大試行回数

	// Image generation
	ImageBaseURL string        // 画像生成APIのベースURL（未設定時はSuggestBaseURLを使用）
	ImageModel   string        // 画像生成モデル名
	ImageToken   string        // Bearerトークン（未設定時はSuggestTokenを使用）
	ImageTimeout time.Duration // 1回の画像生成リクエストのタイムアウト

	// Metrics
	MetricsPort string // ワーカーモードでメトリクスを公開するポート

	// Media classification
	MediaProbeTimeout time.Duration // メディアURL判定用HEADリクエストのタイムアウト
	MediaProbeMaxSize int64         // メディアURL判定時の最大レスポンスサイズ

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/user）
	RateLimitSuggest int // AI提案（req/min/user）

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.SuggestBaseURL = os.Getenv("SUGGEST_BASE_URL")
	if cfg.SuggestBaseURL == "" {
		missing = append(missing, "SUGGEST_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.HydrationTimeout = getEnvDuration("HYDRATION_TIMEOUT", 10*time.Second)
	cfg.SuggestModel = getEnvString("SUGGEST_MODEL", "qwen3")
	cfg.SuggestToken = getEnvString("SUGGEST_TOKEN", "")
	cfg.SuggestTimeout = getEnvDuration("SUGGEST_TIMEOUT", 60*time.Second)
	cfg.ArtJobInterval = getEnvDuration("ART_JOB_INTERVAL", 30*time.Second)
	cfg.ArtJobMaxConcurrent = getEnvInt("ART_JOB_MAX_CONCURRENT", 2)
	cfg.ArtJobMaxAttempts = getEnvInt("ART_JOB_MAX_ATTEMPTS", 5)
	cfg.ImageBaseURL = getEnvString("IMAGE_BASE_URL", cfg.SuggestBaseURL)
	cfg.ImageModel = getEnvString("IMAGE_MODEL", "sdxl")
	cfg.ImageToken = getEnvString("IMAGE_TOKEN", cfg.SuggestToken)
	cfg.ImageTimeout = getEnvDuration("IMAGE_TIMEOUT", 120*time.Second)
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.MediaProbeTimeout = getEnvDuration("MEDIA_PROBE_TIMEOUT", 10*time.Second)
	cfg.MediaProbeMaxSize = getEnvInt64("MEDIA_PROBE_MAX_SIZE", 1048576)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSuggest = getEnvInt("RATE_LIMIT_SUGGEST", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
