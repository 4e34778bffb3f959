package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// クライアントストレージのドライバー
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string

	// Backend API
	APIBaseURL string
	APITimeout time.Duration // 0の場合はトランスポートの既定値に従う

	// Client storage
	StorageDriver string
	DatabaseURL   string
	SQLitePath    string

	// Client
	SessionSecret      string
	ClientIdleTTL      time.Duration
	ClientCookieMaxAge int

	// Rate Limit（1分あたり）
	RateLimitAnalyze int
	RateLimitAuth    int

	// Blog
	BlogFeedURL  string
	BlogCacheTTL time.Duration

	// Logging
	LogLevel string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// LoadDotEnv はpathの.envファイルを環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合はfalseを返す。
func LoadDotEnv(path string) (bool, error) {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.StorageDriver = strings.ToLower(getEnvString("STORAGE_DRIVER", StorageMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.StorageDriver {
	case StorageMemory, StoragePostgres, StorageSQLite:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.APIBaseURL = strings.TrimRight(getEnvString("API_BASE_URL", "http://localhost:8000/api"), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 0)
	cfg.SQLitePath = getEnvString("SQLITE_PATH", "./data/glowguard.db")
	cfg.ClientIdleTTL = getEnvDuration("CLIENT_IDLE_TTL", 24*time.Hour)
	cfg.ClientCookieMaxAge = getEnvInt("CLIENT_COOKIE_MAX_AGE", 31536000)
	cfg.RateLimitAnalyze = getEnvInt("RATE_LIMIT_ANALYZE", 10)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.BlogFeedURL = getEnvString("BLOG_FEED_URL", "")
	cfg.BlogCacheTTL = getEnvDuration("BLOG_CACHE_TTL", 30*time.Minute)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// AssetBase は画像パスを解決するバックエンドのオリジンを返す。
// APIのベースURLから末尾の/apiを取り除いたもの。
func (c *Config) AssetBase() string {
	return strings.TrimSuffix(c.APIBaseURL, "/api")
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
