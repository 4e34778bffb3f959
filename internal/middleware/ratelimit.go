package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/glowguard/internal/model"
	"golang.org/x/time/rate"
)

// rateLimitMessage はレート制限超過時の通知文言。
const rateLimitMessage = "Too many requests. Please try again later."

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	AnalyzeRate     rate.Limit    // 画像解析のレート（req/sec）。10/60
	AnalyzeBurst    int           // 画像解析のバーストサイズ
	AuthRate        rate.Limit    // ログイン・登録のレート（req/sec）。20/60
	AuthBurst       int           // ログイン・登録のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 画像解析 10 req/min/client、ログイン・登録 20 req/min/client
func DefaultRateLimiterConfig() RateLimiterConfig {
	return PerMinuteConfig(10, 20)
}

// PerMinuteConfig は1分あたりのリクエスト数からレート制限設定を生成する。
// バーストサイズは1分あたりの上限と同じにする。
func PerMinuteConfig(analyzePerMin, authPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		AnalyzeRate:     rate.Limit(float64(analyzePerMin) / 60.0),
		AnalyzeBurst:    analyzePerMin,
		AuthRate:        rate.Limit(float64(authPerMin) / 60.0),
		AuthBurst:       authPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は1種類の操作に対するクライアントごとのリミッター群。
type limiterSet struct {
	name  string
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

func newLimiterSet(name string, r rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		name:     name,
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

// get はキーに対応するリミッターを取得または作成する。
func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cl, exists := s.limiters[key]; exists {
		cl.lastAccess = now
		return cl.limiter
	}

	limiter := rate.NewLimiter(s.rate, s.burst)
	s.limiters[key] = &clientLimiter{limiter: limiter, lastAccess: now}
	return limiter
}

func (s *limiterSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// evict は最終アクセスからttlを超えたエントリを削除する。
func (s *limiterSet) evict(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter はクライアントごとのレート制限を管理する。
// 画像解析とログイン・登録の2種類を独立に制限する。
type RateLimiter struct {
	config  RateLimiterConfig
	logger  *slog.Logger
	analyze *limiterSet
	auth    *limiterSet

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		logger:  logger,
		analyze: newLimiterSet("analyze", config.AnalyzeRate, config.AnalyzeBurst),
		auth:    newLimiterSet("auth", config.AuthRate, config.AuthBurst),
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// AnalyzeMiddleware は画像解析のレート制限ミドルウェアを返す。
// 超過した場合は通知を積んでredirectへ戻す。
func (rl *RateLimiter) AnalyzeMiddleware(redirect string) func(next http.Handler) http.Handler {
	return rl.middleware(rl.analyze, redirect)
}

// AuthMiddleware はログイン・登録のレート制限ミドルウェアを返す。
// 超過した場合は同じ画面へ戻す。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.auth, "")
}

// AnalyzeLimiterCount は画像解析リミッターのエントリ数を返す。テスト用。
func (rl *RateLimiter) AnalyzeLimiterCount() int {
	return rl.analyze.count()
}

// AuthLimiterCount はログイン・登録リミッターのエントリ数を返す。テスト用。
func (rl *RateLimiter) AuthLimiterCount() int {
	return rl.auth.count()
}

func (rl *RateLimiter) middleware(set *limiterSet, redirect string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, clientErr := ClientFromContext(r.Context())

			key := remoteHost(r)
			if clientErr == nil {
				key = client.ID
			}

			if set.get(key, time.Now()).Allow() {
				next.ServeHTTP(w, r)
				return
			}

			rl.logger.Warn("rate limit exceeded",
				slog.String("key", key),
				slog.String("limit_type", set.name),
			)

			w.Header().Set("Retry-After", retryAfter(set.rate))
			if clientErr != nil {
				WriteAppError(w, http.StatusTooManyRequests, &model.AppError{
					Code:     "RATE_LIMITED",
					Message:  rateLimitMessage,
					Category: "system",
				})
				return
			}

			client.Notify(model.Failure(rateLimitMessage))
			target := redirect
			if target == "" {
				target = r.URL.Path
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.analyze.evict(now, ttl)
	rl.auth.evict(now, ttl)
}

// retryAfter は1トークンが補充されるまでの秒数を返す。
func retryAfter(r rate.Limit) string {
	sec := 1
	if r > 0 {
		sec = max(int(math.Ceil(1.0/float64(r))), 1)
	}
	return strconv.Itoa(sec)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
