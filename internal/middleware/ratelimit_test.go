package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/glowguard/internal/store"
)

func testRateLimiter(t *testing.T, analyzeBurst, authBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		AnalyzeRate:  1.0 / 60.0,
		AnalyzeBurst: analyzeBurst,
		AuthRate:     1.0 / 60.0,
		AuthBurst:    authBurst,
	}, testLogger())
	t.Cleanup(rl.Stop)
	return rl
}

func serveLimited(handler http.Handler, client *store.Client, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if client != nil {
		req = req.WithContext(ContextWithClient(req.Context(), client))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.AnalyzeBurst != 10 || cfg.AuthBurst != 20 {
		t.Errorf("bursts = %d/%d, want 10/20", cfg.AnalyzeBurst, cfg.AuthBurst)
	}
	if float64(cfg.AnalyzeRate)*60 < 9.99 || float64(cfg.AnalyzeRate)*60 > 10.01 {
		t.Errorf("AnalyzeRate = %v, want 10/min", cfg.AnalyzeRate)
	}
}

// バーストを超えると通知を積んでリダイレクトする
func TestAnalyzeMiddleware_ExceedsBurst_Redirects(t *testing.T) {
	rl := testRateLimiter(t, 2, 5)
	calls := 0
	handler := rl.AnalyzeMiddleware("/upload")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	client := newTestClient(t, "token")

	for i := 0; i < 2; i++ {
		if w := serveLimited(handler, client, http.MethodPost, "/upload/analyze"); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := serveLimited(handler, client, http.MethodPost, "/upload/analyze")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/upload" {
		t.Errorf("got %d %q, want 303 /upload", w.Code, w.Header().Get("Location"))
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	notices := client.TakeNotices()
	if len(notices) != 1 || notices[0].Message != rateLimitMessage {
		t.Errorf("notices = %+v", notices)
	}
}

// クライアントごとに独立して制限する
func TestAnalyzeMiddleware_PerClient(t *testing.T) {
	rl := testRateLimiter(t, 1, 1)
	handler := rl.AnalyzeMiddleware("/upload")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	a := newTestClient(t, "")
	b := newTestClient(t, "")

	serveLimited(handler, a, http.MethodPost, "/upload/analyze")
	if w := serveLimited(handler, b, http.MethodPost, "/upload/analyze"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
	if rl.AnalyzeLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.AnalyzeLimiterCount())
	}
}

// 解析と認証の制限は独立している
func TestRateLimiter_IndependentBuckets(t *testing.T) {
	rl := testRateLimiter(t, 1, 1)
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	analyze := rl.AnalyzeMiddleware("/upload")(noop)
	auth := rl.AuthMiddleware()(noop)
	client := newTestClient(t, "")

	serveLimited(analyze, client, http.MethodPost, "/upload/analyze")
	if w := serveLimited(auth, client, http.MethodPost, "/login"); w.Code != http.StatusOK {
		t.Errorf("auth status = %d, want 200", w.Code)
	}

	w := serveLimited(auth, client, http.MethodPost, "/login")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Errorf("got %d %q, want 303 /login", w.Code, w.Header().Get("Location"))
	}
}

// クライアントがない場合はリモートアドレス単位で429を返す
func TestAuthMiddleware_NoClient_Returns429(t *testing.T) {
	rl := testRateLimiter(t, 1, 1)
	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serveLimited(handler, nil, http.MethodPost, "/login")
	w := serveLimited(handler, nil, http.MethodPost, "/login")

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get(errorCodeHeader) != "RATE_LIMITED" {
		t.Errorf("error code = %q", w.Header().Get(errorCodeHeader))
	}
}

func TestRateLimiter_CleanupEvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		AnalyzeRate: 1, AnalyzeBurst: 1, AuthRate: 1, AuthBurst: 1,
	}, testLogger())
	rl.config.CleanupInterval = time.Minute
	defer rl.Stop()

	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serveLimited(handler, newTestClient(t, ""), http.MethodPost, "/login")

	rl.cleanup(time.Now())
	if rl.AuthLimiterCount() != 1 {
		t.Errorf("fresh entry should survive, count = %d", rl.AuthLimiterCount())
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.AuthLimiterCount() != 0 {
		t.Errorf("idle entry should be evicted, count = %d", rl.AuthLimiterCount())
	}
}

func TestRetryAfter(t *testing.T) {
	if got := retryAfter(10); got != "1" {
		t.Errorf("retryAfter(10) = %q, want 1", got)
	}
	if got := retryAfter(0); got != "1" {
		t.Errorf("retryAfter(0) = %q, want 1", got)
	}
}
