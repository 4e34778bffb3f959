package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/glowguard/internal/middleware"
	"github.com/hitoshi/glowguard/internal/report"
	"github.com/hitoshi/glowguard/internal/upload"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ClientFinder middleware.ClientFinder
	ClientCookie middleware.ClientCookieConfig
	CSRF         middleware.CSRFConfig
	RateLimiter  *middleware.RateLimiter
	ImageOrigin  string           // CSPのimg-srcに追加するバックエンドのオリジン
	Now          func() time.Time // トークン期限の判定に使う。nilの場合はtime.Now

	// 画面
	Renderer Renderer

	// 認証・プロフィール
	AuthAPI    AuthAPI
	ProfileAPI ProfileAPI

	// アップロード・結果
	UploadFlow    *upload.Flow
	ResultsLoader ResultsLoader
	ReportBuilder *report.Builder

	// ブログ
	Articles ArticleSource

	// 運用
	Health         Pinger
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	Logger *slog.Logger
}

// NewRouter は全画面のルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → RealIP → SecurityHeaders → Client → Logging → CSRF
//
// /healthと/metricsはクライアントCookieを発行しないようClient以降の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ImageOrigin))

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.Health, logger).Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthAPI, deps.Renderer, logger)
	profileHandler := NewProfileHandler(deps.ProfileAPI, deps.Renderer, logger)
	uploadHandler := NewUploadHandler(deps.UploadFlow, deps.Renderer, logger)
	resultsHandler := NewResultsHandler(deps.ResultsLoader, deps.ReportBuilder, deps.Renderer, logger)
	pagesHandler := NewPagesHandler(deps.Articles, deps.Renderer)

	requireAuth := middleware.NewRequireAuthMiddleware(upload.LoginPath, now, logger)

	// --- 画面 ---
	// ミドルウェアスタック: Client → Logging → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewClientMiddleware(deps.ClientFinder, deps.ClientCookie, logger))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF, logger))

		r.Get("/", pagesHandler.Home)
		r.Get("/blog", pagesHandler.Blog)
		r.Get("/before-after", pagesHandler.BeforeAfter)

		// 認証（レート制限を追加）
		r.Get("/login", authHandler.LoginPage)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterPage)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)

		// アップロード
		r.Get("/upload", uploadHandler.Page)
		r.Post("/upload", uploadHandler.Select)
		r.Post("/upload/clear", uploadHandler.Clear)
		r.Get("/upload/preview", uploadHandler.Preview)
		r.With(requireAuth, deps.RateLimiter.AnalyzeMiddleware(upload.UploadPath)).
			Post("/upload/analyze", uploadHandler.Analyze)

		// --- ログインが必要な画面 ---
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/results/{id}", resultsHandler.Show)
			r.Get("/profile", profileHandler.Show)
			r.Post("/profile", profileHandler.Update)
		})

		r.NotFound(pagesHandler.NotFound)
	})

	return r
}
