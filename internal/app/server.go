package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/glowguard/internal/api"
	"github.com/hitoshi/glowguard/internal/blog"
	"github.com/hitoshi/glowguard/internal/config"
	"github.com/hitoshi/glowguard/internal/database"
	"github.com/hitoshi/glowguard/internal/handler"
	"github.com/hitoshi/glowguard/internal/metrics"
	"github.com/hitoshi/glowguard/internal/middleware"
	"github.com/hitoshi/glowguard/internal/report"
	"github.com/hitoshi/glowguard/internal/repository"
	"github.com/hitoshi/glowguard/internal/results"
	"github.com/hitoshi/glowguard/internal/security"
	"github.com/hitoshi/glowguard/internal/store"
	"github.com/hitoshi/glowguard/internal/upload"
	"github.com/hitoshi/glowguard/internal/view"
	"github.com/hitoshi/glowguard/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ブログフィード取得クライアントの制限
const (
	blogFetchTimeout = 10 * time.Second
	blogMaxFeedSize  = 2 * 1024 * 1024
)

// クリーンアップ間隔
const (
	registryCleanupInterval = 10 * time.Minute // メモリ上のアイドルクライアント
	storageCleanupInterval  = time.Hour        // 永続化済みの期限切れトークン
)

// formOverhead はmultipartの境界やCSRFフィールド分としてファイル上限に上乗せする量。
const formOverhead = 1 << 20

// OpenStorage は設定に応じたクライアントストレージを開く。
// postgresの場合は接続確認まで行う。
func OpenStorage(cfg *config.Config) (repository.ClientStorage, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewPostgresClientStorage(db), nil
	case config.StorageSQLite:
		return repository.NewSQLiteClientStorage(cfg.SQLitePath)
	case config.StorageMemory, "":
		return repository.NewMemoryClientStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

// Server は全依存関係をワイヤリングしたHTTPハンドラーと、停止が必要なバックグラウンド処理を保持する。
type Server struct {
	Handler http.Handler

	registry    *store.Registry
	limiter     *middleware.RateLimiter
	stopCleanup context.CancelFunc
}

// NewServer は依存関係を組み立ててServerを生成する。
// ストレージのCloseは呼び出し側の責務。
func NewServer(cfg *config.Config, storage repository.ClientStorage, logger *slog.Logger) (*Server, error) {
	// 1. メトリクス
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	// 2. 画面テンプレート
	renderer, err := view.New(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 3. クライアント状態
	registry := store.NewRegistry(storage, store.RegistryConfig{
		IdleTTL:         cfg.ClientIdleTTL,
		CleanupInterval: registryCleanupInterval,
	}, logger)
	collector.ObserveActiveClients(registry.Count)

	// 4. バックエンドAPIクライアント（API_TIMEOUT=0ならタイムアウトなし）
	apiClient := api.NewClient(&http.Client{Timeout: cfg.APITimeout}, cfg.APIBaseURL, logger).
		WithRecorder(collector)

	// 5. セキュリティ
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 6. ドメインサービス
	blogService := blog.NewService(
		blog.Config{FeedURL: cfg.BlogFeedURL, CacheTTL: cfg.BlogCacheTTL},
		ssrfGuard.NewSafeClient(blogFetchTimeout, blogMaxFeedSize),
		ssrfGuard, collector, logger,
	)
	uploadFlow := upload.NewFlow(apiClient, collector, logger)
	resultsLoader := results.NewLoader(apiClient, logger)
	reportBuilder := report.NewBuilder(sanitizer, cfg.AssetBase())

	// 7. ルーター
	limiter := middleware.NewRateLimiter(
		middleware.PerMinuteConfig(cfg.RateLimitAnalyze, cfg.RateLimitAuth), logger)

	router := handler.NewRouter(&handler.RouterDeps{
		ClientFinder: registry,
		ClientCookie: middleware.ClientCookieConfig{
			MaxAge: cfg.ClientCookieMaxAge,
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure:     cfg.CookieSecure,
			CookieDomain:     cfg.CookieDomain,
			MaxFormBytes:     upload.MaxFileSize + formOverhead,
			TooLargeRedirect: upload.UploadPath,
		},
		RateLimiter: limiter,
		ImageOrigin: cfg.AssetBase(),

		Renderer:      renderer,
		AuthAPI:       apiClient,
		ProfileAPI:    apiClient,
		UploadFlow:    uploadFlow,
		ResultsLoader: resultsLoader,
		ReportBuilder: reportBuilder,
		Articles:      blogService,

		Health:         storage,
		MetricsHandler: metrics.Handler(promRegistry),
		Logger:         logger,
	})

	// 8. 期限切れCookieに紐づくトークンの定期削除
	// セッションCookie（MaxAge<=0）では期限が決まらないため削除しない
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	if cfg.ClientCookieMaxAge > 0 {
		cleanupJob := cleanup.NewJob(storage, logger)
		cleanupJob.Retention = time.Duration(cfg.ClientCookieMaxAge) * time.Second
		cleanupJob.Interval = storageCleanupInterval
		go cleanupJob.Start(cleanupCtx)
	}

	return &Server{
		Handler:     router,
		registry:    registry,
		limiter:     limiter,
		stopCleanup: stopCleanup,
	}, nil
}

// Close はバックグラウンドのクリーンアップ処理を停止する。
func (s *Server) Close() {
	s.stopCleanup()
	s.limiter.Stop()
	s.registry.Stop()
}
