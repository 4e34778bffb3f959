package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	IdleTTL         time.Duration // 最終アクセスからメモリ上の状態を破棄するまでの時間
	CleanupInterval time.Duration // 期限切れクライアントのクリーンアップ間隔
}

// DefaultRegistryConfig はデフォルトの設定を返す。
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTTL:         24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Registry はクライアントIDからClientを引き当てる。
// 破棄されたクライアントは次回アクセス時に永続ストレージからトークンのみを復元する。
type Registry struct {
	storage Storage
	config  RegistryConfig
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	clients map[string]*Client

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRegistry は新しいRegistryを生成する。
// バックグラウンドでアイドルクライアントのクリーンアップを開始する。
func NewRegistry(storage Storage, config RegistryConfig, logger *slog.Logger) *Registry {
	r := &Registry{
		storage: storage,
		config:  config,
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]*Client),
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go r.cleanupLoop()
	}

	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Get はクライアントIDに対応するClientを返す。
// メモリ上に存在しない場合は永続ストレージからトークンを読み込んで生成する。
func (r *Registry) Get(ctx context.Context, clientID string) (*Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is empty")
	}

	now := r.now()

	r.mu.RLock()
	c, exists := r.clients[clientID]
	r.mu.RUnlock()

	if exists {
		c.touch(now)
		return c, nil
	}

	// ストレージI/Oはロック外で行う
	session, err := NewSessionStore(ctx, clientID, r.storage)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// ダブルチェック
	if c, exists := r.clients[clientID]; exists {
		c.touch(now)
		return c, nil
	}

	c = newClient(clientID, session, now)
	r.clients[clientID] = c
	return c, nil
}

// Count は現在メモリ上に保持しているクライアント数を返す。
// テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// cleanupLoop はバックグラウンドでアイドルクライアントを定期的に破棄する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからIdleTTLを超えたクライアントを破棄する。
func (r *Registry) cleanup() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.clients {
		if now.Sub(c.idleSince()) > r.config.IdleTTL {
			delete(r.clients, id)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("idle clients evicted",
			slog.Int("removed", removed),
			slog.Int("remaining", len(r.clients)),
		)
	}
	return removed
}
