// Package repository はクライアントストレージの永続化実装を提供する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/glowguard/internal/store"
)

// ClientStorage はクライアントごとのキー・バリューを永続化するインターフェース。
// store.Storageに加えて、ヘルスチェックと終了処理を持つ。
type ClientStorage interface {
	store.Storage

	// PurgeBefore はcutoffより前に更新されたクライアントの値を削除し、削除件数を返す。
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// Ping はバックエンドへの疎通を確認する。
	Ping(ctx context.Context) error
	// Close は接続を閉じる。
	Close() error
}
