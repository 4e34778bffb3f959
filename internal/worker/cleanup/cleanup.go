// Package cleanup はクライアントストレージの定期削除ジョブを提供する。
// Cookieの有効期限を過ぎたクライアントのトークンは二度と参照されないため、
// 保持期間を超えて更新のない値を一定間隔で削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger は古い値の一括削除を抽象化するインターフェース。
// repository.ClientStorageの各実装が満たす。
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job は保持期間を超過したクライアント値の削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type Job struct {
	storage   Purger
	logger    *slog.Logger
	Retention time.Duration // 値の保持期間（デフォルト: 365日）
	Interval  time.Duration // Startでの実行間隔（デフォルト: 1時間）
	now       func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(storage Purger, logger *slog.Logger) *Job {
	return &Job{
		storage:   storage,
		logger:    logger,
		Retention: 365 * 24 * time.Hour,
		Interval:  time.Hour,
		now:       time.Now,
	}
}

// Run は保持期間を超過した値を1回削除する。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.Retention)

	deleted, err := j.storage.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("client storage cleanup failed",
			slog.String("error", err.Error()),
			slog.String("retention", j.Retention.String()),
		)
		return fmt.Errorf("client storage cleanup failed: %w", err)
	}

	j.logger.Info("client storage cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.String("retention", j.Retention.String()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はctxがキャンセルされるまでIntervalごとにRunを実行する。
// 起動直後に1回実行する。失敗はログに残して次回に持ち越す。
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		_ = j.Run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
