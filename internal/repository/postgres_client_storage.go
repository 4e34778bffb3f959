package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresClientStorage はPostgreSQLを使用したクライアントストレージ。
// テーブル定義は database/migrations で管理する。
type PostgresClientStorage struct {
	db *sql.DB
}

// NewPostgresClientStorage はPostgresClientStorageを生成する。
func NewPostgresClientStorage(db *sql.DB) *PostgresClientStorage {
	return &PostgresClientStorage{db: db}
}

// Get は値を取得する。存在しない場合はfound=falseを返す。
func (r *PostgresClientStorage) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client storage value: %w", err)
	}
	return value, true, nil
}

// Set は値を保存する。既存の値は上書きする。
func (r *PostgresClientStorage) Set(ctx context.Context, clientID, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (client_id, key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set client storage value: %w", err)
	}
	return nil
}

// Delete は値を削除する。
func (r *PostgresClientStorage) Delete(ctx context.Context, clientID, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete client storage value: %w", err)
	}
	return nil
}

// PurgeBefore はupdated_atがcutoffより古い行を削除する。
func (r *PostgresClientStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge client storage: %w", err)
	}
	return result.RowsAffected()
}

// Ping はデータベースへの疎通を確認する。
func (r *PostgresClientStorage) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (r *PostgresClientStorage) Close() error {
	return r.db.Close()
}

// compile-time interface check
var _ ClientStorage = (*PostgresClientStorage)(nil)
