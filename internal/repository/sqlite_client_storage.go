package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteClientStorage はSQLiteを使用したクライアントストレージ。
// 単一インスタンス構成向け。スキーマは起動時に作成する。
type SQLiteClientStorage struct {
	db *sql.DB
}

// NewSQLiteClientStorage はデータベースファイルを開き、SQLiteClientStorageを生成する。
func NewSQLiteClientStorage(dbPath string) (*SQLiteClientStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WALモードで書き込み競合を減らす
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteClientStorage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteClientStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS client_storage (
		client_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (client_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_client_storage_updated ON client_storage(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}

// Get は値を取得する。
func (s *SQLiteClientStorage) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = ? AND key = ?`,
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

// Set は値を保存する。
func (s *SQLiteClientStorage) Set(ctx context.Context, clientID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id, key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		clientID, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set client storage value: %w", err)
	}
	return nil
}

// Delete は値を削除する。
func (s *SQLiteClientStorage) Delete(ctx context.Context, clientID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = ? AND key = ?`,
		clientID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete client storage value: %w", err)
	}
	return nil
}

// PurgeBefore はupdated_atがcutoffより古い行を削除する。
func (s *SQLiteClientStorage) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE updated_at < ?`,
		cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge client storage: %w", err)
	}
	return result.RowsAffected()
}

// Ping はデータベースへの疎通を確認する。
func (s *SQLiteClientStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *SQLiteClientStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ClientStorage = (*SQLiteClientStorage)(nil)
