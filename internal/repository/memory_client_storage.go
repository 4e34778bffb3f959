package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryClientStorage はプロセス内メモリを使用したクライアントストレージ。
// 開発用およびテスト用。再起動で内容は失われる。
type MemoryClientStorage struct {
	mu      sync.RWMutex
	data    map[string]map[string]string
	updated map[string]time.Time // クライアントごとの最終更新時刻
	now     func() time.Time
}

// NewMemoryClientStorage はMemoryClientStorageを生成する。
func NewMemoryClientStorage() *MemoryClientStorage {
	return &MemoryClientStorage{
		data:    make(map[string]map[string]string),
		updated: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Get は値を取得する。
func (s *MemoryClientStorage) Get(_ context.Context, clientID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[clientID][key]
	return v, ok, nil
}

// Set は値を保存する。
func (s *MemoryClientStorage) Set(_ context.Context, clientID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, ok := s.data[clientID]
	if !ok {
		kv = make(map[string]string)
		s.data[clientID] = kv
	}
	kv[key] = value
	s.updated[clientID] = s.now()
	return nil
}

// Delete は値を削除する。
func (s *MemoryClientStorage) Delete(_ context.Context, clientID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, ok := s.data[clientID]
	if !ok {
		return nil
	}
	delete(kv, key)
	if len(kv) == 0 {
		delete(s.data, clientID)
		delete(s.updated, clientID)
	}
	return nil
}

// PurgeBefore はcutoffより前に更新されたクライアントの値をすべて削除する。
func (s *MemoryClientStorage) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for clientID, at := range s.updated {
		if !at.Before(cutoff) {
			continue
		}
		purged += int64(len(s.data[clientID]))
		delete(s.data, clientID)
		delete(s.updated, clientID)
	}
	return purged, nil
}

// Ping は常に成功する。
func (s *MemoryClientStorage) Ping(context.Context) error { return nil }

// Close は何もしない。
func (s *MemoryClientStorage) Close() error { return nil }

// compile-time interface check
var _ ClientStorage = (*MemoryClientStorage)(nil)
