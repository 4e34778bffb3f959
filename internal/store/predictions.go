package store

import (
	"sync"

	"github.com/hitoshi/glowguard/internal/model"
)

// PredictionStore はセッション中に作成した予測結果と、直近に表示した予測結果を保持する。
// 予測結果は不変のため、追加（先頭への挿入）と全消去以外の変更は行わない。
type PredictionStore struct {
	mu          sync.RWMutex
	predictions []*model.PredictionRecord
	current     *model.PredictionRecord
}

// NewPredictionStore は空のPredictionStoreを生成する。
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{}
}

// Add は予測結果を一覧の先頭に追加する。
func (s *PredictionStore) Add(record *model.PredictionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*model.PredictionRecord, 0, len(s.predictions)+1)
	next = append(next, record)
	next = append(next, s.predictions...)
	s.predictions = next
}

// List は予測結果一覧のコピーを新しい順に返す。
func (s *PredictionStore) List() []*model.PredictionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.PredictionRecord, len(s.predictions))
	copy(out, s.predictions)
	return out
}

// Len は保持している予測結果の件数を返す。
func (s *PredictionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions)
}

// SetCurrent は直近に表示した予測結果を置き換える。
func (s *PredictionStore) SetCurrent(record *model.PredictionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = record
}

// Current は直近に表示した予測結果を返す。
func (s *PredictionStore) Current() *model.PredictionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reset は保持している予測結果をすべて破棄する。
// ログアウトや別ユーザーでのログイン時に前のユーザーの結果を残さないために使う。
func (s *PredictionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = nil
	s.current = nil
}
