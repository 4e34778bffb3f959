// Package store はブラウザごとのクライアント状態（セッション・予測結果）を保持する。
// グローバルなシングルトンは持たず、Registryから取得したClientを各ハンドラーへ渡す。
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/glowguard/internal/model"
)

// TokenKey はセッショントークンを永続化するストレージキー。
const TokenKey = "access_token"

// Storage はクライアントごとの永続ストレージのインターフェース。
// repositoryパッケージのメモリ・PostgreSQL・SQLite実装が満たす。
type Storage interface {
	// Get は値を取得する。存在しない場合はfound=falseを返す。
	Get(ctx context.Context, clientID, key string) (value string, found bool, err error)
	// Set は値を保存する。
	Set(ctx context.Context, clientID, key, value string) error
	// Delete は値を削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, clientID, key string) error
}

// SessionStore は認証トークンとログインユーザーを保持する。
// トークンは永続ストレージに書き込み、メモリ上の状態と常に一致させる。
type SessionStore struct {
	clientID string
	storage  Storage

	mu    sync.RWMutex
	token string
	user  *model.User
}

// NewSessionStore はSessionStoreを生成し、永続ストレージからトークンを読み込む。
func NewSessionStore(ctx context.Context, clientID string, storage Storage) (*SessionStore, error) {
	s := &SessionStore{
		clientID: clientID,
		storage:  storage,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Token は現在のトークンを返す。未ログインの場合は空文字列。
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User は現在のユーザーを返す。未取得の場合はnil。
func (s *SessionStore) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated はトークンを保持しているかを返す。
// メモリ上の状態を参照する。すべての変更はストレージへの書き込み成功後に
// メモリへ反映するため、ストレージと食い違うことはない。
func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

// SetToken はトークンを永続ストレージに書き込み、成功した場合のみメモリへ反映する。
// 書き込みに失敗した場合はエラーを返し、状態は変更しない。
func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, s.clientID, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	s.token = token
	return nil
}

// SetUser はログインユーザーを置き換える。
func (s *SessionStore) SetUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// UserID はログインユーザーのIDを返す。
// ユーザー情報を取得できていない場合はトークンのuser_idクレームを使い、
// どちらもなければ0を返す。
func (s *SessionStore) UserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user != nil {
		return s.user.ID
	}
	claims, _ := ParseClaims(s.token)
	return claims.UserID
}

// Logout はストレージからトークンを削除し、トークンとユーザーを破棄する。
// 削除に失敗した場合はエラーを返し、状態は変更しない。
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.clientID, TokenKey); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	s.token = ""
	s.user = nil
	return nil
}

// Reload は永続ストレージからトークンを読み直す。
// ストレージが外部から変更された場合にメモリを同期させる。
// トークンが変わった場合はユーザー情報も破棄する。
func (s *SessionStore) Reload(ctx context.Context) error {
	token, found, err := s.storage.Get(ctx, s.clientID, TokenKey)
	if err != nil {
		return fmt.Errorf("failed to load session token: %w", err)
	}
	if !found {
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.user = nil
	}
	s.token = token
	return nil
}

// TokenExpired はトークンのexpクレームが過去であるかを返す。
// 署名は検証しない（検証はバックエンドの責務）。JWTとして解釈できない
// トークンやexpを持たないトークンは期限切れとみなさない。
func (s *SessionStore) TokenExpired(now time.Time) bool {
	claims, ok := ParseClaims(s.Token())
	if !ok || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}

// Claims はトークンから読み取ったクレーム。
type Claims struct {
	UserID    int
	ExpiresAt time.Time
}

// ParseClaims はトークンを検証せずにデコードし、クレームを返す。
func ParseClaims(token string) (Claims, bool) {
	if token == "" {
		return Claims{}, false
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, false
	}

	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if uid, ok := mc["user_id"].(float64); ok {
		c.UserID = int(uid)
	}
	return c, true
}
