package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/glowguard/internal/model"
)

// --- モック定義 ---

type mockStorage struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	delErr error
	getErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: make(map[string]string)}
}

func (m *mockStorage) Get(_ context.Context, clientID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[clientID+"/"+key]
	return v, ok, nil
}

func (m *mockStorage) Set(_ context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[clientID+"/"+key] = value
	return nil
}

func (m *mockStorage) Delete(_ context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, clientID+"/"+key)
	return nil
}

func (m *mockStorage) value(clientID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[clientID+"/"+TokenKey]
	return v, ok
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

// --- テスト ---

func TestNewSessionStore_ReadsTokenAtInit(t *testing.T) {
	storage := newMockStorage()
	storage.data["c1/"+TokenKey] = "persisted"

	s, err := NewSessionStore(context.Background(), "c1", storage)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Token() != "persisted" {
		t.Errorf("Token = %q, want %q", s.Token(), "persisted")
	}
	if !s.IsAuthenticated() {
		t.Error("IsAuthenticated should be true when a token is persisted")
	}
	if s.User() != nil {
		t.Error("User should be nil right after init")
	}
}

func TestNewSessionStore_StorageError(t *testing.T) {
	storage := newMockStorage()
	storage.getErr = errors.New("disk gone")

	if _, err := NewSessionStore(context.Background(), "c1", storage); err == nil {
		t.Fatal("expected error when storage read fails")
	}
}

func TestSessionStore_SetToken_StorageAndMemoryAgree(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)

	if err := s.SetToken(context.Background(), "t"); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}

	got, ok := storage.value("c1")
	if !ok || got != "t" {
		t.Errorf("storage = (%q, %v), want (\"t\", true)", got, ok)
	}
	if s.Token() != "t" {
		t.Errorf("Token = %q, want %q", s.Token(), "t")
	}
	if !s.IsAuthenticated() {
		t.Error("IsAuthenticated should be true after SetToken")
	}
}

func TestSessionStore_SetToken_StorageFailureLeavesStateUnchanged(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)
	storage.setErr = errors.New("quota exceeded")

	if err := s.SetToken(context.Background(), "t"); err == nil {
		t.Fatal("expected error")
	}
	if s.Token() != "" {
		t.Errorf("Token = %q, want empty after failed write", s.Token())
	}
	if _, ok := storage.value("c1"); ok {
		t.Error("storage should not contain a token after failed write")
	}
}

func TestSessionStore_Logout_ClearsBoth(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)
	_ = s.SetToken(context.Background(), "t")
	s.SetUser(&model.User{ID: 1, Username: "alice"})

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, ok := storage.value("c1"); ok {
		t.Error("storage should be empty after logout")
	}
	if s.Token() != "" || s.User() != nil {
		t.Errorf("memory not cleared: token=%q user=%v", s.Token(), s.User())
	}
	if s.IsAuthenticated() {
		t.Error("IsAuthenticated should be false after logout")
	}
}

func TestSessionStore_Logout_StorageFailureKeepsSession(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)
	_ = s.SetToken(context.Background(), "t")
	storage.delErr = errors.New("io error")

	if err := s.Logout(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.Token() != "t" {
		t.Errorf("Token = %q, want %q (unchanged)", s.Token(), "t")
	}
}

func TestSessionStore_Reload_ResyncsExternalChange(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)
	_ = s.SetToken(context.Background(), "t")
	s.SetUser(&model.User{ID: 1})

	// 外部からストレージを変更
	_ = storage.Delete(context.Background(), "c1", TokenKey)

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("IsAuthenticated should follow storage after Reload")
	}
	if s.User() != nil {
		t.Error("User should be dropped when the token changes")
	}
}

func TestSessionStore_TokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque token", "not-a-jwt", false},
		{"no exp", signedToken(t, jwt.MapClaims{"sub": "a@example.com"}), false},
		{"future exp", signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), false},
		{"past exp", signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMockStorage()
			s, _ := NewSessionStore(context.Background(), "c1", storage)
			_ = s.SetToken(context.Background(), tt.token)

			if got := s.TokenExpired(now); got != tt.want {
				t.Errorf("TokenExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseClaims_ReadsUserID(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "a@example.com", "user_id": 7})

	claims, ok := ParseClaims(token)
	if !ok {
		t.Fatal("expected claims to be parsed")
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
}

func TestSessionStore_UserID_FallsBackToTokenClaim(t *testing.T) {
	storage := newMockStorage()
	s, _ := NewSessionStore(context.Background(), "c1", storage)

	if s.UserID() != 0 {
		t.Errorf("UserID = %d, want 0 without token", s.UserID())
	}

	token := signedToken(t, jwt.MapClaims{"sub": "a@example.com", "user_id": 7})
	if err := s.SetToken(context.Background(), token); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}
	if s.UserID() != 7 {
		t.Errorf("UserID = %d, want 7 from token claim", s.UserID())
	}

	s.SetUser(&model.User{ID: 9})
	if s.UserID() != 9 {
		t.Errorf("UserID = %d, want 9 from user", s.UserID())
	}
}
