package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/view"
)

type mockProfileAPI struct {
	getFn     func(ctx context.Context, token string) (*model.User, error)
	updateFn  func(ctx context.Context, token string, update model.ProfileUpdate) (*model.User, error)
	historyFn func(ctx context.Context, token string, userID int) ([]model.Prediction, error)
	getCalls  int
}

func (m *mockProfileAPI) GetProfile(ctx context.Context, token string) (*model.User, error) {
	m.getCalls++
	return m.getFn(ctx, token)
}

func (m *mockProfileAPI) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.User, error) {
	return m.updateFn(ctx, token, update)
}

func (m *mockProfileAPI) PredictionHistory(ctx context.Context, token string, userID int) ([]model.Prediction, error) {
	return m.historyFn(ctx, token, userID)
}

func profileData(t *testing.T, r *mockRenderer) view.ProfileData {
	t.Helper()
	data, ok := r.last(t).page.Data.(view.ProfileData)
	if !ok {
		t.Fatalf("unexpected data type %T", r.last(t).page.Data)
	}
	return data
}

// ユーザー情報がない場合はプロフィールを取得して保持する
func TestProfileHandler_Show_LoadsProfile(t *testing.T) {
	analyzedAt := model.Timestamp{Time: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	profileAPI := &mockProfileAPI{
		getFn: func(ctx context.Context, token string) (*model.User, error) {
			return &model.User{ID: 42, Email: "a@example.com", FullName: "Alice"}, nil
		},
		historyFn: func(ctx context.Context, token string, userID int) ([]model.Prediction, error) {
			if userID != 42 {
				t.Errorf("userID = %d, want 42", userID)
			}
			return []model.Prediction{
				{ID: "p1", DiseaseName: "Acne", Confidence: 0.876, Severity: "mild", Timestamp: analyzedAt},
			}, nil
		},
	}
	renderer := &mockRenderer{}
	h := NewProfileHandler(profileAPI, renderer, testLogger())
	c := newTestClient(t, "tok")

	h.Show(httptest.NewRecorder(), withClient(httptest.NewRequest(http.MethodGet, "/profile", nil), c))

	if u := c.Session.User(); u == nil || u.ID != 42 {
		t.Errorf("user should be stored in session, got %+v", u)
	}
	data := profileData(t, renderer)
	if data.Editing {
		t.Error("should not be in edit mode")
	}
	if len(data.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(data.History))
	}
	want := view.HistoryEntry{ID: "p1", Disease: "Acne", Percent: 88, Severity: "mild", AnalyzedAt: "Mar 5, 2024"}
	if data.History[0] != want {
		t.Errorf("history = %+v, want %+v", data.History[0], want)
	}

	// 2回目以降は保持しているユーザーを使う
	h.Show(httptest.NewRecorder(), withClient(httptest.NewRequest(http.MethodGet, "/profile", nil), c))
	if profileAPI.getCalls != 1 {
		t.Errorf("GetProfile should be called once, got %d", profileAPI.getCalls)
	}
}

// 履歴APIが失敗した場合はこのクライアントの解析結果で代替する
func TestProfileHandler_Show_HistoryFallback(t *testing.T) {
	profileAPI := &mockProfileAPI{
		historyFn: func(ctx context.Context, token string, userID int) ([]model.Prediction, error) {
			return nil, errors.New("unavailable")
		},
	}
	renderer := &mockRenderer{}
	h := NewProfileHandler(profileAPI, renderer, testLogger())
	c := newTestClient(t, "tok")
	c.Session.SetUser(&model.User{ID: 1})
	c.Predictions.Add(&model.PredictionRecord{Prediction: model.Prediction{ID: "old", DiseaseName: "Eczema"}})
	c.Predictions.Add(&model.PredictionRecord{Prediction: model.Prediction{ID: "new", DiseaseName: "Acne"}})

	h.Show(httptest.NewRecorder(), withClient(httptest.NewRequest(http.MethodGet, "/profile?edit=1", nil), c))

	data := profileData(t, renderer)
	if !data.Editing {
		t.Error("edit=1 should enable edit mode")
	}
	if len(data.History) != 2 || data.History[0].ID != "new" {
		t.Errorf("unexpected fallback history: %+v", data.History)
	}
	if len(data.SkinTypes) != 4 {
		t.Errorf("expected 4 skin types, got %v", data.SkinTypes)
	}
}

// プロフィールを取得できない場合でもトークンのuser_idで履歴を取得する
func TestProfileHandler_Show_HistoryByTokenClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@example.com", "user_id": 7}).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	var gotUserID int
	profileAPI := &mockProfileAPI{
		getFn: func(ctx context.Context, token string) (*model.User, error) {
			return nil, errors.New("unavailable")
		},
		historyFn: func(ctx context.Context, token string, userID int) ([]model.Prediction, error) {
			gotUserID = userID
			return []model.Prediction{{ID: "remote", DiseaseName: "Acne"}}, nil
		},
	}
	renderer := &mockRenderer{}
	h := NewProfileHandler(profileAPI, renderer, testLogger())
	c := newTestClient(t, token)
	c.Predictions.Add(&model.PredictionRecord{Prediction: model.Prediction{ID: "local", DiseaseName: "Eczema"}})

	h.Show(httptest.NewRecorder(), withClient(httptest.NewRequest(http.MethodGet, "/profile", nil), c))

	if gotUserID != 7 {
		t.Errorf("userID = %d, want 7", gotUserID)
	}
	data := profileData(t, renderer)
	if data.User != nil {
		t.Errorf("user should be nil, got %+v", data.User)
	}
	if len(data.History) != 1 || data.History[0].ID != "remote" {
		t.Errorf("history should come from backend: %+v", data.History)
	}
}

func TestProfileHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		updateErr  error
		wantTarget string
		wantLevel  model.NoticeLevel
		wantMsg    string
		wantCalled bool
	}{
		{
			name:       "success",
			form:       url.Values{"full_name": {"Alice"}, "age": {"30"}, "skin_type": {"oily"}},
			wantTarget: "/profile",
			wantLevel:  model.NoticeSuccess,
			wantMsg:    "Profile updated!",
			wantCalled: true,
		},
		{
			name:       "remote failure",
			form:       url.Values{"full_name": {"Alice"}},
			updateErr:  errors.New("boom"),
			wantTarget: "/profile?edit=1",
			wantLevel:  model.NoticeError,
			wantMsg:    "Failed to update profile",
			wantCalled: true,
		},
		{
			name:       "invalid age",
			form:       url.Values{"age": {"abc"}},
			wantTarget: "/profile?edit=1",
			wantLevel:  model.NoticeError,
			wantMsg:    "Please enter a valid age",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *model.ProfileUpdate
			profileAPI := &mockProfileAPI{
				updateFn: func(ctx context.Context, token string, update model.ProfileUpdate) (*model.User, error) {
					got = &update
					if tt.updateErr != nil {
						return nil, tt.updateErr
					}
					return &model.User{ID: 1, FullName: update.FullName, Age: update.Age, SkinType: update.SkinType}, nil
				},
			}
			h := NewProfileHandler(profileAPI, &mockRenderer{}, testLogger())
			c := newTestClient(t, "tok")

			w := httptest.NewRecorder()
			h.Update(w, withClient(postForm("/profile", tt.form), c))

			assertRedirect(t, w, tt.wantTarget)
			assertNotice(t, c, tt.wantLevel, tt.wantMsg)
			if (got != nil) != tt.wantCalled {
				t.Fatalf("UpdateProfile called = %v, want %v", got != nil, tt.wantCalled)
			}
			if tt.name == "success" {
				if got.Age == nil || *got.Age != 30 || got.SkinType != "oily" {
					t.Errorf("unexpected update: %+v", got)
				}
				if u := c.Session.User(); u == nil || u.FullName != "Alice" {
					t.Errorf("session user should be replaced, got %+v", u)
				}
			}
		})
	}
}
