package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/glowguard/internal/api"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/report"
	"github.com/hitoshi/glowguard/internal/store"
	"github.com/hitoshi/glowguard/internal/view"
)

// SkinTypes はプロフィールで選択できる肌質。
var SkinTypes = []string{"oily", "dry", "combination", "normal"}

// historyDateLayout は解析履歴の日付表示形式。
const historyDateLayout = "Jan 2, 2006"

// ProfileAPI はプロフィールハンドラーが必要とするバックエンドAPIのインターフェース。
type ProfileAPI interface {
	GetProfile(ctx context.Context, token string) (*model.User, error)
	UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.User, error)
	PredictionHistory(ctx context.Context, token string, userID int) ([]model.Prediction, error)
}

// ProfileHandler はプロフィール画面のHTTPハンドラー。
type ProfileHandler struct {
	api      ProfileAPI
	renderer Renderer
	logger   *slog.Logger
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(profileAPI ProfileAPI, renderer Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{api: profileAPI, renderer: renderer, logger: logger}
}

// Show はプロフィールと解析履歴を表示する。?edit=1で編集フォームを表示する。
// GET /profile
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	token := c.Session.Token()

	// 再起動後などトークンのみ残っている場合はプロフィールを取り直す
	user := c.Session.User()
	if user == nil {
		u, err := h.api.GetProfile(ctx, token)
		if err != nil {
			h.logger.Warn("failed to load profile",
				slog.String("client_id", c.ID),
				slog.String("error", err.Error()),
			)
			c.Notify(model.Failure(api.MessageOf(err, "Failed to load profile")))
		} else {
			c.Session.SetUser(u)
			user = u
		}
	}

	data := view.ProfileData{
		User:      user,
		Editing:   r.URL.Query().Get("edit") == "1",
		SkinTypes: SkinTypes,
		History:   h.history(ctx, c, token),
	}
	h.renderer.Render(w, http.StatusOK, view.PageProfile, newPage(r, c, "Profile", data))
}

// history はバックエンドの解析履歴を返す。
// プロフィールを取得できなかった場合はトークンのuser_idで問い合わせ、
// それも取得できない場合はこのクライアントで解析した結果で代替する。
func (h *ProfileHandler) history(ctx context.Context, c *store.Client, token string) []view.HistoryEntry {
	if userID := c.Session.UserID(); userID != 0 {
		predictions, err := h.api.PredictionHistory(ctx, token, userID)
		if err == nil {
			entries := make([]view.HistoryEntry, 0, len(predictions))
			for _, p := range predictions {
				entries = append(entries, historyEntry(p))
			}
			return entries
		}
		h.logger.Info("prediction history unavailable",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
	}

	records := c.Predictions.List()
	entries := make([]view.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry(rec.Prediction))
	}
	return entries
}

func historyEntry(p model.Prediction) view.HistoryEntry {
	e := view.HistoryEntry{
		ID:       p.ID,
		Disease:  p.DiseaseName,
		Percent:  report.Rate(p.Confidence).Percent,
		Severity: p.Severity,
	}
	if !p.Timestamp.IsZero() {
		e.AnalyzedAt = p.Timestamp.Format(historyDateLayout)
	}
	return e
}

// Update はプロフィール編集フォームを処理する。
// 成功時は表示モードへ、失敗時は編集モードのまま遷移する。
// POST /profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	update := model.ProfileUpdate{
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		SkinType: strings.TrimSpace(r.PostFormValue("skin_type")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 1 || age > 150 {
			n := model.Failure("Please enter a valid age")
			redirect(w, r, c, "/profile?edit=1", &n)
			return
		}
		update.Age = &age
	}

	user, err := h.api.UpdateProfile(r.Context(), c.Session.Token(), update)
	if err != nil {
		h.logger.Warn("failed to update profile",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		n := model.Failure(api.MessageOf(err, "Failed to update profile"))
		redirect(w, r, c, "/profile?edit=1", &n)
		return
	}

	c.Session.SetUser(user)
	n := model.Success("Profile updated!")
	redirect(w, r, c, "/profile", &n)
}
