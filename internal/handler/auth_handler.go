package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/glowguard/internal/api"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/store"
	"github.com/hitoshi/glowguard/internal/view"
)

// AuthAPI は認証ハンドラーが必要とするバックエンドAPIのインターフェース。
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error)
	Register(ctx context.Context, reg model.Registration) error
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	api      AuthAPI
	renderer Renderer
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(authAPI AuthAPI, renderer Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{api: authAPI, renderer: renderer, logger: logger}
}

// LoginPage はログイン画面を表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusOK, view.PageLogin, newPage(r, c, "Login", view.AuthForm{}))
}

// Login はログインフォームを処理する。
// 成功時はトークンを保存してからユーザーを設定し、ホームへ遷移する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	form := view.AuthForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	password := r.PostFormValue("password")

	if form.Email == "" {
		h.formError(w, r, c, view.PageLogin, form, model.NewMissingFieldError("email").Notice())
		return
	}
	if password == "" {
		h.formError(w, r, c, view.PageLogin, form, model.NewMissingFieldError("password").Notice())
		return
	}

	result, err := h.api.Login(r.Context(), model.Credentials{Email: form.Email, Password: password})
	if err != nil {
		h.logger.Info("login failed",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		h.formError(w, r, c, view.PageLogin, form, model.Failure(api.MessageOf(err, "Login failed")))
		return
	}

	previous := c.Session.UserID()
	if err := c.Session.SetToken(r.Context(), result.AccessToken); err != nil {
		h.logger.Error("failed to persist session token",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		h.formError(w, r, c, view.PageLogin, form, model.NewStorageError().Notice())
		return
	}
	c.Session.SetUser(result.User)
	// 別のユーザーに切り替わった場合は前のユーザーの解析結果を残さない
	if previous != 0 && previous != c.Session.UserID() {
		c.Predictions.Reset()
	}

	n := model.Success("Logged in successfully!")
	redirect(w, r, c, "/", &n)
}

// RegisterPage はユーザー登録画面を表示する。
// GET /register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusOK, view.PageRegister, newPage(r, c, "Create Account", view.AuthForm{}))
}

// Register はユーザー登録フォームを処理する。
// 氏名は入力された場合のみ送信する。成功時はログイン画面へ遷移する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	form := view.AuthForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Username: strings.TrimSpace(r.PostFormValue("username")),
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
	}
	password := r.PostFormValue("password")

	for _, f := range []struct{ name, value string }{
		{"email", form.Email},
		{"username", form.Username},
		{"password", password},
	} {
		if f.value == "" {
			h.formError(w, r, c, view.PageRegister, form, model.NewMissingFieldError(f.name).Notice())
			return
		}
	}

	err := h.api.Register(r.Context(), model.Registration{
		Email:    form.Email,
		Username: form.Username,
		Password: password,
		FullName: form.FullName,
	})
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		h.formError(w, r, c, view.PageRegister, form, model.Failure(api.MessageOf(err, "Registration failed")))
		return
	}

	n := model.Success("Account created! Please login.")
	redirect(w, r, c, "/login", &n)
}

// Logout はトークンとユーザー、解析結果を破棄してホームへ遷移する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	if err := c.Session.Logout(r.Context()); err != nil {
		h.logger.Error("failed to clear session",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		n := model.NewStorageError().Notice()
		redirect(w, r, c, "/", &n)
		return
	}
	c.Predictions.Reset()

	redirect(w, r, c, "/", nil)
}

// formError は入力値を保ったままフォーム画面を再表示する。
func (h *AuthHandler) formError(w http.ResponseWriter, r *http.Request, c *store.Client, page string, form view.AuthForm, n model.Notice) {
	c.Notify(n)
	title := "Login"
	if page == view.PageRegister {
		title = "Create Account"
	}
	h.renderer.Render(w, http.StatusUnprocessableEntity, page, newPage(r, c, title, form))
}
