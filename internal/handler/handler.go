// Package handler はHTTPハンドラーを提供する。
// 各ハンドラーはフォーム送信を処理した後に通知を積んでリダイレクトし、
// 画面の描画はGETリクエストでのみ行う。
package handler

import (
	"errors"
	"net/http"

	"github.com/hitoshi/glowguard/internal/middleware"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/store"
	"github.com/hitoshi/glowguard/internal/view"
)

// Renderer は画面描画のインターフェース。view.Rendererが満たす。
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page view.Page)
}

// chromelessPaths はヘッダー・フッターを表示しないパス。
var chromelessPaths = map[string]bool{
	"/login":    true,
	"/register": true,
}

// ShowChrome はpathの画面でヘッダー・フッターを表示するかを返す。
func ShowChrome(path string) bool {
	return !chromelessPaths[path]
}

// currentClient はリクエストのクライアント状態を取得する。
// 取得できない場合は500を書き込みfalseを返す。
func currentClient(w http.ResponseWriter, r *http.Request) (*store.Client, bool) {
	c, err := middleware.ClientFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return c, true
}

// newPage は共通の描画データを組み立てる。未表示の通知はここで取り出される。
func newPage(r *http.Request, c *store.Client, title string, data any) view.Page {
	return view.Page{
		Title:      title,
		Path:       r.URL.Path,
		ShowChrome: ShowChrome(r.URL.Path),
		User:       c.Session.User(),
		LoggedIn:   c.Session.IsAuthenticated(),
		Notices:    c.TakeNotices(),
		CSRFToken:  middleware.CSRFToken(r.Context()),
		Data:       data,
	}
}

// redirect は通知を積んでtargetへ303で遷移させる。
func redirect(w http.ResponseWriter, r *http.Request, c *store.Client, target string, notice *model.Notice) {
	if notice != nil {
		c.Notify(*notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// noticeOf はエラーを通知に変換する。AppErrorでなければfallbackを使う。
func noticeOf(err error, fallback string) *model.Notice {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		n := appErr.Notice()
		return &n
	}
	n := model.Failure(fallback)
	return &n
}
