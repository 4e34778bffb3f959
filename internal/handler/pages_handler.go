package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/glowguard/internal/blog"
	"github.com/hitoshi/glowguard/internal/view"
)

// ArticleSource はブログ記事の取得元。blog.Serviceが満たす。
type ArticleSource interface {
	Articles(ctx context.Context) []blog.Article
}

// PagesHandler は静的な画面のHTTPハンドラー。
type PagesHandler struct {
	articles ArticleSource
	renderer Renderer
}

// NewPagesHandler はPagesHandlerを生成する。
func NewPagesHandler(articles ArticleSource, renderer Renderer) *PagesHandler {
	return &PagesHandler{articles: articles, renderer: renderer}
}

// Home はホーム画面を表示する。
// GET /
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusOK, view.PageHome, newPage(r, c, "Home", nil))
}

// Blog は記事一覧を表示する。
// GET /blog
func (h *PagesHandler) Blog(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	data := view.BlogData{Articles: h.articles.Articles(r.Context())}
	h.renderer.Render(w, http.StatusOK, view.PageBlog, newPage(r, c, "Blog", data))
}

// BeforeAfter はビフォーアフター画面を表示する。
// GET /before-after
func (h *PagesHandler) BeforeAfter(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusOK, view.PageBeforeAfter, newPage(r, c, "Before & After", view.Gallery()))
}

// NotFound は未定義のパスに対して404画面を表示する。
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.renderer.Render(w, http.StatusNotFound, view.PageNotFound, newPage(r, c, "Not Found", nil))
}
