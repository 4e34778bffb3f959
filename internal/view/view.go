// Package view は画面テンプレートを描画する。
// テンプレートはバイナリに埋め込み、起動時に一度だけ解析する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/glowguard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面名
const (
	PageHome        = "home"
	PageUpload      = "upload"
	PageResults     = "results"
	PageProfile     = "profile"
	PageBlog        = "blog"
	PageBeforeAfter = "before_after"
	PageLogin       = "login"
	PageRegister    = "register"
	PageNotFound    = "not_found"
)

var pageNames = []string{
	PageHome, PageUpload, PageResults, PageProfile, PageBlog,
	PageBeforeAfter, PageLogin, PageRegister, PageNotFound,
}

// Page は全画面に共通する描画データ。
type Page struct {
	Title      string
	Path       string
	ShowChrome bool // ヘッダー・フッターを表示するか
	User       *model.User
	LoggedIn   bool
	Notices    []model.Notice
	CSRFToken  string
	Data       any // 画面固有のデータ
}

// Renderer は解析済みテンプレートを保持する。
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// New は埋め込みテンプレートを解析してRendererを生成する。
func New(logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"title": titleCase,
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render は画面をバッファに描画してから書き出す。
// 描画に失敗した場合は途中までのHTMLを返さず500にする。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		r.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// titleCase は単語の先頭を大文字にする（skin_typeなどの表示用）。
func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
