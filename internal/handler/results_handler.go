package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/glowguard/internal/middleware"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/report"
	"github.com/hitoshi/glowguard/internal/results"
	"github.com/hitoshi/glowguard/internal/store"
	"github.com/hitoshi/glowguard/internal/view"
)

// ResultsLoader は結果画面の取得処理のインターフェース。results.Loaderが満たす。
type ResultsLoader interface {
	Load(ctx context.Context, c *store.Client, id model.PredictionID) (*results.View, error)
}

// ResultsHandler は結果画面のHTTPハンドラー。
type ResultsHandler struct {
	loader   ResultsLoader
	builder  *report.Builder
	renderer Renderer
	logger   *slog.Logger
}

// NewResultsHandler はResultsHandlerを生成する。
func NewResultsHandler(loader ResultsLoader, builder *report.Builder, renderer Renderer, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{loader: loader, builder: builder, renderer: renderer, logger: logger}
}

// Show は予測結果を取得して診断レポートを表示する。
// 展開するセクションは?open=で指定する。
// GET /results/{id}
func (h *ResultsHandler) Show(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	id := model.PredictionID(chi.URLParam(r, "id"))
	v, err := h.loader.Load(r.Context(), c, id)
	if errors.Is(err, results.ErrDiscarded) {
		// クライアントは既に離脱しているため何も返さない
		return
	}
	if err != nil {
		h.logger.Error("failed to load results",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	// error状態では画面内にメッセージを表示する
	data := view.ResultsData{View: v}
	if v.Phase == results.PhaseLoaded {
		accordion := report.NewAccordion(report.ParseSection(r.URL.Query().Get("open")))
		data.Report = h.builder.Build(v.Record, accordion)
	}

	h.renderer.Render(w, http.StatusOK, view.PageResults, newPage(r, c, "Results", data))
}
