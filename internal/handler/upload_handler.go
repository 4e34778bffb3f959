package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/glowguard/internal/middleware"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/upload"
	"github.com/hitoshi/glowguard/internal/view"
)

// UploadHandler はアップロード画面のHTTPハンドラー。
type UploadHandler struct {
	flow     *upload.Flow
	renderer Renderer
	logger   *slog.Logger
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(flow *upload.Flow, renderer Renderer, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{flow: flow, renderer: renderer, logger: logger}
}

// Page はアップロード画面を表示する。
// GET /upload
func (h *UploadHandler) Page(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	data := view.UploadData{Loading: c.Loading()}
	if sel, ok := h.flow.Preview(c); ok {
		data.Selected = true
		data.Filename = sel.Filename
		data.SizeKB = (sel.Size() + 1023) / 1024
	}
	h.renderer.Render(w, http.StatusOK, view.PageUpload, newPage(r, c, "Analyze", data))
}

// Select は選択された画像を検証して保持する。
// POST /upload
func (h *UploadHandler) Select(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Warn("failed to read upload form",
				slog.String("client_id", c.ID),
				slog.String("error", err.Error()),
			)
		}
		redirect(w, r, c, upload.UploadPath, noticeOf(model.NewNoFileSelectedError(), ""))
		return
	}
	f.Close()

	err = h.flow.Select(c, upload.File{
		Filename:    fh.Filename,
		ContentType: upload.DetectContentType(fh.Header.Get("Content-Type"), fh.Filename),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	})
	if err != nil {
		var appErr *model.AppError
		if !errors.As(err, &appErr) {
			h.logger.Error("failed to retain uploaded image",
				slog.String("client_id", c.ID),
				slog.String("error", err.Error()),
			)
		}
		redirect(w, r, c, upload.UploadPath, noticeOf(err, "Could not read the selected image"))
		return
	}

	redirect(w, r, c, upload.UploadPath, nil)
}

// Clear は選択中の画像を破棄する（Choose Different Image）。
// POST /upload/clear
func (h *UploadHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}
	h.flow.Clear(c)
	redirect(w, r, c, upload.UploadPath, nil)
}

// Preview は保持中の画像をそのまま返す。
// GET /upload/preview
func (h *UploadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	sel, ok := h.flow.Preview(c)
	if !ok {
		middleware.WriteAppError(w, http.StatusNotFound, model.NewNoFileSelectedError())
		return
	}

	w.Header().Set("Content-Type", sel.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(sel.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	// SVGなどを直接開かれた場合にスクリプトを実行させない
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(sel.Data)
	}
}

// Analyze は選択中の画像を解析APIへ送信する。
// POST /upload/analyze
func (h *UploadHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	c, ok := currentClient(w, r)
	if !ok {
		return
	}

	outcome := h.flow.Submit(r.Context(), c)
	target := outcome.Redirect
	if target == "" {
		target = upload.UploadPath
	}
	redirect(w, r, c, target, outcome.Notice)
}
