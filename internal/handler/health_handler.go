package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はストレージ疎通確認のタイムアウト。
const healthCheckTimeout = 5 * time.Second

// Pinger は疎通確認ができる依存先。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	storage Pinger
	logger  *slog.Logger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{storage: storage, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health はアプリケーションとクライアントストレージの状態を返す。
// ストレージに到達できない場合は503でdegradedを返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status: "healthy",
		Checks: map[string]string{"app": "ok"},
	}
	status := http.StatusOK

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Checks["storage"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Checks["storage"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
