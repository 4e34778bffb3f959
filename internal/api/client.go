// Package api はGlowGuardバックエンドのREST APIクライアントを提供する。
// 認証・ユーザー・予測・商品の4つの関心事をひとつの設定済みクライアントで扱う。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL はバックエンドAPIのデフォルトのベースURL。
const DefaultBaseURL = "http://localhost:8000/api"

// maxErrorBodySize はエラーレスポンスとして読み取る最大バイト数。
const maxErrorBodySize = 64 * 1024

// CallRecorder はバックエンド呼び出しの結果を記録するインターフェース。
// metrics.Collectorが実装する。
type CallRecorder interface {
	RecordAPICall(endpoint string, statusCode int, duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
// ベースURLを付与し、トークンが渡された呼び出しにはBearer認証ヘッダーを付与する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	recorder   CallRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithRecorder は呼び出し結果の記録先を設定したClientを返す。
func (c *Client) WithRecorder(recorder CallRecorder) *Client {
	cp := *c
	cp.recorder = recorder
	return &cp
}

// Error はバックエンドが返したエラーレスポンスを表す。
// Detailにはサーバーが返したメッセージ（存在する場合）を保持する。
type Error struct {
	StatusCode int
	Detail     string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// MessageOf はユーザーに表示するメッセージを返す。
// サーバーが返したメッセージがあればそれを、なければfallbackを返す。
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// request は1回のバックエンド呼び出しを表す。
type request struct {
	method      string
	path        string
	endpoint    string // メトリクス用のパステンプレート
	token       string
	body        io.Reader
	contentType string
}

// do はリクエストを送信し、成功時にはレスポンスをoutへデコードする。
// outがnilの場合はレスポンスボディを破棄する。
func (c *Client) do(ctx context.Context, r request, out any) error {
	reqURL, err := url.JoinPath(c.baseURL, r.path)
	if err != nil {
		return fmt.Errorf("リクエストURLの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, r.body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "GlowGuard-Web/1.0")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.record(r.endpoint, 0, duration)
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("method", r.method),
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", r.method, r.endpoint, err)
	}
	defer resp.Body.Close()

	c.record(r.endpoint, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
		}
		c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
			slog.String("method", r.method),
			slog.String("endpoint", r.endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("バックエンドAPIのレスポンスのパースに失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// doJSON はbodyをJSONにエンコードしてリクエストを送信する。
func (c *Client) doJSON(ctx context.Context, r request, body any, out any) error {
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = "application/json"
	}
	return c.do(ctx, r, out)
}

func (c *Client) record(endpoint string, statusCode int, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordAPICall(endpoint, statusCode, duration)
	}
}

// parseDetail はエラーレスポンスからユーザー向けメッセージを取り出す。
// detailは文字列のほか、バリデーションエラーの配列で返ることがある。
func parseDetail(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return envelope.Message
}
