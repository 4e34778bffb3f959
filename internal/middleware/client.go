// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hitoshi/glowguard/internal/store"
)

// clientCookieName はブラウザを識別するクライアントIDのCookie名。
const clientCookieName = "glowguard_client"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	clientContextKey    = contextKey("client")
	csrfTokenContextKey = contextKey("csrf_token")
)

// ClientFinder はクライアントIDからクライアント状態を取得するインターフェース。
// store.Registryが満たす。
type ClientFinder interface {
	Get(ctx context.Context, clientID string) (*store.Client, error)
}

// ClientCookieConfig はクライアントIDCookieの設定。
type ClientCookieConfig struct {
	MaxAge int // 秒
	Secure bool
	Domain string
}

// NewClientMiddleware はCookieからクライアントIDを読み取り、
// 対応するクライアント状態をリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない場合や形式が不正な場合は新しいIDを発行する。
func NewClientMiddleware(finder ClientFinder, config ClientCookieConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ""
			if cookie, err := r.Cookie(clientCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					clientID = id.String()
				}
			}

			if clientID == "" {
				clientID = uuid.NewString()
			}

			// 有効期限を延長するため毎回書き直す
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookieName,
				Value:    clientID,
				Path:     "/",
				Domain:   config.Domain,
				MaxAge:   config.MaxAge,
				HttpOnly: true,
				Secure:   config.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			client, err := finder.Get(r.Context(), clientID)
			if err != nil {
				logger.Error("failed to load client state",
					slog.String("client_id", clientID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClient(r.Context(), client)))
		})
	}
}

// ClientFromContext はリクエストコンテキストからクライアント状態を取得する。
// クライアントミドルウェアを通過したリクエストでのみ有効。
func ClientFromContext(ctx context.Context) (*store.Client, error) {
	client, ok := ctx.Value(clientContextKey).(*store.Client)
	if !ok || client == nil {
		return nil, fmt.Errorf("client not found in context")
	}
	return client, nil
}

// ContextWithClient はコンテキストにクライアント状態を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClient(ctx context.Context, client *store.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}
