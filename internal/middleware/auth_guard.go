package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/glowguard/internal/model"
)

// 認証ガードの通知文言
const (
	loginRequiredMessage  = "Please login first"
	sessionExpiredMessage = "Your session has expired. Please login again."
)

// NewRequireAuthMiddleware は未ログインのクライアントをloginPathへリダイレクトするミドルウェアを返す。
// トークンのexpが過去の場合はログアウトしてから同様にリダイレクトする。
// クライアントミドルウェアの後に配置すること。
func NewRequireAuthMiddleware(loginPath string, now func() time.Time, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := ClientFromContext(r.Context())
			if err != nil {
				WriteInternalServerError(w)
				return
			}

			session := client.Session
			if !session.IsAuthenticated() {
				client.Notify(model.Failure(loginRequiredMessage))
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			if session.TokenExpired(now()) {
				if err := session.Logout(r.Context()); err != nil {
					logger.Error("failed to clear expired session",
						slog.String("client_id", client.ID),
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				client.Notify(model.Failure(sessionExpiredMessage))
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
