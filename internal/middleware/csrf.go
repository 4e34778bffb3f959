package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/glowguard/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// トークンはサーバー側でフォームに埋め込むため、HttpOnlyにできる。
	csrfCookieName = "csrf_token"

	// CSRFFieldName はフォームからCSRFトークンを読み取る際のフィールド名。
	CSRFFieldName = "csrf_token"

	// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// multipartMemory はmultipartフォーム解析時にメモリに保持する上限。超過分は一時ファイルに置かれる。
	multipartMemory = 8 << 20
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxFormBytes int64 // フォーム本文の上限。0の場合は制限しない
	// TooLargeRedirect はMaxFormBytesを超えた送信の戻り先。
	// 空の場合やクライアント不明の場合は413を返す。
	TooLargeRedirect string
}

// NewCSRFMiddleware はCSRFトークンの生成・検証ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）はトークン検証をスキップし、
// CSRFトークンCookieを設定してトークンをコンテキストに注入する。
// 状態変更メソッド（POST, PUT, PATCH, DELETE）はCookieとフォーム値
// （またはヘッダー）の一致を必須とする。
func NewCSRFMiddleware(config CSRFConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				token := ensureCSRFCookie(w, r, config, logger)
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenContextKey, token)))
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, logger, "missing cookie token")
				return
			}

			if config.MaxFormBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, config.MaxFormBytes)
			}

			submitted := r.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted, err = formToken(r)
				if err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						rejectTooLarge(w, r, config.TooLargeRedirect)
						return
					}
					rejectCSRF(w, r, logger, "unreadable form")
					return
				}
			}
			if submitted == "" {
				rejectCSRF(w, r, logger, "missing form token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
				rejectCSRF(w, r, logger, "token mismatch")
				return
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFToken はフォームに埋め込むCSRFトークンをコンテキストから取得する。
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}

// formToken はフォーム本文からトークンを読み取る。
// multipartの場合はファイル部分も含めて解析されるため、後続のハンドラーは再解析しない。
func formToken(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue(CSRFFieldName), nil
}

func rejectCSRF(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	logger.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteAppError(w, http.StatusForbidden, &model.AppError{
		Code:     "CSRF_FAILED",
		Message:  "Your form has expired. Please reload the page and try again.",
		Category: "validation",
	})
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie はCSRFトークンCookieが未設定の場合に設定し、有効なトークンを返す。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig, logger *slog.Logger) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		logger.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   86400, // 24時間
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// rejectTooLarge は上限を超えた送信を通知付きで元の画面へ戻す。
func rejectTooLarge(w http.ResponseWriter, r *http.Request, redirect string) {
	appErr := model.NewFileTooLargeError()
	client, err := ClientFromContext(r.Context())
	if redirect == "" || err != nil {
		WriteAppError(w, http.StatusRequestEntityTooLarge, appErr)
		return
	}
	client.Notify(appErr.Notice())
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
