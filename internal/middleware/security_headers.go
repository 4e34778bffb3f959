package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// imgOriginは解析画像を配信するバックエンドのオリジン（例: http://localhost:8000）。
func NewSecurityHeadersMiddleware(imgOrigin string) func(next http.Handler) http.Handler {
	csp := "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:"
	if imgOrigin != "" {
		csp += " " + imgOrigin
	}
	csp += "; frame-ancestors 'none'; form-action 'self'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
