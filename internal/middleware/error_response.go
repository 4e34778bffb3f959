package middleware

import (
	"net/http"

	"github.com/hitoshi/glowguard/internal/model"
)

// errorCodeHeader はエラーコードを返すレスポンスヘッダー。
const errorCodeHeader = "X-Error-Code"

// WriteAppError はAppErrorをプレーンテキストのエラーレスポンスとして書き込む。
// 画面遷移を伴わない応答（プレビュー画像、レート制限など）で使用する。
func WriteAppError(w http.ResponseWriter, statusCode int, appErr *model.AppError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set(errorCodeHeader, appErr.Code)
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(appErr.Message + "\n"))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAppError(w, http.StatusInternalServerError, &model.AppError{
		Code:     "INTERNAL_ERROR",
		Message:  "Something went wrong. Please try again later.",
		Category: "system",
	})
}
