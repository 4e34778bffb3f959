// Package upload は画像の選択・検証・解析リクエスト送信を扱う。
package upload

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/hitoshi/glowguard/internal/model"
)

// MaxFileSize はアップロードを受け付ける最大サイズ（5 MiB）。
const MaxFileSize int64 = 5 * 1024 * 1024

// Validate はファイルのMIMEタイプとサイズを検証する。
// 検証は (a) MIMEタイプが image/ で始まること、(b) サイズがMaxFileSize以下であること、
// の順に行い、最初に失敗したものを返す。
func Validate(contentType string, size int64) *model.AppError {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return model.NewInvalidFileTypeError()
	}
	if size > MaxFileSize {
		return model.NewFileTooLargeError()
	}
	return nil
}

// DetectContentType はフォームパートのContent-Typeを返す。
// ブラウザが送らなかった場合はファイル名の拡張子から推定する。
func DetectContentType(header, filename string) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return header
}
