package model

import "fmt"

// AppError はユーザーに通知するエラーを表す。
// Categoryはエラー分類（validation, auth, remote, system）。
type AppError struct {
	Code     string // エラーコード
	Message  string // 通知に表示するメッセージ
	Category string // カテゴリ: validation, auth, remote, system
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Notice は通知としてそのまま表示できる形に変換する。
func (e *AppError) Notice() Notice {
	return Notice{Level: NoticeError, Message: e.Message}
}

// 定義済みエラーコード
const (
	ErrCodeInvalidFileType = "INVALID_FILE_TYPE"
	ErrCodeFileTooLarge    = "FILE_TOO_LARGE"
	ErrCodeNoFileSelected  = "NO_FILE_SELECTED"
	ErrCodeLoginRequired   = "LOGIN_REQUIRED"
	ErrCodeMissingField    = "MISSING_FIELD"
	ErrCodeStorageFailed   = "STORAGE_FAILED"
)

// NewInvalidFileTypeError は画像以外のファイルが選択された場合のエラーを生成する。
func NewInvalidFileTypeError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidFileType,
		Message:  "Please select an image file",
		Category: "validation",
	}
}

// NewFileTooLargeError はファイルサイズ超過エラーを生成する。
func NewFileTooLargeError() *AppError {
	return &AppError{
		Code:     ErrCodeFileTooLarge,
		Message:  "File size must be less than 5MB",
		Category: "validation",
	}
}

// NewNoFileSelectedError はファイル未選択で解析を要求された場合のエラーを生成する。
func NewNoFileSelectedError() *AppError {
	return &AppError{
		Code:     ErrCodeNoFileSelected,
		Message:  "Please select an image",
		Category: "validation",
	}
}

// NewLoginRequiredError は未ログインで認証が必要な操作を行った場合のエラーを生成する。
func NewLoginRequiredError() *AppError {
	return &AppError{
		Code:     ErrCodeLoginRequired,
		Message:  "Please login first",
		Category: "auth",
	}
}

// NewMissingFieldError は必須フォーム項目が空の場合のエラーを生成する。
func NewMissingFieldError(field string) *AppError {
	return &AppError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("Please fill in the %s field", field),
		Category: "validation",
	}
}

// NewStorageError はクライアントストレージへの書き込み失敗エラーを生成する。
func NewStorageError() *AppError {
	return &AppError{
		Code:     ErrCodeStorageFailed,
		Message:  "Could not save your session. Please try again.",
		Category: "system",
	}
}
