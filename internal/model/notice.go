package model

// NoticeLevel は通知の種類を表す。
type NoticeLevel string

const (
	// NoticeSuccess は成功通知。
	NoticeSuccess NoticeLevel = "success"
	// NoticeError はエラー通知。
	NoticeError NoticeLevel = "error"
	// NoticeInfo は情報通知。
	NoticeInfo NoticeLevel = "info"
)

// Notice は一度だけ表示される一時的な通知（トースト）。
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Success は成功通知を生成する。
func Success(message string) Notice {
	return Notice{Level: NoticeSuccess, Message: message}
}

// Failure はエラー通知を生成する。
func Failure(message string) Notice {
	return Notice{Level: NoticeError, Message: message}
}
