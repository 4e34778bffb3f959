package view

import (
	"github.com/hitoshi/glowguard/internal/blog"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/report"
	"github.com/hitoshi/glowguard/internal/results"
)

// UploadData はアップロード画面のデータ。
type UploadData struct {
	Selected bool
	Filename string
	SizeKB   int64
	Loading  bool
}

// ResultsData は結果画面のデータ。
type ResultsData struct {
	View   *results.View
	Report *report.Report
}

// ProfileData はプロフィール画面のデータ。
type ProfileData struct {
	User      *model.User
	Editing   bool
	SkinTypes []string
	History   []HistoryEntry
}

// HistoryEntry は解析履歴の1行。
type HistoryEntry struct {
	ID         model.PredictionID
	Disease    string
	Percent    int
	Severity   string
	AnalyzedAt string
}

// BlogData はブログ画面のデータ。
type BlogData struct {
	Articles []blog.Article
}

// GalleryItem はビフォーアフター画面の1件。
type GalleryItem struct {
	Before string
	After  string
	Title  string
}

// AuthForm はログイン・登録画面の入力値。
// パスワードは再表示しない。
type AuthForm struct {
	Email    string
	Username string
	FullName string
}

// Gallery はビフォーアフター画面の固定コンテンツ。
func Gallery() []GalleryItem {
	return []GalleryItem{
		{Before: "😔", After: "😊", Title: "Acne Treatment"},
		{Before: "😓", After: "✨", Title: "Eczema Relief"},
		{Before: "🤔", After: "😄", Title: "Skin Improvement"},
	}
}
