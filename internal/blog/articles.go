// Package blog はスキンケアブログの記事一覧を提供する。
// 外部フィードが設定されていればそれを読み込み、なければ組み込みの記事を返す。
package blog

import "time"

// Article はブログ記事1件。
type Article struct {
	Title     string
	Excerpt   string
	Link      string
	Icon      string
	Published time.Time
}

// Date は一覧表示用の日付を返す。
func (a Article) Date() string {
	if a.Published.IsZero() {
		return ""
	}
	return a.Published.Format("Jan 2, 2006")
}

// StaticArticles は組み込みの記事。フィード未設定時と取得失敗時に使う。
func StaticArticles() []Article {
	return []Article{
		{
			Title:     "Understanding Acne: Causes and Natural Remedies",
			Excerpt:   "Learn what causes acne and discover effective natural remedies to treat it...",
			Icon:      "🧴",
			Published: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Title:     "Skincare Routine for Different Skin Types",
			Excerpt:   "Tailored skincare routines for oily, dry, and combination skin types...",
			Icon:      "✨",
			Published: time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			Title:     "The Role of Diet in Skin Health",
			Excerpt:   "Discover which foods support healthy skin and which ones to avoid...",
			Icon:      "🥗",
			Published: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}
