// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はバックエンドや外部フィードから届いたテキストを
// 画面に出す前に無害化する。診断の説明文などはタグを一切残さず、
// ブログ記事の抜粋のみ限定的なHTMLを許可する。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はサニタイズ機能のインターフェース。
type ContentSanitizer interface {
	// Text はタグをすべて除去したプレーンテキストを返す。
	// 戻り値はテンプレート側で改めてエスケープされる前提のため、
	// HTMLエンティティはデコード済みの文字列で返す。
	Text(raw string) string

	// HTML は許可リストのタグのみを残した安全なHTMLを返す。
	// 許可タグ: p, br, a, ul, ol, li, blockquote, strong, em, img
	// imgのsrcはhttpsのみ。aにはtarget="_blank"とrel="noopener noreferrer"を付与する。
	HTML(raw string) string
}

type contentSanitizer struct {
	text *bluemonday.Policy
	rich *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// bluemondayのポリシーはスレッドセーフなため、インスタンスを共有してよい。
func NewContentSanitizer() ContentSanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "blockquote", "strong", "em")

	rich.AllowAttrs("href").OnElements("a")
	rich.AllowRelativeURLs(false)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	rich.AllowAttrs("src", "alt").OnElements("img")
	rich.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })

	return &contentSanitizer{
		text: bluemonday.StrictPolicy(),
		rich: rich,
	}
}

func (s *contentSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(raw)))
}

func (s *contentSanitizer) HTML(raw string) string {
	return s.rich.Sanitize(raw)
}
