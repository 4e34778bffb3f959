package blog

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// excerptLength は抜粋の最大文字数（ルーン数）。
const excerptLength = 160

// Excerpt はHTML断片から本文テキストを抜き出し、excerptLength文字に切り詰める。
// script・style内のテキストは含めない。
func Excerpt(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return truncate(strings.Join(strings.Fields(b.String()), " "))
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkipped(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkipped(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isSkipped(tag string) bool {
	return tag == "script" || tag == "style"
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:excerptLength])) + "..."
}
