package blog

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキスト", "Simple summary", "Simple summary"},
		{"タグの除去", "<p>Hello <strong>skin</strong> care</p>", "Hello skin care"},
		{"scriptの除去", "<p>Visible</p><script>var x = 1;</script>", "Visible"},
		{"styleの除去", "<style>p{color:red}</style>Text", "Text"},
		{"空白の正規化", "<p>a\n\n  b</p>\t<p>c</p>", "a b c"},
		{"エンティティ", "Sun &amp; skin", "Sun & skin"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.input); got != tt.want {
				t.Errorf("Excerpt(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExcerpt_Truncates(t *testing.T) {
	long := strings.Repeat("あ", excerptLength+20)

	got := Excerpt(long)

	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated excerpt should end with ..., got %q", got)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != excerptLength {
		t.Errorf("rune count = %d, want %d", n, excerptLength)
	}
}
