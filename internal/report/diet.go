package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DietKind は食事アドバイスの入力の形。
type DietKind int

const (
	DietNone     DietKind = iota // データなし
	DietText                     // 文字列
	DietSections                 // キーごとの小見出し
	DietLiteral                  // その他の形（そのまま文字列表示）
)

// DietSubsection は食事アドバイスの小見出し1件。
// 値が文字列ならText、文字列の配列ならItems、それ以外はJSONの文字列をTextに持つ。
type DietSubsection struct {
	Title string
	Text  string
	Items []string
}

// Missing は空文字列や空配列など、表示する中身がないかを返す。
func (s DietSubsection) Missing() bool {
	return s.Text == "" && len(s.Items) == 0
}

// Placeholder は中身がない小見出しに出す文言。
func (s DietSubsection) Placeholder() string {
	return NotAvailableText
}

// DietAdvice は食事アドバイスの表示内容。
type DietAdvice struct {
	Kind     DietKind
	Text     string
	Sections []DietSubsection
}

// Available は表示できる内容があるかを返す。
func (d DietAdvice) Available() bool {
	return d.Kind != DietNone
}

// HasSections は小見出し形式かを返す。
func (d DietAdvice) HasSections() bool {
	return d.Kind == DietSections
}

// ParseDietAdvice はバックエンドのdiet_adviceを表示用に変換する。
// オブジェクトのキー順は入力の順序を保つ。
func ParseDietAdvice(raw json.RawMessage) DietAdvice {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DietAdvice{Kind: DietNone}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return DietAdvice{Kind: DietNone}
		}
		return DietAdvice{Kind: DietText, Text: s}
	case '{':
		sections, err := decodeSections(trimmed)
		if err != nil {
			return DietAdvice{Kind: DietLiteral, Text: string(trimmed)}
		}
		if len(sections) == 0 {
			return DietAdvice{Kind: DietNone}
		}
		return DietAdvice{Kind: DietSections, Sections: sections}
	default:
		return DietAdvice{Kind: DietLiteral, Text: compact(trimmed)}
	}
}

// decodeSections はJSONオブジェクトをキー順に小見出しへ変換する。
func decodeSections(obj []byte) ([]DietSubsection, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil { // '{'
		return nil, err
	}

	var sections []DietSubsection
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		sections = append(sections, subsection(key, value))
	}

	if _, err := dec.Token(); err != nil && err != io.EOF { // '}'
		return nil, err
	}
	return sections, nil
}

func subsection(key string, value json.RawMessage) DietSubsection {
	sub := DietSubsection{Title: strings.ReplaceAll(key, "_", " ")}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		sub.Text = s
		return sub
	}
	var items []string
	if err := json.Unmarshal(value, &items); err == nil && items != nil {
		if len(items) > 0 {
			sub.Items = items
		}
		return sub
	}
	sub.Text = compact(value)
	return sub
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
