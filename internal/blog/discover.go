package blog

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedLink はHTMLのheadで告知されたフィードへのリンク。
type feedLink struct {
	URL  string
	Atom bool
}

// isHTML はレスポンスがHTMLページかどうかを返す。
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.Contains(strings.ToLower(mediaType), "html")
}

// discoverFeedLinks はheadの<link rel="alternate">からRSS/Atomのリンクを集める。
// 相対URLはpageURLを基準に解決する。bodyに達した時点で打ち切る。
func discoverFeedLinks(body []byte, pageURL string) []feedLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []feedLink
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inHead := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return links
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "head" {
				return links
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			switch string(name) {
			case "head":
				inHead = true
				continue
			case "body":
				return links
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			var rel, typ, href string
			for more := true; more; {
				var key, val []byte
				key, val, more = tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					typ = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
			}
			if rel != "alternate" || href == "" {
				continue
			}
			if typ != "application/rss+xml" && typ != "application/atom+xml" {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			links = append(links, feedLink{
				URL:  base.ResolveReference(ref).String(),
				Atom: typ == "application/atom+xml",
			})
		}
	}
}

// pickFeedLink は候補から1件を選ぶ。
// 同一ホストを最優先し、次にAtom、同点なら先に現れたものを選ぶ。
func pickFeedLink(links []feedLink, pageURL string) (string, bool) {
	if len(links) == 0 {
		return "", false
	}
	host := hostOf(pageURL)
	best, bestScore := 0, -1
	for i, l := range links {
		score := 0
		if hostOf(l.URL) == host {
			score += 100
		}
		if l.Atom {
			score += 10
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return links[best].URL, true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
