package report

import (
	"net/url"
	"strings"

	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/security"
)

// データがない場合の表示文言
const (
	NoAnalysisText     = "No analysis results available"
	NoPredictionText   = "No prediction data available"
	NoCausesText       = "No specific causes identified"
	NoRemediesText     = "No specific remedies available"
	NoPrecautionsText  = "No specific precautions available"
	NoDietText         = "No dietary recommendations available"
	NotAvailableText   = "Not available"
	RemediesNoticeText = "These are general recommendations and should be discussed with a dermatologist before implementation."
)

// ProductView は推奨商品の表示内容。
type ProductView struct {
	Name         string
	Brand        string
	Category     string
	Description  string
	PriceRange   string
	ImageURL     string
	PurchaseLink string
}

// SectionView は折りたたみセクション1つの表示内容。
type SectionView struct {
	Key      Section
	Title    string
	Open     bool
	Toggle   Section // このセクションを切り替えた後に展開されるセクション
	Note     string
	Items    []string
	Empty    string // Itemsが空の場合に表示する文言
	Diet     *DietAdvice
	Products []ProductView
}

// Report は結果画面に表示する診断レポート。
type Report struct {
	Available bool

	PredictionID model.PredictionID
	ImageURL     string
	Disease      string
	Description  string
	Severity     string // 表示用（先頭大文字）
	SeverityTier string // mild / moderate / severe など（スタイル用）
	Confidence   Rating

	Differential      []Rating
	DifferentialEmpty string

	Sections        []SectionView
	Recommendations []model.Recommendation
}

// Builder はPredictionRecordからReportを組み立てる。
type Builder struct {
	sanitizer security.ContentSanitizer
	assetBase *url.URL
}

// NewBuilder はBuilderを生成する。
// assetBaseは画像パスを解決するバックエンドのオリジン（例: http://localhost:8000）。
func NewBuilder(sanitizer security.ContentSanitizer, assetBase string) *Builder {
	b := &Builder{sanitizer: sanitizer}
	if u, err := url.Parse(assetBase); err == nil && u.Host != "" {
		b.assetBase = &url.URL{Scheme: u.Scheme, Host: u.Host}
	}
	return b
}

// Build はレポートを組み立てる。accordionで展開中のセクションを決める。
func (b *Builder) Build(record *model.PredictionRecord, accordion Accordion) *Report {
	if record == nil || record.Analysis == nil {
		return &Report{}
	}
	a := record.Analysis

	r := &Report{
		Available:    true,
		PredictionID: record.ID(),
		ImageURL:     b.imageURL(record.Prediction.ImagePath),
		Disease:      b.text(a.DiseaseName, record.Prediction.DiseaseName),
		Description:  b.text(a.Description, record.Prediction.Description),
		SeverityTier: strings.ToLower(b.text(a.Severity, record.Prediction.Severity)),
		Confidence:   Rate(a.Confidence),
	}
	r.Severity = capitalize(r.SeverityTier)
	if r.Severity == "" {
		r.Severity = NotAvailableText
	}
	if r.Disease == "" {
		r.Disease = NotAvailableText
	}

	r.Differential = b.differential(a, record.Prediction)
	if len(r.Differential) == 0 {
		r.DifferentialEmpty = NoPredictionText
	}

	for _, rec := range record.Recommendations {
		rec.Content = b.sanitizer.Text(rec.Content)
		if rec.Content != "" {
			r.Recommendations = append(r.Recommendations, rec)
		}
	}

	r.Sections = b.sections(a, accordion)
	return r
}

// differential は鑑別診断の候補を順位付きで返す。
// バックエンドが候補を返さない場合は主診断1件とする。
func (b *Builder) differential(a *model.Analysis, p model.Prediction) []Rating {
	candidates := a.TopPredictions
	if len(candidates) == 0 {
		disease := b.text(a.DiseaseName, p.DiseaseName)
		if disease == "" {
			return nil
		}
		confidence := a.Confidence
		if confidence == 0 {
			confidence = p.Confidence
		}
		candidates = []model.Candidate{{Disease: disease, Confidence: confidence}}
	}

	ratings := make([]Rating, 0, len(candidates))
	for i, c := range candidates {
		rt := Rate(c.Confidence)
		rt.Rank = i + 1
		rt.Disease = b.sanitizer.Text(c.Disease)
		ratings = append(ratings, rt)
	}
	return ratings
}

func (b *Builder) sections(a *model.Analysis, acc Accordion) []SectionView {
	diet := ParseDietAdvice(a.DietAdvice)
	b.sanitizeDiet(&diet)

	sections := []SectionView{
		{Key: SectionCauses, Title: "Possible Causes", Items: b.list(a.Causes), Empty: NoCausesText},
		{Key: SectionRemedies, Title: "Recommended Remedies & Care", Note: RemediesNoticeText, Items: b.list(a.Remedies), Empty: NoRemediesText},
		{Key: SectionPrecautions, Title: "Precautions & Prevention", Items: b.list(a.Precautions), Empty: NoPrecautionsText},
		{Key: SectionDiet, Title: "Dietary Recommendations", Diet: &diet, Empty: NoDietText},
	}
	if products := b.products(a.Products); len(products) > 0 {
		sections = append(sections, SectionView{Key: SectionProducts, Title: "Recommended Products", Products: products})
	}

	for i := range sections {
		sections[i].Open = acc.IsOpen(sections[i].Key)
		sections[i].Toggle = acc.Toggle(sections[i].Key).Open()
	}
	return sections
}

func (b *Builder) list(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if clean := b.sanitizer.Text(s); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func (b *Builder) sanitizeDiet(d *DietAdvice) {
	d.Text = b.sanitizer.Text(d.Text)
	for i := range d.Sections {
		d.Sections[i].Title = b.sanitizer.Text(d.Sections[i].Title)
		d.Sections[i].Text = b.sanitizer.Text(d.Sections[i].Text)
		d.Sections[i].Items = b.list(d.Sections[i].Items)
	}
	if d.Kind == DietText && d.Text == "" {
		d.Kind = DietNone
	}
}

func (b *Builder) products(products []model.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{
			Name:         b.sanitizer.Text(p.Name),
			Brand:        b.sanitizer.Text(p.Brand),
			Category:     b.sanitizer.Text(p.Category),
			Description:  b.sanitizer.Text(p.Description),
			PriceRange:   b.sanitizer.Text(p.PriceRange),
			ImageURL:     httpURL(p.ImageURL),
			PurchaseLink: httpURL(p.PurchaseLink),
		})
	}
	return out
}

// imageURL はバックエンドが返す相対パスをオリジン基準の絶対URLに解決する。
func (b *Builder) imageURL(path string) string {
	if path == "" {
		return ""
	}
	if abs := httpURL(path); abs != "" {
		return abs
	}
	if b.assetBase == nil {
		return ""
	}
	ref, err := url.Parse("/" + strings.TrimLeft(strings.ReplaceAll(path, "\\", "/"), "/"))
	if err != nil {
		return ""
	}
	return b.assetBase.ResolveReference(ref).String()
}

// text は最初の空でない値をサニタイズして返す。
func (b *Builder) text(values ...string) string {
	for _, v := range values {
		if clean := b.sanitizer.Text(v); clean != "" {
			return clean
		}
	}
	return ""
}

// httpURL はhttp/httpsの絶対URLのみを返す。それ以外は空文字列。
func httpURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
