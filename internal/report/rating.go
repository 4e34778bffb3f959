// Package report は予測結果を画面表示用の診断レポートに変換する。
// 入出力のみを扱う純粋な変換で、I/Oは行わない。
package report

import "math"

// Band は確信度の区分。
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ConsultHintText は確信度が低い候補に添える注意書き。
const ConsultHintText = "(Low confidence - consult dermatologist)"

// Rating は鑑別診断の候補1件の表示内容。
type Rating struct {
	Rank        int // 1始まりの順位。主診断の確信度表示では0
	Disease     string
	Confidence  float64
	Percent     int
	Band        Band
	ConsultHint bool
}

// Rate は確信度cを表示用に変換する。
// Percentはc×100を四捨五入した値、Bandはc≥0.7でhigh、c≥0.5でmedium、それ以外low。
// ConsultHintはPercentが50未満のときtrue。
func Rate(c float64) Rating {
	percent := int(math.Round(c * 100))

	band := BandLow
	switch {
	case c >= 0.7:
		band = BandHigh
	case c >= 0.5:
		band = BandMedium
	}

	return Rating{
		Confidence:  c,
		Percent:     percent,
		Band:        band,
		ConsultHint: percent < 50,
	}
}

// Width はバー表示用の幅（0〜100）を返す。
func (r Rating) Width() int {
	return min(max(r.Percent, 0), 100)
}
