package model

import "encoding/json"

// Prediction は1回の解析リクエストの結果を表す。
// 作成後は不変であり、クライアントは追加のみを行う。
type Prediction struct {
	ID          PredictionID `json:"id"`
	UserID      *int         `json:"user_id,omitempty"`
	ImagePath   string       `json:"image_path"`
	DiseaseName string       `json:"disease_name"`
	Confidence  float64      `json:"confidence"`
	Severity    string       `json:"severity"`
	Description string       `json:"description"`
	Causes      string       `json:"causes"`
	Timestamp   Timestamp    `json:"timestamp"`
}

// PredictionID は予測結果の不透明な識別子。
// バックエンドは数値で返すが、文字列IDも受け付ける。
type PredictionID string

// UnmarshalJSON は数値・文字列どちらのJSON表現も受け付ける。
func (id *PredictionID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = PredictionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = PredictionID(n.String())
	return nil
}

// String は識別子の文字列表現を返す。
func (id PredictionID) String() string {
	return string(id)
}

// Candidate は鑑別診断の候補1件を表す。
type Candidate struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Analysis は予測結果に付随する解析内容。
// DietAdviceは文字列・オブジェクトなど形が一定しないため生のJSONで保持する。
type Analysis struct {
	DiseaseName    string          `json:"disease_name"`
	Description    string          `json:"description"`
	Severity       string          `json:"severity"`
	Confidence     float64         `json:"confidence"`
	Causes         []string        `json:"causes"`
	Remedies       []string        `json:"remedies"`
	Precautions    []string        `json:"precautions"`
	DietAdvice     json.RawMessage `json:"diet_advice"`
	Products       []Product       `json:"products"`
	TopPredictions []Candidate     `json:"top_3_predictions,omitempty"`
}

// Recommendation は予測結果に紐づく推奨事項1件。
type Recommendation struct {
	ID           int       `json:"id"`
	PredictionID int       `json:"prediction_id"`
	Category     string    `json:"category"`
	Content      string    `json:"content"`
	CreatedAt    Timestamp `json:"created_at"`
}

// PredictionRecord は解析APIおよび取得APIのレスポンス本体。
type PredictionRecord struct {
	Prediction      Prediction       `json:"prediction"`
	Analysis        *Analysis        `json:"analysis,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ID は予測結果の識別子を返す。
func (r *PredictionRecord) ID() PredictionID {
	return r.Prediction.ID
}

// Product は予測結果に添付される推奨商品。読み取り専用。
type Product struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Brand          string `json:"brand"`
	Description    string `json:"description"`
	PriceRange     string `json:"price_range"`
	ImageURL       string `json:"image_url,omitempty"`
	PurchaseLink   string `json:"purchase_link,omitempty"`
	RecommendedFor string `json:"recommended_for"`
}
