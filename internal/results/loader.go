// Package results は保存済みの予測結果を識別子で取得し、表示状態を管理する。
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/glowguard/internal/api"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/store"
)

// Phase は結果画面の状態。
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseError   Phase = "error"
)

// ErrDiscarded は取得完了時にリクエストのスコープが既に終了していたことを表す。
// この場合、結果は破棄されストアは変更されない。
var ErrDiscarded = errors.New("results: request scope ended before the prediction arrived")

// Fetcher は予測結果取得APIのインターフェース。
type Fetcher interface {
	GetPrediction(ctx context.Context, token string, id model.PredictionID) (*model.PredictionRecord, error)
	RecommendedProducts(ctx context.Context, disease string) ([]model.Product, error)
}

// View は結果画面の表示状態。
type View struct {
	ID      model.PredictionID
	Phase   Phase
	Record  *model.PredictionRecord
	Message string  // error時に表示するメッセージ
	Trail   []Phase // 経由した状態（loadingから始まる）
}

func newView(id model.PredictionID) *View {
	return &View{ID: id, Phase: PhaseLoading, Trail: []Phase{PhaseLoading}}
}

// transition はloadingからの終端遷移のみを許可する。
func (v *View) transition(to Phase) {
	if v.Phase != PhaseLoading {
		panic(fmt.Sprintf("results: invalid transition %s -> %s", v.Phase, to))
	}
	v.Phase = to
	v.Trail = append(v.Trail, to)
}

// Loader は結果画面の取得処理を行う。
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewLoader はLoaderを生成する。
func NewLoader(fetcher Fetcher, logger *slog.Logger) *Loader {
	return &Loader{fetcher: fetcher, logger: logger}
}

// Load は識別子に対応する予測結果を1回だけ取得する。再試行は行わない。
// 識別子が空の場合はAPIを呼ばずにerror状態とする。
// 取得完了時にctxが終了していれば結果を破棄してErrDiscardedを返す。
func (l *Loader) Load(ctx context.Context, c *store.Client, id model.PredictionID) (*View, error) {
	v := newView(id)

	if id == "" {
		v.transition(PhaseError)
		v.Message = "No results found"
		return v, nil
	}

	record, err := l.fetcher.GetPrediction(ctx, c.Session.Token(), id)
	if ctx.Err() != nil {
		l.logger.Debug("late prediction discarded",
			slog.String("client_id", c.ID),
			slog.String("prediction_id", id.String()),
		)
		return nil, ErrDiscarded
	}
	if err != nil {
		l.logger.Warn("failed to load prediction",
			slog.String("client_id", c.ID),
			slog.String("prediction_id", id.String()),
			slog.String("error", err.Error()),
		)
		v.transition(PhaseError)
		v.Message = api.MessageOf(err, "Failed to load results")
		return v, nil
	}

	l.fillProducts(ctx, record)
	if ctx.Err() != nil {
		return nil, ErrDiscarded
	}

	c.Predictions.SetCurrent(record)
	v.Record = record
	v.transition(PhaseLoaded)
	return v, nil
}

// fillProducts は解析結果に商品が含まれない場合に推奨商品を補う。
// 失敗してもエラーにはしない。
func (l *Loader) fillProducts(ctx context.Context, record *model.PredictionRecord) {
	a := record.Analysis
	if a == nil || len(a.Products) > 0 {
		return
	}
	disease := a.DiseaseName
	if disease == "" {
		disease = record.Prediction.DiseaseName
	}
	if disease == "" {
		return
	}

	products, err := l.fetcher.RecommendedProducts(ctx, disease)
	if err != nil {
		l.logger.Info("recommended products unavailable",
			slog.String("disease", disease),
			slog.String("error", err.Error()),
		)
		return
	}
	a.Products = products
}
