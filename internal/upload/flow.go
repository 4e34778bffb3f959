package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/hitoshi/glowguard/internal/api"
	"github.com/hitoshi/glowguard/internal/model"
	"github.com/hitoshi/glowguard/internal/store"
)

// 遷移先のパス
const (
	LoginPath  = "/login"
	UploadPath = "/upload"
)

// 解析リクエストの結果ラベル（メトリクス用）
const (
	OutcomeSuccess         = "success"
	OutcomeFailure         = "failure"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeNoFile          = "no_file"
)

// Analyzer は画像解析APIのインターフェース。
type Analyzer interface {
	Analyze(ctx context.Context, token string, file api.Upload) (*model.PredictionRecord, error)
}

// Recorder はアップロード関連のメトリクス記録インターフェース。
type Recorder interface {
	RecordAnalyzeOutcome(outcome string)
	RecordUploadRejected(reason string)
}

// File はフォームから受け取った画像ファイル。
type File struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Outcome は操作後の遷移先と表示する通知。
// Redirectが空の場合は現在の画面に留まる。
type Outcome struct {
	Redirect string
	Notice   *model.Notice
}

// Flow はアップロード画面の操作を実装する。
type Flow struct {
	analyzer Analyzer
	recorder Recorder
	logger   *slog.Logger
}

// NewFlow はFlowを生成する。recorderはnilでもよい。
func NewFlow(analyzer Analyzer, recorder Recorder, logger *slog.Logger) *Flow {
	return &Flow{analyzer: analyzer, recorder: recorder, logger: logger}
}

// Select はファイルを検証し、通過した場合のみクライアントに保持する。
// 検証に失敗した場合はファイルを読まず、既存の選択も変更しない。
func (f *Flow) Select(c *store.Client, file File) error {
	if appErr := Validate(file.ContentType, file.Size); appErr != nil {
		if f.recorder != nil {
			f.recorder.RecordUploadRejected(appErr.Code)
		}
		return appErr
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer rc.Close()

	// 宣言サイズを信用せず、上限+1バイトまでで読み切る
	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		if f.recorder != nil {
			f.recorder.RecordUploadRejected(model.ErrCodeFileTooLarge)
		}
		return model.NewFileTooLargeError()
	}

	c.Select(&store.Selection{
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Data:        data,
	})
	return nil
}

// Clear は選択中の画像を破棄する。
func (f *Flow) Clear(c *store.Client) {
	c.ClearSelection()
}

// Preview はプレビュー表示用に保持中の画像を返す。
func (f *Flow) Preview(c *store.Client) (*store.Selection, bool) {
	sel := c.Selection()
	return sel, sel != nil
}

// Submit は選択中の画像を解析APIへ送信する。
// 未ログインの場合はAPIを呼ばずにログイン画面へ遷移させる。
// 成功時は予測結果を先頭に追加し、結果画面へ遷移させる。
func (f *Flow) Submit(ctx context.Context, c *store.Client) Outcome {
	token := c.Session.Token()
	if token == "" {
		f.record(OutcomeUnauthenticated)
		n := model.NewLoginRequiredError().Notice()
		return Outcome{Redirect: LoginPath, Notice: &n}
	}

	sel := c.Selection()
	if sel == nil {
		f.record(OutcomeNoFile)
		n := model.NewNoFileSelectedError().Notice()
		return Outcome{Redirect: UploadPath, Notice: &n}
	}

	done := c.BeginLoading()
	defer done()

	record, err := f.analyzer.Analyze(ctx, token, api.Upload{
		Filename:    sel.Filename,
		ContentType: sel.ContentType,
		Data:        bytes.NewReader(sel.Data),
	})
	if err != nil {
		f.record(OutcomeFailure)
		f.logger.Warn("image analysis failed",
			slog.String("client_id", c.ID),
			slog.String("error", err.Error()),
		)
		n := model.Failure(api.MessageOf(err, "Error analyzing image"))
		return Outcome{Redirect: UploadPath, Notice: &n}
	}

	c.Predictions.Add(record)
	c.ClearSelection()
	f.record(OutcomeSuccess)

	n := model.Success("Analysis complete!")
	return Outcome{
		Redirect: "/results/" + url.PathEscape(record.ID().String()),
		Notice:   &n,
	}
}

func (f *Flow) record(outcome string) {
	if f.recorder != nil {
		f.recorder.RecordAnalyzeOutcome(outcome)
	}
}
