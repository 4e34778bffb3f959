package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/hitoshi/glowguard/internal/model"
)

// Login はメールアドレスとパスワードでログインする。
// POST /auth/login
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	var result model.LoginResult
	err := c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		endpoint: "/auth/login",
	}, creds, &result)
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("ログインレスポンスにaccess_tokenが含まれていません")
	}
	return &result, nil
}

// Register はユーザーを登録する。成功以外のレスポンス内容は利用しない。
// POST /auth/register
func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	return c.doJSON(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		endpoint: "/auth/register",
	}, reg, nil)
}

// GetProfile はログイン中のユーザー情報を取得する。
// GET /users/profile
func (c *Client) GetProfile(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/users/profile",
		endpoint: "/users/profile",
		token:    token,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile はプロフィールを更新し、更新後のユーザーを返す。
// PUT /users/profile
func (c *Client) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.User, error) {
	var user model.User
	err := c.doJSON(ctx, request{
		method:   http.MethodPut,
		path:     "/users/profile",
		endpoint: "/users/profile",
		token:    token,
	}, update, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upload は解析APIに送信する画像ファイル。
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Analyze は画像をmultipart/form-dataで送信し、解析結果を返す。
// POST /predictions/analyze
func (c *Client) Analyze(ctx context.Context, token string, file Upload) (*model.PredictionRecord, error) {
	body, contentType, err := buildMultipart(file)
	if err != nil {
		return nil, err
	}

	var record model.PredictionRecord
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/predictions/analyze",
		endpoint:    "/predictions/analyze",
		token:       token,
		body:        body,
		contentType: contentType,
	}, &record)
	if err != nil {
		return nil, err
	}
	if record.Prediction.ID == "" {
		return nil, fmt.Errorf("解析レスポンスにprediction.idが含まれていません")
	}
	return &record, nil
}

// GetPrediction は保存済みの予測結果を識別子で取得する。
// GET /predictions/{id}
func (c *Client) GetPrediction(ctx context.Context, token string, id model.PredictionID) (*model.PredictionRecord, error) {
	var record model.PredictionRecord
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/predictions/" + url.PathEscape(id.String()),
		endpoint: "/predictions/{id}",
		token:    token,
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PredictionHistory はユーザーの予測履歴を取得する。
// GET /predictions/history/{user_id}
func (c *Client) PredictionHistory(ctx context.Context, token string, userID int) ([]model.Prediction, error) {
	var predictions []model.Prediction
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/predictions/history/" + strconv.Itoa(userID),
		endpoint: "/predictions/history/{user_id}",
		token:    token,
	}, &predictions)
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// RecommendedProducts は疾患名に対する推奨商品を取得する。
// GET /products/recommended/{disease}
func (c *Client) RecommendedProducts(ctx context.Context, disease string) ([]model.Product, error) {
	var products []model.Product
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/products/recommended/" + url.PathEscape(disease),
		endpoint: "/products/recommended/{disease}",
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// buildMultipart は"file"フィールドに画像を格納したmultipartボディを生成する。
func buildMultipart(file Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
	if file.ContentType != "" {
		h.Set("Content-Type", file.ContentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("multipartパートの作成に失敗しました: %w", err)
	}
	if _, err := io.Copy(part, file.Data); err != nil {
		return nil, "", fmt.Errorf("画像データの書き込みに失敗しました: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("multipartボディの終端処理に失敗しました: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}
