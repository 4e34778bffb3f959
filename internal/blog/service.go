package blog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// フィード取得の上限
const (
	maxFeedSize  = 2 * 1024 * 1024
	maxArticles  = 9
	fetchTimeout = 10 * time.Second
)

// URLValidator はフィードURLの事前検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Recorder はフィード取得結果のメトリクス記録インターフェース。
type Recorder interface {
	RecordBlogFetch(success bool)
}

// Config はServiceの設定。
type Config struct {
	FeedURL  string        // 空の場合は組み込み記事のみ
	CacheTTL time.Duration // 取得結果を再利用する期間
}

// Service はブログ記事を取得・キャッシュする。
type Service struct {
	config    Config
	client    *http.Client
	validator URLValidator
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	cached     []Article
	fetchedAt  time.Time
	discovered string // HTMLページから見つけたフィードURL
}

// NewService はServiceを生成する。
// clientにはSSRF防止機能付きのクライアントを渡すこと。recorderはnilでもよい。
func NewService(config Config, client *http.Client, validator URLValidator, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{
		config:    config,
		client:    client,
		validator: validator,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Articles は記事一覧を返す。エラーは返さない。
// 取得に失敗した場合は前回の取得結果、それもなければ組み込み記事を返す。
func (s *Service) Articles(ctx context.Context) []Article {
	if s.config.FeedURL == "" {
		return StaticArticles()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.config.CacheTTL {
		return s.cached
	}

	articles, err := s.fetch(ctx)
	if s.recorder != nil {
		s.recorder.RecordBlogFetch(err == nil)
	}
	if err != nil {
		s.logger.Warn("blog feed fetch failed",
			slog.String("feed_url", s.config.FeedURL),
			slog.String("error", err.Error()),
		)
		if s.cached != nil {
			return s.cached
		}
		return StaticArticles()
	}

	s.cached = articles
	s.fetchedAt = s.now()
	return articles
}

func (s *Service) fetch(ctx context.Context) ([]Article, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	feedURL := s.config.FeedURL
	if s.discovered != "" {
		feedURL = s.discovered
	}

	body, contentType, err := s.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	// ブログのトップページが指定された場合はheadのフィードリンクを辿る
	if isHTML(contentType) {
		link, ok := pickFeedLink(discoverFeedLinks(body, feedURL), feedURL)
		if !ok {
			return nil, fmt.Errorf("no feed link found at %s", feedURL)
		}
		if body, _, err = s.get(ctx, link); err != nil {
			return nil, err
		}
		feedURL = link
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := convertItems(feed.Items)
	if len(articles) == 0 {
		return nil, fmt.Errorf("feed has no usable items")
	}
	if feedURL != s.config.FeedURL && feedURL != s.discovered {
		s.logger.Info("blog feed discovered",
			slog.String("page_url", s.config.FeedURL),
			slog.String("feed_url", feedURL),
		)
		s.discovered = feedURL
	}
	return articles, nil
}

// get はURLを検証したうえで取得し、ボディとContent-Typeを返す。
func (s *Service) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := s.validator.ValidateURL(rawURL); err != nil {
		return nil, "", fmt.Errorf("feed URL rejected: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "GlowGuard/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected feed status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read feed: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// convertItems はgofeedの記事をArticleに変換する。タイトルのない記事は除く。
func convertItems(items []*gofeed.Item) []Article {
	articles := make([]Article, 0, min(len(items), maxArticles))
	for _, item := range items {
		if item == nil || item.Title == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		a := Article{
			Title:   Excerpt(item.Title),
			Excerpt: Excerpt(summary),
			Link:    item.Link,
			Icon:    "📰",
		}
		if item.PublishedParsed != nil {
			a.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.Published = *item.UpdatedParsed
		}

		articles = append(articles, a)
		if len(articles) == maxArticles {
			break
		}
	}
	return articles
}
