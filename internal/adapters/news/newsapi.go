package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

const everythingPath = "/v2/everything"

// Searcher looks up recent headlines for a free-text query
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// APIError is returned when NewsAPI rejects a search
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("newsapi error (status %d, code %q): %s", e.StatusCode, e.Code, e.Message)
}

// NewsAPIClient searches the NewsAPI "everything" endpoint
type NewsAPIClient struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	userAgent string
	maxItems  int
}

// NewNewsAPIClient creates new NewsAPI client
func NewNewsAPIClient(cfg *config.NewsConfig, upstream *config.UpstreamConfig) *NewsAPIClient {
	return &NewsAPIClient{
		client:    &http.Client{Timeout: upstream.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: upstream.UserAgent,
		maxItems:  cfg.MaxItems,
	}
}

// everythingResponse is the search payload. Articles is a pointer so an
// absent array can be told apart from an empty one.
type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles *[]struct {
		Title *string `json:"title"`
		URL   *string `json:"url"`
	} `json:"articles"`
}

// Search renders the first maxItems articles as "{title} - {url}" lines, newest
// first. Articles missing a title or url are skipped, not replaced.
func (c *NewsAPIClient) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("apiKey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, everythingPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	logger.Debug("fetching news", zap.String("query", query))

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn("news request failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result everythingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Warn("failed to decode news response",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Snippet(body)),
		)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || result.Status == "error" {
		logger.Warn("newsapi returned error",
			zap.String("query", query),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Snippet(body)),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Code: result.Code, Message: result.Message}
	}

	if result.Articles == nil {
		logger.Warn("no articles array in news response", zap.String("query", query))
		return nil, fmt.Errorf("no articles in response")
	}

	articles := *result.Articles
	if len(articles) > c.maxItems {
		articles = articles[:c.maxItems]
	}

	news := make([]string, 0, len(articles))
	for _, article := range articles {
		if article.Title == nil || article.URL == nil {
			continue
		}
		news = append(news, models.NewsItem{Title: *article.Title, URL: *article.URL}.String())
	}

	logger.Debug("fetched news",
		zap.String("query", query),
		zap.Int("count", len(news)),
		zap.Duration("latency", time.Since(startTime)),
	)

	return news, nil
}
