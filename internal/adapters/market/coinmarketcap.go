package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

const listingsPath = "/v1/cryptocurrency/listings/latest"

// Fetcher returns the current market snapshot
type Fetcher interface {
	FetchLatestListings(ctx context.Context) ([]models.AssetQuote, error)
}

// APIError is returned when CoinMarketCap answers with a non-2xx status
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coinmarketcap API error (status %d): %s", e.StatusCode, e.Body)
}

// CoinMarketCapClient fetches the "latest listings" page
type CoinMarketCapClient struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	currency  string
	userAgent string
	limit     int
}

// NewCoinMarketCapClient creates new CoinMarketCap client
func NewCoinMarketCapClient(cfg *config.MarketConfig, upstream *config.UpstreamConfig) *CoinMarketCapClient {
	currency := strings.ToUpper(cfg.Currency)
	if currency == "" {
		currency = models.ReferenceCurrency
	}

	return &CoinMarketCapClient{
		client:    &http.Client{Timeout: upstream.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		currency:  currency,
		userAgent: upstream.UserAgent,
		limit:     cfg.Limit,
	}
}

// listingsResponse mirrors the fields we need from the listings payload.
// Every asset carries a quote map keyed by currency code.
type listingsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Quote  map[string]struct {
			PercentChange24h *float64 `json:"percent_change_24h"`
			PercentChange7d  *float64 `json:"percent_change_7d"`
		} `json:"quote"`
	} `json:"data"`
}

// FetchLatestListings issues one listings request and returns the whole page.
// Assets without a quote in the configured currency are skipped.
func (c *CoinMarketCapClient) FetchLatestListings(ctx context.Context) ([]models.AssetQuote, error) {
	params := url.Values{}
	if c.currency != models.ReferenceCurrency {
		params.Set("convert", c.currency)
	}
	if c.limit > 0 {
		params.Set("limit", strconv.Itoa(c.limit))
	}

	reqURL := c.baseURL + listingsPath
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("coinmarketcap request failed", zap.Error(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("coinmarketcap returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Snippet(body)),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: logger.Snippet(body)}
	}

	var result listingsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Error("failed to decode coinmarketcap listings",
			zap.String("body", logger.Snippet(body)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	quotes := make([]models.AssetQuote, 0, len(result.Data))
	skipped := 0
	for _, asset := range result.Data {
		quote, ok := asset.Quote[c.currency]
		if !ok || quote.PercentChange24h == nil || quote.PercentChange7d == nil {
			logger.Warn("asset has no quote in reference currency, skipping",
				zap.String("symbol", asset.Symbol),
				zap.String("currency", c.currency),
			)
			skipped++
			continue
		}

		quotes = append(quotes, models.AssetQuote{
			Name:             asset.Name,
			Symbol:           asset.Symbol,
			PercentChange24h: *quote.PercentChange24h,
			PercentChange7d:  *quote.PercentChange7d,
		})
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("no assets with %s quotes in listings (skipped %d)", c.currency, skipped)
	}

	logger.Debug("fetched coinmarketcap listings",
		zap.Int("assets", len(quotes)),
		zap.Int("skipped", skipped),
		zap.Duration("latency", time.Since(startTime)),
	)

	return quotes, nil
}
