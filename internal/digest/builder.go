package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/ai"
	"github.com/selivandex/crypto-digest/internal/adapters/market"
	"github.com/selivandex/crypto-digest/internal/adapters/news"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
)

// Builder runs the market -> news -> summary pipeline for one digest
type Builder struct {
	market     market.Fetcher
	news       news.Searcher
	summarizer ai.Summarizer
	topN       int
	assetDelay time.Duration
}

// NewBuilder creates a digest builder selecting topN gainers and losers,
// spacing asset round-trips by assetDelay
func NewBuilder(fetcher market.Fetcher, searcher news.Searcher, summarizer ai.Summarizer, topN int, assetDelay time.Duration) *Builder {
	return &Builder{
		market:     fetcher,
		news:       searcher,
		summarizer: summarizer,
		topN:       topN,
		assetDelay: assetDelay,
	}
}

// Build fetches a fresh snapshot and summarizes the selected assets in order.
// News and summary failures are substituted; a snapshot failure or a
// cancelled ctx fails the build.
func (b *Builder) Build(ctx context.Context) (models.Digest, error) {
	buildID := uuid.New().String()
	log := logger.With(zap.String("build_id", buildID))
	startTime := time.Now()

	quotes, err := b.market.FetchLatestListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market snapshot: %w", err)
	}

	selected := Select(quotes, b.topN)
	log.Info("building digest",
		zap.Int("listings", len(quotes)),
		zap.Int("selected", len(selected)),
	)

	spacer := NewSpacer(b.assetDelay)
	result := make(models.Digest, 0, len(selected))

	for _, quote := range selected {
		if err := spacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("digest build interrupted: %w", err)
		}
		result = append(result, b.buildEntry(ctx, log, quote))
	}

	log.Info("digest built",
		zap.Int("entries", len(result)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return result, nil
}

func (b *Builder) buildEntry(ctx context.Context, log *zap.Logger, quote models.AssetQuote) models.DigestEntry {
	query := models.NewsQuery(quote.Name)

	references, err := b.news.Search(ctx, query)
	if err != nil {
		log.Warn("news lookup failed",
			zap.String("symbol", quote.Symbol),
			zap.String("query", query),
			zap.Error(err),
		)
		references = []string{models.NoNewsFound}
	} else if len(references) == 0 {
		references = []string{models.NoNewsFound}
	}

	summary, err := b.summarizer.Summarize(ctx, models.SummaryRequest{
		Quote: quote,
		News:  references,
	})
	if err != nil {
		log.Warn("summary failed",
			zap.String("symbol", quote.Symbol),
			zap.Error(err),
		)
		summary = models.NoSummaryAvailable
	}

	return models.DigestEntry{
		Token:      quote.Name,
		Symbol:     quote.Symbol,
		Summary:    summary,
		References: references,
	}
}
