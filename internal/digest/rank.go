package digest

import (
	"sort"

	"github.com/selivandex/crypto-digest/pkg/models"
)

// RankGainers orders quotes by 24h change, highest first. Equal changes keep provider order.
func RankGainers(quotes []models.AssetQuote) []models.AssetQuote {
	ranked := append([]models.AssetQuote(nil), quotes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PercentChange24h > ranked[j].PercentChange24h
	})
	return ranked
}

// RankLosers orders quotes by 24h change, lowest first. Equal changes keep provider order.
func RankLosers(quotes []models.AssetQuote) []models.AssetQuote {
	ranked := append([]models.AssetQuote(nil), quotes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PercentChange24h < ranked[j].PercentChange24h
	})
	return ranked
}

// Select returns the top n gainers followed by the top n losers.
// Assets are not de-duplicated, so a short snapshot yields overlap.
func Select(quotes []models.AssetQuote, n int) []models.AssetQuote {
	gainers := RankGainers(quotes)
	losers := RankLosers(quotes)

	selected := make([]models.AssetQuote, 0, 2*n)
	selected = append(selected, gainers[:min(n, len(gainers))]...)
	selected = append(selected, losers[:min(n, len(losers))]...)
	return selected
}
