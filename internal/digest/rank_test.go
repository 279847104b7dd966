package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/selivandex/crypto-digest/pkg/models"
)

func TestRanking_ThreeAssets(t *testing.T) {
	quotes := threeQuotes()

	assert.Equal(t, []string{"DOGE", "BTC", "ETH"}, symbols(RankGainers(quotes)))
	assert.Equal(t, []string{"ETH", "BTC", "DOGE"}, symbols(RankLosers(quotes)))
	assert.Equal(t, []string{"DOGE", "BTC", "ETH", "ETH", "BTC", "DOGE"}, symbols(Select(quotes, 3)))

	// Input untouched
	assert.Equal(t, []string{"BTC", "ETH", "DOGE"}, symbols(quotes))
}

func TestSelect_SixDistinct(t *testing.T) {
	quotes := []models.AssetQuote{
		{Symbol: "A", PercentChange24h: 1},
		{Symbol: "B", PercentChange24h: -8},
		{Symbol: "C", PercentChange24h: 12},
		{Symbol: "D", PercentChange24h: 0.5},
		{Symbol: "E", PercentChange24h: -2},
		{Symbol: "F", PercentChange24h: 4},
		{Symbol: "G", PercentChange24h: -0.1},
		{Symbol: "H", PercentChange24h: 3},
	}

	selected := Select(quotes, 3)
	assert.Len(t, selected, 6)
	assert.Equal(t, []string{"C", "F", "H", "B", "E", "G"}, symbols(selected))
}

func TestRanking_TiesKeepProviderOrder(t *testing.T) {
	quotes := []models.AssetQuote{
		{Symbol: "X", PercentChange24h: 2},
		{Symbol: "Y", PercentChange24h: 2},
		{Symbol: "Z", PercentChange24h: 2},
	}

	assert.Equal(t, []string{"X", "Y", "Z"}, symbols(RankGainers(quotes)))
	assert.Equal(t, []string{"X", "Y", "Z"}, symbols(RankLosers(quotes)))
}

func TestSelect_FewerThanN(t *testing.T) {
	quotes := []models.AssetQuote{{Symbol: "ONLY", PercentChange24h: 1}}

	assert.Equal(t, []string{"ONLY", "ONLY"}, symbols(Select(quotes, 3)))
	assert.Empty(t, Select(nil, 3))
}
