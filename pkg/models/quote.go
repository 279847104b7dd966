package models

// ReferenceCurrency is the quote currency read from market listings by default
const ReferenceCurrency = "USD"

// AssetQuote is one asset from a market snapshot, priced in the reference currency
type AssetQuote struct {
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
}
