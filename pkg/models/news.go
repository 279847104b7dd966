package models

import "fmt"

// NoNewsFound replaces the reference list when a lookup fails or returns nothing
const NoNewsFound = "No news found"

// NewsItem is a single headline with its source link
type NewsItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// String renders the item the way digests store references
func (n NewsItem) String() string {
	return fmt.Sprintf("%s - %s", n.Title, n.URL)
}

// NewsQuery builds the free-text search query for an asset
func NewsQuery(assetName string) string {
	return assetName + " cryptocurrency"
}
