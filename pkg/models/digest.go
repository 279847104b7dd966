package models

import (
	"fmt"
	"time"
)

// NoSummaryAvailable replaces the summary when the LLM call fails
const NoSummaryAvailable = "No summary available."

// DateKeyLayout is the calendar-day layout used for cache keys and file names
const DateKeyLayout = "2006-01-02"

// DigestEntry is one asset's line in the daily digest
type DigestEntry struct {
	Token      string   `json:"token"`
	Symbol     string   `json:"symbol"`
	Summary    string   `json:"summary"`
	References []string `json:"references"`
}

// Digest is the ordered list of entries for one calendar day, gainers first
type Digest []DigestEntry

// SummaryRequest carries the facts the summarizer is prompted with
type SummaryRequest struct {
	Quote AssetQuote
	News  []string
}

// DateKey formats t in loc as a cache key. A nil loc means the process-local zone.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateKeyLayout)
}

// ParseDateKey validates a YYYY-MM-DD key
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}
