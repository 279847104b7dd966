package digest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/selivandex/crypto-digest/internal/adapters/redis"
	"github.com/selivandex/crypto-digest/pkg/models"
)

var errUpstream = errors.New("upstream unavailable")

type fakeMarket struct {
	quotes []models.AssetQuote
	err    error
	calls  atomic.Int32
}

func (f *fakeMarket) FetchLatestListings(ctx context.Context) ([]models.AssetQuote, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

type fakeNews struct {
	mu      sync.Mutex
	queries []string
	failOn  map[string]bool
	empty   bool
}

func (f *fakeNews) Search(ctx context.Context, query string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.failOn[query] {
		return nil, errUpstream
	}
	if f.empty {
		return nil, nil
	}
	return []string{"Headline for " + query + " - https://news.example/" + query}, nil
}

func (f *fakeNews) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeSummarizer struct {
	mu       sync.Mutex
	requests []models.SummaryRequest
	failOn   map[string]bool

	// release, when set, blocks every call until closed
	release chan struct{}
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req models.SummaryRequest) (string, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failOn[req.Quote.Symbol] {
		return "", errUpstream
	}
	return req.Quote.Name + " moved.", nil
}

func (f *fakeSummarizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error

	// block, when set, holds every publish until it is closed
	block chan struct{}
}

func (f *fakePublisher) PublishDigest(ctx context.Context, dateKey string, digest models.Digest) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, dateKey)
	return f.err
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// busyLockFactory reports every lock as held by a peer
type busyLockFactory struct{}

func (busyLockFactory) CreateBuildLock(dateKey string) redis.BuildLock { return busyLock{} }

type busyLock struct{}

func (busyLock) TryAcquire(ctx context.Context) (bool, error) { return false, nil }

func (busyLock) Release(ctx context.Context) error { return nil }

// unavailableLockFactory fails every acquire as if the lock backend were down
type unavailableLockFactory struct{}

func (unavailableLockFactory) CreateBuildLock(dateKey string) redis.BuildLock { return unavailableLock{} }

type unavailableLock struct{}

func (unavailableLock) TryAcquire(ctx context.Context) (bool, error) {
	return false, errors.New("build lock backend unavailable: connection refused")
}

func (unavailableLock) Release(ctx context.Context) error { return nil }

func threeQuotes() []models.AssetQuote {
	return []models.AssetQuote{
		{Name: "Bitcoin", Symbol: "BTC", PercentChange24h: 5, PercentChange7d: 7},
		{Name: "Ethereum", Symbol: "ETH", PercentChange24h: -3, PercentChange7d: -1},
		{Name: "Dogecoin", Symbol: "DOGE", PercentChange24h: 10, PercentChange7d: 20},
	}
}

func symbols(quotes []models.AssetQuote) []string {
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, q.Symbol)
	}
	return out
}
