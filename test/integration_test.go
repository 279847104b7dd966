package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/selivandex/crypto-digest/internal/adapters/ai"
	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/internal/adapters/market"
	"github.com/selivandex/crypto-digest/internal/adapters/news"
	"github.com/selivandex/crypto-digest/internal/adapters/storage"
	"github.com/selivandex/crypto-digest/internal/api"
	"github.com/selivandex/crypto-digest/internal/digest"
	"github.com/selivandex/crypto-digest/internal/health"
	"github.com/selivandex/crypto-digest/pkg/models"
	"github.com/selivandex/crypto-digest/pkg/templates"
)

const listings = `{"data":[
  {"name":"Bitcoin","symbol":"BTC","quote":{"USD":{"percent_change_24h":5,"percent_change_7d":8}}},
  {"name":"Ethereum","symbol":"ETH","quote":{"USD":{"percent_change_24h":-3,"percent_change_7d":-1}}},
  {"name":"Dogecoin","symbol":"DOGE","quote":{"USD":{"percent_change_24h":10,"percent_change_7d":20}}}
]}`

// providerStub answers all three upstream APIs and counts calls
type providerStub struct {
	market atomic.Int32
	news   atomic.Int32
	llm    atomic.Int32
}

func (p *providerStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/cryptocurrency/listings/latest", func(w http.ResponseWriter, r *http.Request) {
		p.market.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, listings)
	})

	mux.HandleFunc("/v2/everything", func(w http.ResponseWriter, r *http.Request) {
		p.news.Add(1)
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(q, "Ethereum") {
			// Ethereum lookups fail upstream
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"status":"error","code":"rateLimited","message":"slow down"}`)
			return
		}
		fmt.Fprintf(w, `{"status":"ok","articles":[{"title":"%s rally","url":"https://news.example/1"}]}`, q)
	})

	mux.HandleFunc("/openai/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		p.llm.Add(1)
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if len(body.Messages) == 2 && strings.Contains(body.Messages[1].Content, "Symbol: DOGE") {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Prices moved on the news."}}]}`)
	})

	return mux
}

// TestDigestFlow drives GET /crypto-summary against stubbed providers
func TestDigestFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	stub := &providerStub{}
	upstream := httptest.NewServer(stub.handler())
	defer upstream.Close()

	renderer, err := templates.Default()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	upstreamCfg := &config.UpstreamConfig{Timeout: 5 * time.Second, UserAgent: "integration"}
	builder := digest.NewBuilder(
		market.NewCoinMarketCapClient(&config.MarketConfig{APIKey: "cmc", BaseURL: upstream.URL, Currency: "USD"}, upstreamCfg),
		news.NewNewsAPIClient(&config.NewsConfig{APIKey: "news", BaseURL: upstream.URL, MaxItems: 12}, upstreamCfg),
		ai.NewChatSummarizer(&config.LLMConfig{
			APIKey: "groq", BaseURL: upstream.URL, APIPath: "/openai/v1",
			Model: "mixtral-8x7b-32768", Temperature: 0.5, TopP: 1, MaxTokens: 320,
		}, upstreamCfg, renderer),
		3,
		0,
	)

	dataDir := filepath.Join(t.TempDir(), "data")
	fileStore := storage.NewFileStore(dataDir)
	store := storage.NewLayeredStore(fileStore, storage.NewMemoryStore(), fileStore)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	service := digest.NewService(store, builder, time.UTC, time.Minute, digest.WithClock(func() time.Time { return now }))

	gin.SetMode(gin.TestMode)
	router := api.NewRouter(api.NewDigestHandler(service), health.NewChecker())

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/crypto-summary", nil))
		return w
	}

	t.Run("first request builds", func(t *testing.T) {
		w := get()
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result models.Digest
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to decode digest: %v", err)
		}

		want := []string{"DOGE", "BTC", "ETH", "ETH", "BTC", "DOGE"}
		if len(result) != len(want) {
			t.Fatalf("Expected %d entries, got %d", len(want), len(result))
		}
		for i, symbol := range want {
			if result[i].Symbol != symbol {
				t.Errorf("Entry %d: expected %s, got %s", i, symbol, result[i].Symbol)
			}
		}

		if got := result[2].References; len(got) != 1 || got[0] != models.NoNewsFound {
			t.Errorf("Failed news lookup should yield %q, got %v", models.NoNewsFound, got)
		}
		if result[0].Summary != models.NoSummaryAvailable {
			t.Errorf("Failed summary should yield %q, got %q", models.NoSummaryAvailable, result[0].Summary)
		}
		if result[1].Summary != "Prices moved on the news." {
			t.Errorf("Unexpected summary: %q", result[1].Summary)
		}
		if got := result[1].References; len(got) != 1 || got[0] != "Bitcoin cryptocurrency rally - https://news.example/1" {
			t.Errorf("Unexpected references: %v", got)
		}

		if stub.market.Load() != 1 || stub.news.Load() != 6 || stub.llm.Load() != 6 {
			t.Errorf("Unexpected provider calls: market=%d news=%d llm=%d",
				stub.market.Load(), stub.news.Load(), stub.llm.Load())
		}

		entries, err := os.ReadDir(dataDir)
		if err != nil {
			t.Fatalf("Failed to read data dir: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "2024-03-01.json" {
			t.Errorf("Expected exactly one cache file, got %v", entries)
		}
	})

	t.Run("second request is served from cache", func(t *testing.T) {
		w := get()
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if stub.market.Load() != 1 || stub.news.Load() != 6 || stub.llm.Load() != 6 {
			t.Errorf("Cache hit should not call providers: market=%d news=%d llm=%d",
				stub.market.Load(), stub.news.Load(), stub.llm.Load())
		}
	})

	t.Run("past day lookup", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/crypto-summary/2024-02-29", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for unbuilt day, got %d", w.Code)
		}
	})
}
