package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
)

func newTestClient(baseURL string, maxItems int) *NewsAPIClient {
	return NewNewsAPIClient(
		&config.NewsConfig{APIKey: "news-key", BaseURL: baseURL, MaxItems: maxItems},
		&config.UpstreamConfig{Timeout: 5 * time.Second, UserAgent: "digest-test"},
	)
}

func TestNewsAPI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, everythingPath, r.URL.Path)
		assert.Equal(t, "Bitcoin Cash cryptocurrency", r.URL.Query().Get("q"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "news-key", r.URL.Query().Get("apiKey"))
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"BCH rallies","url":"https://example.com/1"},
			{"title":null,"url":"https://example.com/2"},
			{"title":"Fork news","url":"https://example.com/3"},
			{"title":"Too late","url":"https://example.com/4"}
		]}`))
	}))
	defer srv.Close()

	news, err := newTestClient(srv.URL, 3).Search(context.Background(), "Bitcoin Cash cryptocurrency")
	require.NoError(t, err)

	// The cap applies to provider articles, the untitled one is dropped
	assert.Equal(t, []string{
		"BCH rallies - https://example.com/1",
		"Fork news - https://example.com/3",
	}, news)
}

func TestNewsAPI_EmptyArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	defer srv.Close()

	news, err := newTestClient(srv.URL, 12).Search(context.Background(), "Nothing cryptocurrency")
	require.NoError(t, err)
	assert.Empty(t, news)
}

func TestNewsAPI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "not json", status: http.StatusOK, body: "oops", wantErr: "failed to decode response"},
		{name: "missing articles", status: http.StatusOK, body: `{"status":"ok"}`, wantErr: "no articles"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"status":"error","code":"rateLimited","message":"slow down"}`, wantErr: "rateLimited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, 12).Search(context.Background(), "q")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewsAPI_ErrorType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 12).Search(context.Background(), "q")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "apiKeyInvalid", apiErr.Code)
}
