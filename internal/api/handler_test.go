package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/crypto-digest/internal/adapters/storage"
	"github.com/selivandex/crypto-digest/internal/digest"
	"github.com/selivandex/crypto-digest/internal/health"
	"github.com/selivandex/crypto-digest/pkg/models"
)

type fakeService struct {
	today   models.Digest
	err     error
	byDate  map[string]models.Digest
	dateErr error
}

func (f *fakeService) Today(ctx context.Context) (models.Digest, error) {
	return f.today, f.err
}

func (f *fakeService) ForDate(ctx context.Context, key string) (models.Digest, error) {
	if f.dateErr != nil {
		return nil, f.dateErr
	}
	if d, ok := f.byDate[key]; ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

func newTestRouter(svc DigestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewDigestHandler(svc), health.NewChecker())
}

func do(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

var btcDigest = models.Digest{
	{Token: "Bitcoin", Symbol: "BTC", Summary: "Bitcoin rallied.", References: []string{"ETF - https://example.com/etf"}},
}

func TestGetToday_OK(t *testing.T) {
	r := newTestRouter(&fakeService{today: btcDigest})

	w := do(r, http.MethodGet, "/crypto-summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `[{"token":"Bitcoin","symbol":"BTC","summary":"Bitcoin rallied.","references":["ETF - https://example.com/etf"]}]`, w.Body.String())
}

func TestGetToday_Failure(t *testing.T) {
	r := newTestRouter(&fakeService{err: errors.New("market down")})

	w := do(r, http.MethodGet, "/crypto-summary", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "market down")
}

func TestGetToday_ClientGone(t *testing.T) {
	r := newTestRouter(&fakeService{err: fmt.Errorf("waiting for digest: %w", context.Canceled)})

	w := do(r, http.MethodGet, "/crypto-summary", nil)
	assert.Equal(t, statusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetToday_CORS(t *testing.T) {
	r := newTestRouter(&fakeService{today: btcDigest})

	w := do(r, http.MethodGet, "/crypto-summary", map[string]string{"Origin": "https://anything.example"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodOptions, "/crypto-summary", map[string]string{
		"Origin":                         "https://anything.example",
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "X-Custom",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetByDate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		dateErr error
		status  int
	}{
		{name: "stored", path: "/crypto-summary/2024-03-01", status: http.StatusOK},
		{name: "missing", path: "/crypto-summary/2024-02-01", status: http.StatusNotFound},
		{name: "malformed", path: "/crypto-summary/march", dateErr: fmt.Errorf("%w: bad", digest.ErrInvalidDateKey), status: http.StatusBadRequest},
		{name: "store error", path: "/crypto-summary/2024-03-01", dateErr: errors.New("disk gone"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeService{
				byDate:  map[string]models.Digest{"2024-03-01": btcDigest},
				dateErr: tt.dateErr,
			})

			w := do(r, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)

			if tt.status == http.StatusOK {
				var got models.Digest
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, btcDigest, got)
			}
		})
	}
}
