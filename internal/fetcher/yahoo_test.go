package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD", "gmtoffset": -18000, "exchangeTimezoneName": "America/New_York"},
      "timestamp": [1704292200, 1704205800, 1704378600],
      "indicators": {"quote": [{
        "open":   [184.22, 187.15, 182.15],
        "high":   [185.88, 188.44, 183.09],
        "low":    [183.43, 183.89, 180.88],
        "close":  [184.25, 185.64, null],
        "volume": [58414500, 82488700, 71983600]
      }]}
    }],
    "error": null
  }
}`

func TestYahooFetcher_FetchDaily(t *testing.T) {
	var gotPath, gotInterval, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	f := NewYahooFetcher(server.URL, time.Second)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := f.FetchDaily(context.Background(), "AAPL", from, from.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.NotEmpty(t, gotAgent)

	// the null close is dropped and the rest sorted ascending
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 185.64, bars[0].Close)
	assert.Equal(t, int64(82488700), bars[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, "AAPL", bars[1].Symbol)
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noData bool
	}{
		{"api error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, false},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"bad json", http.StatusOK, `{`, false},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, true},
		{"only nulls", http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704205800],"indicators":{"quote":[{"open":[null],"high":[null],"low":[null],"close":[null],"volume":[null]}]}}],"error":null}}`, true},
		{"misaligned", http.StatusOK, `{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[1704205800,1704292200],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1],"volume":[1]}]}}],"error":null}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewYahooFetcher(server.URL, time.Second).FetchDaily(context.Background(), "ZZZZ", time.Now().AddDate(0, 0, -5), time.Now())
			require.Error(t, err)
			if tt.noData {
				assert.ErrorIs(t, err, ErrNoData)
			}
		})
	}
}

func TestYahooFetcher_EmptySymbol(t *testing.T) {
	_, err := NewYahooFetcher("", 0).FetchDaily(context.Background(), "", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestYahooFetcher_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewYahooFetcher(server.URL, time.Second).FetchDaily(ctx, "AAPL", time.Now(), time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
