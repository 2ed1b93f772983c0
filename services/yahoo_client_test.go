package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse-backend/models"
)

func newYahooTestServer(t *testing.T, handler http.HandlerFunc) *YahooClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewYahooClient(server.URL, 5*time.Second)
}

func TestYahooGetQuoteDerivesChange(t *testing.T) {
	client := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":150,"chartPreviousClose":120,"regularMarketTime":1700000000},
			"timestamp":[1700000000],
			"indicators":{"quote":[{"open":[148],"high":[151],"low":[147],"close":[150],"volume":[9000]}]}
		}],"error":null}}`))
	})

	quote, err := client.GetQuote("AAPL")
	require.NoError(t, err)

	assert.True(t, quote.Change.Equal(decimal.NewFromInt(30)), "got %s", quote.Change)
	assert.True(t, quote.ChangePercent.Equal(decimal.NewFromInt(25)), "got %s", quote.ChangePercent)
	assert.True(t, quote.Open.Equal(decimal.NewFromInt(148)))
	assert.Equal(t, int64(1700000000000), quote.Timestamp)
}

func TestYahooChartError(t *testing.T) {
	client := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	var providerErr *models.ProviderError
	_, err := client.GetQuote("NOSUCH")
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "yahoo", providerErr.Provider)
	assert.Contains(t, providerErr.Error(), "No data found")
}

func TestYahooGetCandles(t *testing.T) {
	client := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":102,"chartPreviousClose":100,"regularMarketTime":1700086400},
			"timestamp":[1700000000,1700086400],
			"indicators":{"quote":[{"open":[100,101],"high":[102,103],"low":[99,100],"close":[101,102],"volume":[5000,6000]}]}
		}],"error":null}}`))
	})

	candles, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.True(t, candles[0].Close.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, int64(6000), candles[1].Volume)
}

func TestYahooGetCandlesEmptyResult(t *testing.T) {
	client := newYahooTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":0,"chartPreviousClose":0,"regularMarketTime":0}}],"error":null}}`))
	})

	candles, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestYahooIntervalMapping(t *testing.T) {
	assert.Equal(t, "1m", yahooInterval("1"))
	assert.Equal(t, "60m", yahooInterval("60"))
	assert.Equal(t, "1d", yahooInterval("D"))
	assert.Equal(t, "1wk", yahooInterval("W"))
	assert.Equal(t, "1mo", yahooInterval("M"))
}
