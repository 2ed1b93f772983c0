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

func newFinnhubTestServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *FinnhubClient) {
	t.Helper()
	mux := http.NewServeMux()
	for path, handler := range handlers {
		mux.HandleFunc(path, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, NewFinnhubClient("test-key", server.URL, 5*time.Second)
}

func TestFinnhubGetQuote(t *testing.T) {
	var gotToken, gotSymbol string
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/quote": func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.URL.Query().Get("token")
			gotSymbol = r.URL.Query().Get("symbol")
			w.Write([]byte(`{"c":150.25,"d":1.5,"dp":1.01,"h":151,"l":149,"o":149.5,"pc":148.75,"t":1700000000}`))
		},
	})

	quote, err := client.GetQuote("AAPL")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotToken)
	assert.Equal(t, "AAPL", gotSymbol)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.True(t, quote.CurrentPrice.Equal(decimal.NewFromFloat(150.25)))
	assert.Equal(t, int64(1700000000000), quote.Timestamp, "timestamp must be converted to millis")
}

func TestFinnhubGetQuoteUnknownSymbol(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/quote": func(w http.ResponseWriter, r *http.Request) {
			// Finnhub answers unknown symbols with zeroes, not an error
			w.Write([]byte(`{"c":0,"d":0,"dp":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
		},
	})

	var providerErr *models.ProviderError
	_, err := client.GetQuote("NOSUCH")
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "finnhub", providerErr.Provider)
	assert.Equal(t, "quote", providerErr.Operation)
	assert.Equal(t, "NOSUCH", providerErr.Symbol)
}

func TestFinnhubGetQuoteHTTPError(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/quote": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		},
	})

	var providerErr *models.ProviderError
	_, err := client.GetQuote("AAPL")
	require.ErrorAs(t, err, &providerErr)
	assert.Contains(t, providerErr.Error(), "429")
}

func TestFinnhubGetCandles(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/candle": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "D", r.URL.Query().Get("resolution"))
			w.Write([]byte(`{"s":"ok","t":[1700000000,1700086400],"o":[100,101],"h":[102,103],"l":[99,100],"c":[101,102],"v":[5000,6000]}`))
		},
	})

	candles, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Timestamp)
	assert.True(t, candles[1].Close.Equal(decimal.NewFromInt(102)))
	assert.Equal(t, int64(6000), candles[1].Volume)
}

func TestFinnhubGetCandlesNoDataIsEmpty(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/candle": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"s":"no_data"}`))
		},
	})

	candles, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.NoError(t, err, "an empty range is a valid empty result")
	assert.Empty(t, candles)
	assert.NotNil(t, candles)
}

func TestFinnhubGetCandlesMismatchedArrays(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/candle": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"s":"ok","t":[1700000000,1700086400],"o":[100],"h":[102],"l":[99],"c":[101],"v":[5000]}`))
		},
	})

	var providerErr *models.ProviderError
	_, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.ErrorAs(t, err, &providerErr)
}

func TestFinnhubGetCandlesRaggedArrays(t *testing.T) {
	// Timestamps and closes agree but the other arrays are short; this must
	// surface as a typed error, never an index panic
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/candle": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"s":"ok","t":[1700000000,1700086400],"c":[101,102],"o":[100],"h":[102],"l":[99],"v":[5000]}`))
		},
	})

	var providerErr *models.ProviderError
	_, err := client.GetCandles("AAPL", "D", 1699000000, 1701000000)
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "candles", providerErr.Operation)
}

func TestFinnhubSearchCapsResults(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/search": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count":3,"result":[
				{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"},
				{"description":"APPLE HOSPITALITY","displaySymbol":"APLE","symbol":"APLE","type":"REIT"},
				{"description":"MAUI LAND","displaySymbol":"MLP","symbol":"MLP","type":"Common Stock"}]}`))
		},
	})

	matches, err := client.Search("apple", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "AAPL", matches[0].Symbol)
	assert.Equal(t, "Common Stock", matches[0].Type)
}

func TestFinnhubGetProfileEmptyPayload(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/profile2": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
	})

	var providerErr *models.ProviderError
	_, err := client.GetProfile("NOSUCH")
	require.ErrorAs(t, err, &providerErr)
}

func TestFinnhubGetNewsRoutesCompanyNews(t *testing.T) {
	var gotPath string
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/company-news": func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
			assert.NotEmpty(t, r.URL.Query().Get("from"))
			w.Write([]byte(`[{"category":"company","datetime":1700000000,"headline":"h1","source":"s","summary":"x","url":"u"}]`))
		},
	})

	items, err := client.GetNews("", "AAPL", 10)
	require.NoError(t, err)
	assert.Equal(t, "/company-news", gotPath)
	require.Len(t, items, 1)
	assert.Equal(t, "h1", items[0].Headline)
}

func TestFinnhubGetMarketStatusDefaultsSession(t *testing.T) {
	_, client := newFinnhubTestServer(t, map[string]http.HandlerFunc{
		"/stock/market-status": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"exchange":"US","isOpen":false,"session":"","timezone":"America/New_York","t":1700000000}`))
		},
	})

	status, err := client.GetMarketStatus("US")
	require.NoError(t, err)
	assert.False(t, status.IsOpen)
	assert.Equal(t, "closed", status.Session, "empty session must normalize to closed")
}
