package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketpulse-backend/models"

	"github.com/shopspring/decimal"
)

const finnhubProviderName = "finnhub"

// FinnhubClient is a typed wrapper around the Finnhub REST API. It marshals
// wire data into the canonical model shapes and nothing more: input
// validation and retry policy belong to the caller.
type FinnhubClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFinnhubClient creates a Finnhub client with a fixed request timeout
func NewFinnhubClient(apiKey, baseURL string, timeout time.Duration) *FinnhubClient {
	return &FinnhubClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// finnhubQuoteResponse represents the /quote payload
type finnhubQuoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// finnhubCandleResponse represents the /stock/candle payload
type finnhubCandleResponse struct {
	Close      []float64 `json:"c"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Open       []float64 `json:"o"`
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Volume     []int64   `json:"v"`
}

// finnhubSearchResponse represents the /search payload
type finnhubSearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// finnhubProfileResponse represents the /stock/profile2 payload
type finnhubProfileResponse struct {
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	Industry             string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	Logo                 string  `json:"logo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
	WebURL               string  `json:"weburl"`
}

// finnhubNewsItem represents one element of the /news and /company-news payloads
type finnhubNewsItem struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// finnhubMarketStatusResponse represents the /stock/market-status payload
type finnhubMarketStatusResponse struct {
	Exchange  string `json:"exchange"`
	IsOpen    bool   `json:"isOpen"`
	Session   string `json:"session"`
	Timezone  string `json:"timezone"`
	Timestamp int64  `json:"t"`
}

// get performs one API call and decodes the JSON body into out
func (c *FinnhubClient) get(operation, symbol, path string, params url.Values, out interface{}) error {
	params.Set("token", c.apiKey)
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return &models.ProviderError{Provider: finnhubProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.ProviderError{Provider: finnhubProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &models.ProviderError{Provider: finnhubProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.ProviderError{Provider: finnhubProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("failed to parse response: %w", err)}
	}

	return nil
}

// GetQuote fetches the current quote for a symbol
func (c *FinnhubClient) GetQuote(symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw finnhubQuoteResponse
	if err := c.get("quote", symbol, "/quote", params, &raw); err != nil {
		return nil, err
	}

	// Finnhub returns zeroes, not an error status, for unknown symbols
	if raw.Timestamp == 0 && raw.Current == 0 {
		return nil, &models.ProviderError{Provider: finnhubProviderName, Operation: "quote", Symbol: symbol,
			Cause: fmt.Errorf("no quote data")}
	}

	return &models.Quote{
		Symbol:        symbol,
		CurrentPrice:  decimal.NewFromFloat(raw.Current),
		Change:        decimal.NewFromFloat(raw.Change),
		ChangePercent: decimal.NewFromFloat(raw.ChangePercent),
		High:          decimal.NewFromFloat(raw.High),
		Low:           decimal.NewFromFloat(raw.Low),
		Open:          decimal.NewFromFloat(raw.Open),
		PreviousClose: decimal.NewFromFloat(raw.PreviousClose),
		Timestamp:     raw.Timestamp * 1000,
	}, nil
}

// GetCandles fetches OHLCV bars for a symbol between fromEpoch and toEpoch
// (seconds). An empty range is a valid empty result, not an error.
func (c *FinnhubClient) GetCandles(symbol, resolution string, fromEpoch, toEpoch int64) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("resolution", resolution)
	params.Set("from", fmt.Sprintf("%d", fromEpoch))
	params.Set("to", fmt.Sprintf("%d", toEpoch))

	var raw finnhubCandleResponse
	if err := c.get("candles", symbol, "/stock/candle", params, &raw); err != nil {
		return nil, err
	}

	if raw.Status == "no_data" {
		return []models.Candle{}, nil
	}
	if raw.Status != "ok" {
		return nil, &models.ProviderError{Provider: finnhubProviderName, Operation: "candles", Symbol: symbol,
			Cause: fmt.Errorf("unexpected candle status %q", raw.Status)}
	}
	n := len(raw.Timestamps)
	if len(raw.Close) != n || len(raw.Open) != n || len(raw.High) != n ||
		len(raw.Low) != n || len(raw.Volume) != n {
		return nil, &models.ProviderError{Provider: finnhubProviderName, Operation: "candles", Symbol: symbol,
			Cause: fmt.Errorf("mismatched candle arrays: %d timestamps, %d opens, %d highs, %d lows, %d closes, %d volumes",
				n, len(raw.Open), len(raw.High), len(raw.Low), len(raw.Close), len(raw.Volume))}
	}

	candles := make([]models.Candle, 0, len(raw.Timestamps))
	for i := range raw.Timestamps {
		candles = append(candles, models.Candle{
			Timestamp: raw.Timestamps[i],
			Open:      decimal.NewFromFloat(raw.Open[i]),
			High:      decimal.NewFromFloat(raw.High[i]),
			Low:       decimal.NewFromFloat(raw.Low[i]),
			Close:     decimal.NewFromFloat(raw.Close[i]),
			Volume:    raw.Volume[i],
		})
	}

	return candles, nil
}

// Search looks up symbols matching a free-text query
func (c *FinnhubClient) Search(query string, limit int) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("q", query)

	var raw finnhubSearchResponse
	if err := c.get("search", "", "/search", params, &raw); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, limit)
	for _, result := range raw.Result {
		if len(matches) >= limit {
			break
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:        result.Symbol,
			DisplaySymbol: result.DisplaySymbol,
			Description:   result.Description,
			Type:          result.Type,
		})
	}

	return matches, nil
}

// GetProfile fetches the company profile for a symbol
func (c *FinnhubClient) GetProfile(symbol string) (*models.CompanyProfile, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw finnhubProfileResponse
	if err := c.get("profile", symbol, "/stock/profile2", params, &raw); err != nil {
		return nil, err
	}

	if raw.Ticker == "" && raw.Name == "" {
		return nil, &models.ProviderError{Provider: finnhubProviderName, Operation: "profile", Symbol: symbol,
			Cause: fmt.Errorf("no profile data")}
	}

	return &models.CompanyProfile{
		Symbol:    symbol,
		Name:      raw.Name,
		Exchange:  raw.Exchange,
		Industry:  raw.Industry,
		Sector:    raw.Industry,
		MarketCap: decimal.NewFromFloat(raw.MarketCapitalization),
		Currency:  raw.Currency,
		IPODate:   raw.IPO,
		WebURL:    raw.WebURL,
		Logo:      raw.Logo,
	}, nil
}

// GetNews fetches general news for a category, or company news when symbol
// is non-empty. Results are capped at limit.
func (c *FinnhubClient) GetNews(category, symbol string, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	path := "/news"
	if symbol != "" {
		path = "/company-news"
		params.Set("symbol", symbol)
		params.Set("from", time.Now().AddDate(0, 0, -7).Format("2006-01-02"))
		params.Set("to", time.Now().Format("2006-01-02"))
	} else {
		if category == "" {
			category = "general"
		}
		params.Set("category", category)
	}

	var raw []finnhubNewsItem
	if err := c.get("news", symbol, path, params, &raw); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, limit)
	for _, article := range raw {
		if len(items) >= limit {
			break
		}
		items = append(items, models.NewsItem{
			Headline:    article.Headline,
			Summary:     article.Summary,
			Source:      article.Source,
			URL:         article.URL,
			Image:       article.Image,
			Category:    article.Category,
			Related:     article.Related,
			PublishedAt: article.Datetime,
		})
	}

	return items, nil
}

// GetMarketStatus fetches the open/closed state of an exchange
func (c *FinnhubClient) GetMarketStatus(exchange string) (*models.MarketStatus, error) {
	params := url.Values{}
	params.Set("exchange", exchange)

	var raw finnhubMarketStatusResponse
	if err := c.get("market-status", "", "/stock/market-status", params, &raw); err != nil {
		return nil, err
	}

	session := raw.Session
	if session == "" {
		session = "closed"
	}

	return &models.MarketStatus{
		Exchange:  exchange,
		IsOpen:    raw.IsOpen,
		Session:   session,
		Timezone:  raw.Timezone,
		Timestamp: raw.Timestamp,
	}, nil
}
