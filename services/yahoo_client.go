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

const yahooProviderName = "yahoo"

// YahooClient is the fallback provider for quote and candle reads, backed by
// the public v8 chart endpoint. It covers only the operations the market data
// service falls back on; search, profile and news stay with the primary.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient creates a Yahoo chart client with a fixed request timeout
func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	return &YahooClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// yahooChartResponse represents the /v8/finance/chart payload
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamps []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// fetchChart performs one chart API call for a symbol
func (c *YahooClient) fetchChart(operation, symbol string, params url.Values) (*yahooChartResponse, error) {
	requestURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var raw yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("failed to parse response: %w", err)}
	}

	if raw.Chart.Error != nil {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("chart error %s: %s", raw.Chart.Error.Code, raw.Chart.Error.Description)}
	}
	if len(raw.Chart.Result) == 0 {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: operation, Symbol: symbol,
			Cause: fmt.Errorf("empty chart result")}
	}

	return &raw, nil
}

// GetQuote derives a quote from the latest chart metadata and daily bar
func (c *YahooClient) GetQuote(symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	raw, err := c.fetchChart("quote", symbol, params)
	if err != nil {
		return nil, err
	}

	result := raw.Chart.Result[0]
	price := decimal.NewFromFloat(result.Meta.RegularMarketPrice)
	prevClose := decimal.NewFromFloat(result.Meta.PreviousClose)

	change := price.Sub(prevClose)
	changePercent := decimal.Zero
	if !prevClose.IsZero() {
		changePercent = change.Div(prevClose).Mul(decimal.NewFromInt(100))
	}

	quote := &models.Quote{
		Symbol:        symbol,
		CurrentPrice:  price,
		Change:        change,
		ChangePercent: changePercent,
		PreviousClose: prevClose,
		Timestamp:     result.Meta.RegularMarketTime * 1000,
	}

	// Fill the day's OHLC from the single daily bar when present
	if len(result.Indicators.Quote) > 0 {
		bar := result.Indicators.Quote[0]
		if len(bar.Open) > 0 {
			quote.Open = decimal.NewFromFloat(bar.Open[0])
		}
		if len(bar.High) > 0 {
			quote.High = decimal.NewFromFloat(bar.High[0])
		}
		if len(bar.Low) > 0 {
			quote.Low = decimal.NewFromFloat(bar.Low[0])
		}
	}

	return quote, nil
}

// GetCandles fetches OHLCV bars between fromEpoch and toEpoch (seconds)
func (c *YahooClient) GetCandles(symbol, resolution string, fromEpoch, toEpoch int64) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", fromEpoch))
	params.Set("period2", fmt.Sprintf("%d", toEpoch))
	params.Set("interval", yahooInterval(resolution))

	raw, err := c.fetchChart("candles", symbol, params)
	if err != nil {
		return nil, err
	}

	result := raw.Chart.Result[0]
	if len(result.Timestamps) == 0 || len(result.Indicators.Quote) == 0 {
		return []models.Candle{}, nil
	}

	bars := result.Indicators.Quote[0]
	if len(bars.Close) != len(result.Timestamps) {
		return nil, &models.ProviderError{Provider: yahooProviderName, Operation: "candles", Symbol: symbol,
			Cause: fmt.Errorf("mismatched candle arrays: %d timestamps, %d closes", len(result.Timestamps), len(bars.Close))}
	}

	candles := make([]models.Candle, 0, len(result.Timestamps))
	for i, ts := range result.Timestamps {
		candle := models.Candle{
			Timestamp: ts,
			Close:     decimal.NewFromFloat(bars.Close[i]),
		}
		if i < len(bars.Open) {
			candle.Open = decimal.NewFromFloat(bars.Open[i])
		}
		if i < len(bars.High) {
			candle.High = decimal.NewFromFloat(bars.High[i])
		}
		if i < len(bars.Low) {
			candle.Low = decimal.NewFromFloat(bars.Low[i])
		}
		if i < len(bars.Volume) {
			candle.Volume = bars.Volume[i]
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// yahooInterval maps Finnhub-style resolutions onto Yahoo chart intervals
func yahooInterval(resolution string) string {
	switch resolution {
	case "1":
		return "1m"
	case "5":
		return "5m"
	case "15":
		return "15m"
	case "30":
		return "30m"
	case "60":
		return "60m"
	case "W":
		return "1wk"
	case "M":
		return "1mo"
	default:
		return "1d"
	}
}
