package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"marketpulse-backend/models"
	"marketpulse-backend/services/analysis"

	"github.com/shopspring/decimal"
)

// Cache TTLs per data kind. The cache itself is TTL-agnostic; each call site
// supplies its own.
const (
	QuoteTTL   = 60 * time.Second
	CandleTTL  = 5 * time.Minute
	ProfileTTL = 24 * time.Hour
	SearchTTL  = 5 * time.Minute
	NewsTTL    = 5 * time.Minute
	StatusTTL  = 60 * time.Second

	MaxSymbolLength = 10
	MaxSearchLimit  = 50
)

// Default lookback periods per indicator
const (
	defaultRSIPeriod   = 14
	defaultSMAPeriod   = 20
	defaultEMAPeriod   = 20
	defaultBBPeriod    = 20
	defaultBBStdDev    = 2.0
	defaultStochPeriod = 14
	defaultADXPeriod   = 14
	defaultCCIPeriod   = 20
	defaultWillRPeriod = 14
	defaultMomPeriod   = 10
)

// PrimaryProvider is the full provider surface the service orchestrates
type PrimaryProvider interface {
	GetQuote(symbol string) (*models.Quote, error)
	GetCandles(symbol, resolution string, fromEpoch, toEpoch int64) ([]models.Candle, error)
	Search(query string, limit int) ([]models.SymbolMatch, error)
	GetProfile(symbol string) (*models.CompanyProfile, error)
	GetNews(category, symbol string, limit int) ([]models.NewsItem, error)
	GetMarketStatus(exchange string) (*models.MarketStatus, error)
}

// FallbackProvider covers the quote and candle reads the service can retry
// against a secondary source
type FallbackProvider interface {
	GetQuote(symbol string) (*models.Quote, error)
	GetCandles(symbol, resolution string, fromEpoch, toEpoch int64) ([]models.Candle, error)
}

// MarketDataService orchestrates the provider clients, the TTL caches and the
// indicator engine behind a provider-agnostic contract. Construct it once at
// process start and pass it by reference; it holds no package-level state.
type MarketDataService struct {
	primary  PrimaryProvider
	fallback FallbackProvider

	quoteCache   *Cache[*models.Quote]
	candleCache  *Cache[[]models.Candle]
	profileCache *Cache[*models.CompanyProfile]
	searchCache  *Cache[[]models.SymbolMatch]
	newsCache    *Cache[[]models.NewsItem]
	statusCache  *Cache[*models.MarketStatus]
}

// NewMarketDataService creates the service. primary may be nil when no API
// credential is configured; reads then fail with NotInitializedError rather
// than returning empty data. fallback is optional.
func NewMarketDataService(primary PrimaryProvider, fallback FallbackProvider) *MarketDataService {
	return &MarketDataService{
		primary:      primary,
		fallback:     fallback,
		quoteCache:   NewCache[*models.Quote](),
		candleCache:  NewCache[[]models.Candle](),
		profileCache: NewCache[*models.CompanyProfile](),
		searchCache:  NewCache[[]models.SymbolMatch](),
		newsCache:    NewCache[[]models.NewsItem](),
		statusCache:  NewCache[*models.MarketStatus](),
	}
}

// validTimeframes maps accepted timeframe names to provider resolutions
var validTimeframes = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"1d":  "D",
	"1w":  "W",
	"1mo": "M",
}

// validPeriods maps accepted period names to lookback durations
var validPeriods = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
	"3mo": 90 * 24 * time.Hour,
	"6mo": 180 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
	"2y":  2 * 365 * 24 * time.Hour,
}

// NormalizeSymbol uppercases and trims a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// validateSymbol checks symbol shape before any I/O
func validateSymbol(symbol string) (string, error) {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return "", models.NewValidationError("symbol", "must not be empty")
	}
	if len(normalized) > MaxSymbolLength {
		return "", models.NewValidationError("symbol", fmt.Sprintf("must be at most %d characters", MaxSymbolLength))
	}
	return normalized, nil
}

// resolveTimeframe validates a timeframe name and returns the provider resolution
func resolveTimeframe(timeframe string) (string, error) {
	resolution, ok := validTimeframes[strings.ToLower(timeframe)]
	if !ok {
		return "", models.NewValidationError("timeframe", fmt.Sprintf("unknown timeframe %q", timeframe))
	}
	return resolution, nil
}

// resolvePeriod validates a period name and returns its lookback duration
func resolvePeriod(period string) (time.Duration, error) {
	lookback, ok := validPeriods[strings.ToLower(period)]
	if !ok {
		return 0, models.NewValidationError("period", fmt.Sprintf("unknown period %q", period))
	}
	return lookback, nil
}

// fetchQuote returns the cached quote unless force is set, falling back to
// the secondary provider when the primary fails
func (s *MarketDataService) fetchQuote(symbol string, force bool) (*models.Quote, error) {
	cacheKey := "quote:" + symbol
	if !force {
		if quote, ok := s.quoteCache.Get(cacheKey); ok {
			return quote, nil
		}
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	quote, err := s.primary.GetQuote(symbol)
	if err != nil && s.fallback != nil {
		log.Printf("Primary quote fetch failed for %s, trying fallback: %v", symbol, err)
		quote, err = s.fallback.GetQuote(symbol)
	}
	if err != nil {
		return nil, err
	}

	s.quoteCache.Set(cacheKey, quote, QuoteTTL)
	return quote, nil
}

// GetQuote returns the current quote for a symbol, cache-first
func (s *MarketDataService) GetQuote(symbol string) (*models.Quote, error) {
	normalized, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.fetchQuote(normalized, false)
}

// RefreshQuote bypasses the cache and repopulates it. The polling scheduler
// drives this for subscribed symbols.
func (s *MarketDataService) RefreshQuote(symbol string) (*models.Quote, error) {
	normalized, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.fetchQuote(normalized, true)
}

// fetchCandles returns the cached series for the (symbol, resolution, period)
// triple, populating it from a provider on miss
func (s *MarketDataService) fetchCandles(symbol, resolution string, lookback time.Duration, cacheKey string) ([]models.Candle, error) {
	if candles, ok := s.candleCache.Get(cacheKey); ok {
		return candles, nil
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	to := time.Now().Unix()
	from := time.Now().Add(-lookback).Unix()

	candles, err := s.primary.GetCandles(symbol, resolution, from, to)
	if err != nil && s.fallback != nil {
		log.Printf("Primary candle fetch failed for %s, trying fallback: %v", symbol, err)
		candles, err = s.fallback.GetCandles(symbol, resolution, from, to)
	}
	if err != nil {
		return nil, err
	}

	s.candleCache.Set(cacheKey, candles, CandleTTL)
	return candles, nil
}

// GetStockData returns the latest quote plus the candle series for a
// (symbol, timeframe, period) triple
func (s *MarketDataService) GetStockData(symbol, timeframe, period string) (*models.StockData, error) {
	normalized, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	resolution, err := resolveTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	lookback, err := resolvePeriod(period)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("candles:%s:%s:%s", normalized, resolution, strings.ToLower(period))
	candles, err := s.fetchCandles(normalized, resolution, lookback, cacheKey)
	if err != nil {
		return nil, err
	}

	data := &models.StockData{
		Symbol:    normalized,
		Timeframe: strings.ToLower(timeframe),
		Period:    strings.ToLower(period),
		Candles:   candles,
	}

	// The quote is best-effort decoration: candle history alone is a valid answer
	if quote, err := s.fetchQuote(normalized, false); err == nil {
		data.Quote = quote
	} else {
		log.Printf("Quote unavailable for %s: %v", normalized, err)
	}

	return data, nil
}

// GetTechnicalIndicators computes the requested indicator subset from the
// candle series for symbol+timeframe. Only requested indicators are computed.
func (s *MarketDataService) GetTechnicalIndicators(symbol string, indicators []string, timeframe string) (models.IndicatorSet, error) {
	normalized, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	resolution, err := resolveTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if len(indicators) == 0 {
		return nil, models.NewValidationError("indicators", "must request at least one indicator")
	}

	requested := make([]models.IndicatorName, 0, len(indicators))
	for _, raw := range indicators {
		name := models.IndicatorName(strings.ToUpper(strings.TrimSpace(raw)))
		if !models.ValidIndicators[name] {
			return nil, models.NewValidationError("indicators", fmt.Sprintf("unknown indicator %q", raw))
		}
		requested = append(requested, name)
	}

	// A year of bars gives every default period enough history when available
	cacheKey := fmt.Sprintf("candles:%s:%s:indicators", normalized, resolution)
	candles, err := s.fetchCandles(normalized, resolution, 365*24*time.Hour, cacheKey)
	if err != nil {
		return nil, err
	}

	closes := make([]decimal.Decimal, len(candles))
	highs := make([]decimal.Decimal, len(candles))
	lows := make([]decimal.Decimal, len(candles))
	for i, candle := range candles {
		closes[i] = candle.Close
		highs[i] = candle.High
		lows[i] = candle.Low
	}

	result := make(models.IndicatorSet, len(requested))
	for _, name := range requested {
		result[name] = computeIndicator(name, highs, lows, closes)
	}

	return result, nil
}

// computeIndicator evaluates one indicator, mapping short series onto the
// explicit insufficient-data marker instead of a number
func computeIndicator(name models.IndicatorName, highs, lows, closes []decimal.Decimal) models.IndicatorValue {
	toValue := func(value decimal.Decimal, err error) models.IndicatorValue {
		if err != nil {
			if !errors.Is(err, analysis.ErrInsufficientData) {
				log.Printf("Indicator %s failed: %v", name, err)
			}
			return models.IndicatorValue{InsufficientData: true}
		}
		return models.IndicatorValue{Value: value}
	}

	switch name {
	case models.IndicatorRSI:
		return toValue(analysis.RSI(closes, defaultRSIPeriod))
	case models.IndicatorSMA:
		return toValue(analysis.SMA(closes, defaultSMAPeriod))
	case models.IndicatorEMA:
		return toValue(analysis.EMA(closes, defaultEMAPeriod))
	case models.IndicatorSTOCH:
		return toValue(analysis.StochasticK(highs, lows, closes, defaultStochPeriod))
	case models.IndicatorADX:
		return toValue(analysis.ADX(highs, lows, closes, defaultADXPeriod))
	case models.IndicatorCCI:
		return toValue(analysis.CCI(highs, lows, closes, defaultCCIPeriod))
	case models.IndicatorWILLR:
		return toValue(analysis.WilliamsR(highs, lows, closes, defaultWillRPeriod))
	case models.IndicatorMOM:
		return toValue(analysis.Momentum(closes, defaultMomPeriod))
	case models.IndicatorMACD:
		macd, err := analysis.MACD(closes)
		if err != nil {
			return models.IndicatorValue{InsufficientData: true}
		}
		return models.IndicatorValue{Components: map[string]decimal.Decimal{
			"macd":      macd.MACD,
			"signal":    macd.Signal,
			"histogram": macd.Histogram,
		}}
	case models.IndicatorBB:
		bands, err := analysis.Bollinger(closes, defaultBBPeriod, defaultBBStdDev)
		if err != nil {
			return models.IndicatorValue{InsufficientData: true}
		}
		return models.IndicatorValue{Components: map[string]decimal.Decimal{
			"upper":  bands.Upper,
			"middle": bands.Middle,
			"lower":  bands.Lower,
		}}
	}

	return models.IndicatorValue{InsufficientData: true}
}

// SearchStocks looks up symbols matching a free-text query
func (s *MarketDataService) SearchStocks(query string, limit int) ([]models.SymbolMatch, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, models.NewValidationError("query", "must not be empty")
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, models.NewValidationError("limit", fmt.Sprintf("must be within [1,%d]", MaxSearchLimit))
	}

	cacheKey := fmt.Sprintf("search:%s:%d", strings.ToLower(trimmed), limit)
	if matches, ok := s.searchCache.Get(cacheKey); ok {
		return matches, nil
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	matches, err := s.primary.Search(trimmed, limit)
	if err != nil {
		return nil, err
	}

	s.searchCache.Set(cacheKey, matches, SearchTTL)
	return matches, nil
}

// GetCompanyProfile returns static company information for a symbol
func (s *MarketDataService) GetCompanyProfile(symbol string) (*models.CompanyProfile, error) {
	normalized, err := validateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	cacheKey := "profile:" + normalized
	if profile, ok := s.profileCache.Get(cacheKey); ok {
		return profile, nil
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	profile, err := s.primary.GetProfile(normalized)
	if err != nil {
		return nil, err
	}

	s.profileCache.Set(cacheKey, profile, ProfileTTL)
	return profile, nil
}

// GetMarketNews returns recent general market news for a category
func (s *MarketDataService) GetMarketNews(category string, limit int) ([]models.NewsItem, error) {
	if limit < 1 || limit > MaxSearchLimit {
		return nil, models.NewValidationError("limit", fmt.Sprintf("must be within [1,%d]", MaxSearchLimit))
	}
	if category == "" {
		category = "general"
	}

	cacheKey := fmt.Sprintf("news:%s:%d", category, limit)
	if items, ok := s.newsCache.Get(cacheKey); ok {
		return items, nil
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	items, err := s.primary.GetNews(category, "", limit)
	if err != nil {
		return nil, err
	}

	s.newsCache.Set(cacheKey, items, NewsTTL)
	return items, nil
}

// GetMarketStatus returns the open/closed state of an exchange
func (s *MarketDataService) GetMarketStatus(exchange string) (*models.MarketStatus, error) {
	if exchange == "" {
		exchange = "US"
	}

	cacheKey := "status:" + exchange
	if status, ok := s.statusCache.Get(cacheKey); ok {
		return status, nil
	}

	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	status, err := s.primary.GetMarketStatus(exchange)
	if err != nil {
		return nil, err
	}

	s.statusCache.Set(cacheKey, status, StatusTTL)
	return status, nil
}
