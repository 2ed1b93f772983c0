package models

import (
	"github.com/shopspring/decimal"
)

// Quote represents a realtime price snapshot for a symbol.
// Quotes are immutable: a refresh replaces the whole value, never mutates it.
type Quote struct {
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Timestamp     int64           `json:"timestamp"` // epoch millis
}

// Candle represents one OHLCV bar for a fixed time bucket
type Candle struct {
	Timestamp int64           `json:"timestamp"` // epoch seconds, bucket open
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// SymbolMatch represents a single symbol-search result
type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"display_symbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}

// CompanyProfile represents static company information
type CompanyProfile struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Exchange  string          `json:"exchange"`
	Industry  string          `json:"industry"`
	Sector    string          `json:"sector"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Currency  string          `json:"currency"`
	IPODate   string          `json:"ipo_date"`
	WebURL    string          `json:"web_url"`
	Logo      string          `json:"logo"`
}

// NewsItem represents a single market or company news article
type NewsItem struct {
	Headline    string `json:"headline"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	Related     string `json:"related"`
	PublishedAt int64  `json:"published_at"` // epoch seconds
}

// MarketStatus represents the open/closed state of an exchange
type MarketStatus struct {
	Exchange  string `json:"exchange"`
	IsOpen    bool   `json:"is_open"`
	Session   string `json:"session"` // pre-market, regular, post-market, closed
	Timezone  string `json:"timezone"`
	Timestamp int64  `json:"timestamp"`
}

// MarketMovers holds the top gaining, losing and most active symbols
type MarketMovers struct {
	Gainers    []Quote `json:"gainers"`
	Losers     []Quote `json:"losers"`
	MostActive []Quote `json:"most_active"`
}

// SectorPerformance represents one sector's daily move, measured by its proxy ETF
type SectorPerformance struct {
	Sector        string          `json:"sector"`
	Symbol        string          `json:"symbol"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// IndexQuote pairs a market index with its latest quote for the overview
type IndexQuote struct {
	Name  string `json:"name"`
	Quote Quote  `json:"quote"`
}

// StockData is the composite payload returned for a symbol read:
// the latest quote plus the candle series backing it.
type StockData struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Period    string   `json:"period"`
	Quote     *Quote   `json:"quote,omitempty"`
	Candles   []Candle `json:"candles"`
}

// IndicatorName identifies a technical indicator
type IndicatorName string

const (
	IndicatorRSI   IndicatorName = "RSI"
	IndicatorMACD  IndicatorName = "MACD"
	IndicatorSMA   IndicatorName = "SMA"
	IndicatorEMA   IndicatorName = "EMA"
	IndicatorBB    IndicatorName = "BB"
	IndicatorSTOCH IndicatorName = "STOCH"
	IndicatorADX   IndicatorName = "ADX"
	IndicatorCCI   IndicatorName = "CCI"
	IndicatorWILLR IndicatorName = "WILLR"
	IndicatorMOM   IndicatorName = "MOM"
)

// ValidIndicators is the closed set of indicator names accepted by the API
var ValidIndicators = map[IndicatorName]bool{
	IndicatorRSI:   true,
	IndicatorMACD:  true,
	IndicatorSMA:   true,
	IndicatorEMA:   true,
	IndicatorBB:    true,
	IndicatorSTOCH: true,
	IndicatorADX:   true,
	IndicatorCCI:   true,
	IndicatorWILLR: true,
	IndicatorMOM:   true,
}

// IndicatorValue is one computed indicator result. Scalar indicators fill
// Value; MACD and BB fill Components. InsufficientData is set instead of a
// number when the series is shorter than the indicator's period.
type IndicatorValue struct {
	Value            decimal.Decimal            `json:"value,omitempty"`
	Components       map[string]decimal.Decimal `json:"components,omitempty"`
	InsufficientData bool                       `json:"insufficient_data,omitempty"`
}

// IndicatorSet maps indicator names to computed results for one series
type IndicatorSet map[IndicatorName]IndicatorValue
