package services

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"marketpulse-backend/models"
)

// Tracked market indices, by proxy ETF. The overview fans out one lookup per
// entry and tolerates partial failure.
var marketIndices = []struct {
	Name   string
	Symbol string
}{
	{"S&P 500", "SPY"},
	{"Nasdaq 100", "QQQ"},
	{"Dow Jones", "DIA"},
	{"Russell 2000", "IWM"},
}

// Large-cap universe scanned for the movers board
var moversUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK.B",
	"JPM", "V", "UNH", "XOM", "JNJ", "WMT", "PG", "MA",
	"HD", "BAC", "KO", "NFLX",
}

// Sector proxy ETFs for the sector performance board
var sectorETFs = []struct {
	Sector string
	Symbol string
}{
	{"Technology", "XLK"},
	{"Financials", "XLF"},
	{"Health Care", "XLV"},
	{"Energy", "XLE"},
	{"Consumer Discretionary", "XLY"},
	{"Consumer Staples", "XLP"},
	{"Industrials", "XLI"},
	{"Utilities", "XLU"},
	{"Real Estate", "XLRE"},
	{"Materials", "XLB"},
	{"Communication Services", "XLC"},
}

const moversBoardSize = 5

// fetchQuotesConcurrently fans out one quote fetch per symbol and collects
// the ones that succeeded. A failed symbol is logged and excluded; it never
// fails the whole batch.
func (s *MarketDataService) fetchQuotesConcurrently(symbols []string) []models.Quote {
	results := make([]*models.Quote, len(symbols))
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(slot int, sym string) {
			defer wg.Done()
			quote, err := s.fetchQuote(sym, false)
			if err != nil {
				log.Printf("Quote fetch failed for %s: %v", sym, err)
				return
			}
			results[slot] = quote
		}(i, symbol)
	}
	wg.Wait()

	quotes := make([]models.Quote, 0, len(symbols))
	for _, quote := range results {
		if quote != nil {
			quotes = append(quotes, *quote)
		}
	}
	return quotes
}

// GetMarketOverview fans out to the tracked index lookups concurrently and
// returns the ones that succeeded. One broken lookup never fails the overview.
func (s *MarketDataService) GetMarketOverview() ([]models.IndexQuote, error) {
	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	results := make([]*models.IndexQuote, len(marketIndices))
	var wg sync.WaitGroup

	for i, index := range marketIndices {
		wg.Add(1)
		go func(slot int, name, symbol string) {
			defer wg.Done()
			quote, err := s.fetchQuote(symbol, false)
			if err != nil {
				log.Printf("Index lookup failed for %s (%s): %v", name, symbol, err)
				return
			}
			results[slot] = &models.IndexQuote{Name: name, Quote: *quote}
		}(i, index.Name, index.Symbol)
	}
	wg.Wait()

	overview := make([]models.IndexQuote, 0, len(marketIndices))
	for _, entry := range results {
		if entry != nil {
			overview = append(overview, *entry)
		}
	}
	return overview, nil
}

// GetMarketMovers scans the large-cap universe and ranks the day's gainers,
// losers and most active symbols
func (s *MarketDataService) GetMarketMovers() (*models.MarketMovers, error) {
	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	quotes := s.fetchQuotesConcurrently(moversUniverse)
	if len(quotes) == 0 {
		return nil, &models.ProviderError{Provider: "aggregate", Operation: "movers",
			Cause: fmt.Errorf("no quotes available for the movers universe")}
	}

	byGain := make([]models.Quote, len(quotes))
	copy(byGain, quotes)
	sort.Slice(byGain, func(i, j int) bool {
		return byGain[i].ChangePercent.GreaterThan(byGain[j].ChangePercent)
	})

	byActivity := make([]models.Quote, len(quotes))
	copy(byActivity, quotes)
	sort.Slice(byActivity, func(i, j int) bool {
		return byActivity[i].ChangePercent.Abs().GreaterThan(byActivity[j].ChangePercent.Abs())
	})

	losers := make([]models.Quote, len(byGain))
	for i, quote := range byGain {
		losers[len(byGain)-1-i] = quote
	}

	return &models.MarketMovers{
		Gainers:    topN(byGain, moversBoardSize),
		Losers:     topN(losers, moversBoardSize),
		MostActive: topN(byActivity, moversBoardSize),
	}, nil
}

// GetSectorPerformance reports each sector's daily move via its proxy ETF
func (s *MarketDataService) GetSectorPerformance() ([]models.SectorPerformance, error) {
	if s.primary == nil {
		return nil, &models.NotInitializedError{Service: "market data service"}
	}

	symbols := make([]string, len(sectorETFs))
	for i, sector := range sectorETFs {
		symbols[i] = sector.Symbol
	}

	quotes := s.fetchQuotesConcurrently(symbols)
	bySymbol := make(map[string]models.Quote, len(quotes))
	for _, quote := range quotes {
		bySymbol[quote.Symbol] = quote
	}

	performance := make([]models.SectorPerformance, 0, len(sectorETFs))
	for _, sector := range sectorETFs {
		quote, ok := bySymbol[sector.Symbol]
		if !ok {
			continue
		}
		performance = append(performance, models.SectorPerformance{
			Sector:        sector.Sector,
			Symbol:        sector.Symbol,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
		})
	}

	sort.Slice(performance, func(i, j int) bool {
		return performance[i].ChangePercent.GreaterThan(performance[j].ChangePercent)
	})

	return performance, nil
}

// topN returns at most n leading elements of quotes
func topN(quotes []models.Quote, n int) []models.Quote {
	if len(quotes) <= n {
		return quotes
	}
	return quotes[:n]
}
