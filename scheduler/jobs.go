package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"marketpulse-backend/services"
)

// Scheduler manages the polling jobs. Refreshes for distinct symbols run in
// their own goroutines and never block one another.
type Scheduler struct {
	cron          *gocron.Scheduler
	service       *services.MarketDataService
	hub           *services.BroadcastHub
	subscriptions *SubscriptionSet

	pollInterval      time.Duration
	aggregateInterval time.Duration
}

// NewScheduler creates a scheduler instance
func NewScheduler(service *services.MarketDataService, hub *services.BroadcastHub, subscriptions *SubscriptionSet, pollInterval, aggregateInterval time.Duration) *Scheduler {
	return &Scheduler{
		cron:              gocron.NewScheduler(time.UTC),
		service:           service,
		hub:               hub,
		subscriptions:     subscriptions,
		pollInterval:      pollInterval,
		aggregateInterval: aggregateInterval,
	}
}

// Subscriptions exposes the symbol set the jobs iterate
func (s *Scheduler) Subscriptions() *SubscriptionSet {
	return s.subscriptions
}

// Start registers and starts all polling jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Refresh subscribed symbols on every poll tick
	s.cron.Every(s.pollInterval).Do(func() {
		s.refreshSubscribedSymbols()
	})

	// Refresh market-wide aggregates on a slower tick
	s.cron.Every(s.aggregateInterval).Do(func() {
		s.refreshMarketAggregates()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler. In-flight refreshes are allowed to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// refreshSubscribedSymbols refreshes every symbol in the current snapshot,
// one goroutine per symbol. A failure on one symbol never stops the others.
func (s *Scheduler) refreshSubscribedSymbols() {
	symbols := s.subscriptions.Snapshot()
	if len(symbols) == 0 {
		return
	}

	for _, symbol := range symbols {
		go s.refreshSymbol(symbol)
	}
}

// refreshSymbol force-refreshes one symbol and broadcasts the result. When
// the symbol was unsubscribed while the fetch was in flight, the result is
// kept in cache but not re-broadcast.
func (s *Scheduler) refreshSymbol(symbol string) {
	quote, err := s.service.RefreshQuote(symbol)
	if err != nil {
		log.Printf("Error refreshing quote for %s: %v", symbol, err)
		return
	}

	if !s.subscriptions.Contains(symbol) {
		return
	}

	s.hub.BroadcastAll(services.WSMessage{
		Type: services.MsgMarketUpdate,
		Data: services.MarketUpdatePayload{
			Symbol:    symbol,
			Data:      quote,
			Timestamp: time.Now().UnixMilli(),
		},
		Time: time.Now().Format(time.RFC3339),
	})
}

// refreshMarketAggregates refreshes process-wide aggregates and broadcasts
// them to all clients regardless of per-symbol subscriptions. Each aggregate
// fails independently.
func (s *Scheduler) refreshMarketAggregates() {
	now := time.Now().Format(time.RFC3339)

	if status, err := s.service.GetMarketStatus(""); err != nil {
		log.Printf("Error refreshing market status: %v", err)
	} else {
		s.hub.BroadcastAll(services.WSMessage{Type: services.MsgMarketStatus, Data: status, Time: now})
	}

	if movers, err := s.service.GetMarketMovers(); err != nil {
		log.Printf("Error refreshing market movers: %v", err)
	} else {
		s.hub.BroadcastAll(services.WSMessage{Type: services.MsgMarketMovers, Data: movers, Time: now})
	}

	if sectors, err := s.service.GetSectorPerformance(); err != nil {
		log.Printf("Error refreshing sector performance: %v", err)
	} else {
		s.hub.BroadcastAll(services.WSMessage{Type: services.MsgSectorPerformance, Data: sectors, Time: now})
	}

	if news, err := s.service.GetMarketNews("general", 10); err != nil {
		log.Printf("Error refreshing market news: %v", err)
	} else {
		s.hub.BroadcastAll(services.WSMessage{Type: services.MsgMarketNews, Data: news, Time: now})
	}
}
