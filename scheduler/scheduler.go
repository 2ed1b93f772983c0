// Package scheduler drives the periodic refresh work for the market data
// subsystem:
//   - per-symbol quote refreshes for the currently subscribed set
//   - process-wide market aggregates (status, movers, sectors, news)
//
// Both loops run on gocron and hand results to the broadcast hub.
// The jobs are implemented in jobs.go.
package scheduler
