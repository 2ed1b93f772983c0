package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"marketpulse-backend/config"
	"marketpulse-backend/middleware"
	"marketpulse-backend/routes"
	"marketpulse-backend/scheduler"
	"marketpulse-backend/services"
)

func main() {
	log.Println("==============================================")
	log.Println("  MarketPulse Backend - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Wire providers: Finnhub is primary, Yahoo covers its failures. Without
	// a credential the service runs uninitialized and says so, rather than
	// serving empty data.
	var primary services.PrimaryProvider
	if cfg.FinnhubAPIKey != "" {
		primary = services.NewFinnhubClient(cfg.FinnhubAPIKey, cfg.FinnhubBaseURL, cfg.ProviderTimeout)
	}
	yahoo := services.NewYahooClient(cfg.YahooBaseURL, cfg.ProviderTimeout)
	marketService := services.NewMarketDataService(primary, yahoo)

	// Symbol subscriptions are shared between the hub and the scheduler
	subscriptions := scheduler.NewSubscriptionSet()

	validate := func(token string) (string, error) {
		return middleware.ValidateToken(token, cfg.JWTSecret)
	}
	hub := services.NewBroadcastHub(validate, subscriptions, cfg.HeartbeatInterval)

	// Setup all API routes
	routes.SetupRoutes(router, cfg, marketService, hub)

	// Start background polling
	jobScheduler := scheduler.NewScheduler(marketService, hub, subscriptions, cfg.PollInterval, cfg.AggregateInterval)
	jobScheduler.Start()

	// Create HTTP server with timeouts suited to long-lived websocket upgrades
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(server, jobScheduler, hub)
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler, hub *services.BroadcastHub) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop background polling first so no new broadcasts are queued
	jobScheduler.Stop()

	// Close all websocket connections
	hub.Shutdown()

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
