package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketpulse-backend/config"
	"marketpulse-backend/controllers"
	"marketpulse-backend/middleware"
	"marketpulse-backend/services"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config, service *services.MarketDataService, hub *services.BroadcastHub) {
	marketController := controllers.NewMarketController(service)

	// API v1 group; reads work anonymously but pick up identity when present
	limiter := middleware.NewRateLimiter(300, time.Minute)
	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(limiter))
	api.Use(middleware.OptionalJWTAuthMiddleware(cfg.JWTSecret))
	{
		stocks := api.Group("/stocks")
		{
			stocks.GET("/search", marketController.SearchStocks)
			stocks.GET("/:symbol/data", marketController.GetStockData)
			stocks.GET("/:symbol/quote", marketController.GetQuote)
			stocks.GET("/:symbol/indicators", marketController.GetTechnicalIndicators)
			stocks.GET("/:symbol/profile", marketController.GetCompanyProfile)
		}

		market := api.Group("/market")
		{
			market.GET("/overview", marketController.GetMarketOverview)
			market.GET("/movers", marketController.GetMarketMovers)
			market.GET("/sectors", marketController.GetSectorPerformance)
			market.GET("/news", marketController.GetMarketNews)
			market.GET("/status", marketController.GetMarketStatus)
		}
	}

	// Live updates; the hub authenticates the handshake itself
	router.GET("/ws", hub.HandleWebSocket)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MarketPulse backend is running",
		})
	})
}
