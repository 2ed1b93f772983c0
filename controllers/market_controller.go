package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"marketpulse-backend/models"
	"marketpulse-backend/services"
)

// MarketController handles market data requests
type MarketController struct {
	service *services.MarketDataService
}

// NewMarketController creates a new market controller
func NewMarketController(service *services.MarketDataService) *MarketController {
	return &MarketController{service: service}
}

// respondError maps the error taxonomy onto HTTP statuses with a stable kind
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var providerErr *models.ProviderError
	var notInitErr *models.NotInitializedError
	var authErr *models.AuthenticationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": validationErr.Error()})
	case errors.As(err, &notInitErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not_initialized", "message": notInitErr.Error()})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "message": providerErr.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_error", "message": authErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
	}
}

// GetStockData returns the quote and candle series for a symbol
// GET /api/v1/stocks/:symbol/data?timeframe=1d&period=1mo
func (mc *MarketController) GetStockData(c *gin.Context) {
	symbol := c.Param("symbol")
	timeframe := c.DefaultQuery("timeframe", "1d")
	period := c.DefaultQuery("period", "1mo")

	data, err := mc.service.GetStockData(symbol, timeframe, period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// GetQuote returns the current quote for a symbol
// GET /api/v1/stocks/:symbol/quote
func (mc *MarketController) GetQuote(c *gin.Context) {
	quote, err := mc.service.GetQuote(c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GetTechnicalIndicators returns the requested indicator subset for a symbol
// GET /api/v1/stocks/:symbol/indicators?indicators=RSI,SMA&timeframe=1d
func (mc *MarketController) GetTechnicalIndicators(c *gin.Context) {
	symbol := c.Param("symbol")
	timeframe := c.DefaultQuery("timeframe", "1d")

	raw := c.DefaultQuery("indicators", "RSI,MACD,SMA,EMA")
	indicators := strings.Split(raw, ",")

	result, err := mc.service.GetTechnicalIndicators(symbol, indicators, timeframe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetCompanyProfile returns static company information for a symbol
// GET /api/v1/stocks/:symbol/profile
func (mc *MarketController) GetCompanyProfile(c *gin.Context) {
	profile, err := mc.service.GetCompanyProfile(c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// SearchStocks looks up symbols by free text
// GET /api/v1/stocks/search?q=apple&limit=10
func (mc *MarketController) SearchStocks(c *gin.Context) {
	query := c.Query("q")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		respondError(c, models.NewValidationError("limit", "must be an integer"))
		return
	}

	matches, err := mc.service.SearchStocks(query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matches, "count": len(matches)})
}

// GetMarketOverview returns the tracked index quotes that could be fetched
// GET /api/v1/market/overview
func (mc *MarketController) GetMarketOverview(c *gin.Context) {
	overview, err := mc.service.GetMarketOverview()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": overview})
}

// GetMarketMovers returns the day's gainers, losers and most active symbols
// GET /api/v1/market/movers
func (mc *MarketController) GetMarketMovers(c *gin.Context) {
	movers, err := mc.service.GetMarketMovers()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": movers})
}

// GetSectorPerformance returns per-sector daily performance
// GET /api/v1/market/sectors
func (mc *MarketController) GetSectorPerformance(c *gin.Context) {
	sectors, err := mc.service.GetSectorPerformance()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sectors})
}

// GetMarketNews returns recent general market news
// GET /api/v1/market/news?category=general&limit=10
func (mc *MarketController) GetMarketNews(c *gin.Context) {
	category := c.DefaultQuery("category", "general")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		respondError(c, models.NewValidationError("limit", "must be an integer"))
		return
	}

	news, err := mc.service.GetMarketNews(category, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": news})
}

// GetMarketStatus returns the open/closed state of an exchange
// GET /api/v1/market/status?exchange=US
func (mc *MarketController) GetMarketStatus(c *gin.Context) {
	status, err := mc.service.GetMarketStatus(c.DefaultQuery("exchange", "US"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}
