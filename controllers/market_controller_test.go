package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"marketpulse-backend/models"
	"marketpulse-backend/services"
)

// fixedProvider serves one canned quote for every operation
type fixedProvider struct{}

func (fixedProvider) GetQuote(symbol string) (*models.Quote, error) {
	return &models.Quote{Symbol: symbol, CurrentPrice: decimal.NewFromInt(100), Timestamp: time.Now().UnixMilli()}, nil
}

func (fixedProvider) GetCandles(symbol, resolution string, from, to int64) ([]models.Candle, error) {
	return []models.Candle{}, nil
}

func (fixedProvider) Search(query string, limit int) ([]models.SymbolMatch, error) {
	return []models.SymbolMatch{}, nil
}

func (fixedProvider) GetProfile(symbol string) (*models.CompanyProfile, error) {
	return &models.CompanyProfile{Symbol: symbol, Name: "Test Corp"}, nil
}

func (fixedProvider) GetNews(category, symbol string, limit int) ([]models.NewsItem, error) {
	return []models.NewsItem{}, nil
}

func (fixedProvider) GetMarketStatus(exchange string) (*models.MarketStatus, error) {
	return &models.MarketStatus{Exchange: exchange, IsOpen: true, Session: "regular"}, nil
}

func newTestRouter(service *services.MarketDataService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	controller := NewMarketController(service)
	router.GET("/stocks/:symbol/quote", controller.GetQuote)
	router.GET("/stocks/:symbol/data", controller.GetStockData)
	router.GET("/stocks/search", controller.SearchStocks)
	router.GET("/market/status", controller.GetMarketStatus)
	return router
}

func perform(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetQuoteOK(t *testing.T) {
	router := newTestRouter(services.NewMarketDataService(fixedProvider{}, nil))

	w := perform(router, "/stocks/AAPL/quote")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AAPL")
}

func TestValidationErrorMapsTo400(t *testing.T) {
	router := newTestRouter(services.NewMarketDataService(fixedProvider{}, nil))

	w := perform(router, "/stocks/AAPL/data?timeframe=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")

	w = perform(router, "/stocks/search?q=apple&limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotInitializedMapsTo503(t *testing.T) {
	router := newTestRouter(services.NewMarketDataService(nil, nil))

	w := perform(router, "/stocks/AAPL/quote")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_initialized")
}

func TestMarketStatusDefaultsExchange(t *testing.T) {
	router := newTestRouter(services.NewMarketDataService(fixedProvider{}, nil))

	w := perform(router, "/market/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "US")
}
