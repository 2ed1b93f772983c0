package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	JWTSecret   string

	FinnhubAPIKey  string
	FinnhubBaseURL string
	YahooBaseURL   string

	ProviderTimeout   time.Duration
	PollInterval      time.Duration
	AggregateInterval time.Duration
	HeartbeatInterval time.Duration
}

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),

		FinnhubAPIKey:  getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),

		ProviderTimeout:   getEnvSeconds("PROVIDER_TIMEOUT_SEC", 10),
		PollInterval:      getEnvSeconds("POLL_INTERVAL_SEC", 5),
		AggregateInterval: getEnvSeconds("AGGREGATE_INTERVAL_SEC", 30),
		HeartbeatInterval: getEnvSeconds("HEARTBEAT_INTERVAL_SEC", 30),
	}

	if config.FinnhubAPIKey == "" {
		log.Println("Warning: FINNHUB_API_KEY not set, market data service will run uninitialized")
	}

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvSeconds parses an integer environment variable as a duration in seconds
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		log.Printf("Invalid %s=%q, using default %ds", key, value, defaultSeconds)
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}
