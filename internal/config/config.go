package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port             string
	MongoDBURI       string
	MongoDBPassword  string
	ProcessorBaseURL string
	ProcessorToken   string
	AMQPURL          string
	NotifyExchange   string
	ReviewerSecret   string
	CommissionRate   float64
	DepositPercent   float64
	Environment      string
	LogLevel         string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnvWithDefault("PORT", "8080"),
		MongoDBURI:       os.Getenv("MONGODB_URI"),
		MongoDBPassword:  os.Getenv("MONGODB_PASSWORD"),
		ProcessorBaseURL: os.Getenv("PROCESSOR_BASE_URL"),
		ProcessorToken:   os.Getenv("PROCESSOR_ACCESS_TOKEN"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		NotifyExchange:   getEnvWithDefault("NOTIFY_EXCHANGE", "courtpay.notifications"),
		ReviewerSecret:   os.Getenv("REVIEWER_JWT_SECRET"),
		CommissionRate:   getEnvFloat("COMMISSION_RATE", 0.10),
		DepositPercent:   getEnvFloat("DEPOSIT_PERCENT", 50),
		Environment:      getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.ProcessorBaseURL == "" {
		return nil, fmt.Errorf("PROCESSOR_BASE_URL is required")
	}
	if cfg.ProcessorToken == "" {
		return nil, fmt.Errorf("PROCESSOR_ACCESS_TOKEN is required")
	}
	if cfg.ReviewerSecret == "" {
		return nil, fmt.Errorf("REVIEWER_JWT_SECRET is required")
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate >= 1 {
		return nil, fmt.Errorf("COMMISSION_RATE must be in [0,1)")
	}
	if cfg.DepositPercent <= 0 || cfg.DepositPercent > 100 {
		return nil, fmt.Errorf("DEPOSIT_PERCENT must be in (0,100]")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
