package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	BaseURL     string
	Eway        EwayConfig
	SMTP        SMTPConfig
	Logging     LoggingConfig
}

type EwayConfig struct {
	BaseURL  string
	APIKey   string
	Password string
}

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	// Local development reads .env; in deployment the file is absent and
	// the error is irrelevant.
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getenv("APP_ENV", "dev"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		BaseURL:     getenv("BASE_URL", ""),
		Eway: EwayConfig{
			BaseURL:  getenv("EWAY_BASE_URL", ""),
			APIKey:   os.Getenv("EWAY_API_KEY"),
			Password: os.Getenv("EWAY_PASSWORD"),
		},
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: getenv("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getenv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Eway.APIKey == "" || cfg.Eway.Password == "" {
		return nil, fmt.Errorf("EWAY_API_KEY and EWAY_PASSWORD are required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
