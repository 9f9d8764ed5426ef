// Package config содержит логику чтения конфигурации сервиса EnviroGo.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultCurrency   = "sgd"
	defaultTopUpLimit = 1000
)

// ErrDatabaseURIRequired возвращается, если адрес базы данных не задан ни флагом, ни окружением.
var ErrDatabaseURIRequired = errors.New("database URI is required")

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress          string `env:"RUN_ADDRESS"`
	DatabaseURI         string `env:"DATABASE_URI"`
	TokenSecret         string `env:"APP_SECRET"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `env:"CURRENCY"`
	// TopUpLimit задаётся в основных единицах валюты.
	TopUpLimit int64 `env:"TOPUP_LIMIT"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// Отсутствие .env не ошибка.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.TokenSecret, "s", "", "secret for session tokens")
	flag.StringVar(&cfg.StripeSecretKey, "k", "", "stripe secret key")
	flag.StringVar(&cfg.StripeWebhookSecret, "w", "", "stripe webhook signing secret")
	flag.StringVar(&cfg.Currency, "c", defaultCurrency, "payment currency")
	flag.Int64Var(&cfg.TopUpLimit, "l", defaultTopUpLimit, "maximum wallet top-up amount")

	flag.Parse()

	overrideString(&cfg.RunAddress, fromEnv.RunAddress)
	overrideString(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	overrideString(&cfg.TokenSecret, fromEnv.TokenSecret)
	overrideString(&cfg.StripeSecretKey, fromEnv.StripeSecretKey)
	overrideString(&cfg.StripeWebhookSecret, fromEnv.StripeWebhookSecret)
	overrideString(&cfg.Currency, fromEnv.Currency)
	if fromEnv.TopUpLimit != 0 {
		cfg.TopUpLimit = fromEnv.TopUpLimit
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}

	if cfg.DatabaseURI == "" {
		return nil, ErrDatabaseURIRequired
	}
	if cfg.TopUpLimit <= 0 {
		return nil, fmt.Errorf("top-up limit must be positive, got %d", cfg.TopUpLimit)
	}

	return cfg, nil
}

func overrideString(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}
