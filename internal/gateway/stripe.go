package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeConfig содержит параметры подключения к Stripe.
type StripeConfig struct {
	SecretKey string
	// WebhookSecret включает проверку заголовка Stripe-Signature, если не пуст.
	WebhookSecret string
	// BackendURL переопределяет адрес API (используется в тестах).
	BackendURL string
	HTTPClient *http.Client
}

// Stripe реализует шлюз поверх Stripe PaymentIntents.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

// NewStripe создаёт клиент Stripe. Автоматические повторы запросов отключены.
func NewStripe(cfg StripeConfig, logger *zap.Logger) *Stripe {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if logger != nil {
		backendCfg.LeveledLogger = logger.Sugar()
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &Stripe{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

// CreateIntent создаёт PaymentIntent на сумму в минимальных единицах валюты.
func (s *Stripe) CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, wrapStripeError(err)
	}

	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseEvent проверяет подпись (если задан секрет) и разбирает уведомление.
func (s *Stripe) ParseEvent(payload []byte, signatureHeader string) (Event, error) {
	if s.webhookSecret != "" {
		if err := webhook.ValidatePayload(payload, signatureHeader, s.webhookSecret); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	return decodeEvent(payload)
}

func wrapStripeError(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return &Error{
			Message:    serr.Msg,
			StatusCode: serr.HTTPStatusCode,
			Code:       string(serr.Code),
			Err:        err,
		}
	}
	return &Error{Message: err.Error(), Err: err}
}
