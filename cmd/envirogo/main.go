// Package main запускает HTTP-сервер сервиса EnviroGo.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/envirogo/envirogo-api/internal/config"
	"github.com/envirogo/envirogo-api/internal/gateway"
	"github.com/envirogo/envirogo-api/internal/handler"
	"github.com/envirogo/envirogo-api/internal/middleware"
	"github.com/envirogo/envirogo-api/internal/repository"
	"github.com/envirogo/envirogo-api/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var gw service.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gw = gateway.NewStripe(gateway.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}, logger)
		if cfg.StripeWebhookSecret == "" {
			sugar.Warn("STRIPE_WEBHOOK_SECRET is empty, webhook signatures are not verified")
		}
	} else {
		sugar.Warn("STRIPE_SECRET_KEY is empty, using mock payment gateway")
		gw = gateway.NewMock()
	}

	svc := service.NewService(repo, gw, logger, service.Options{
		Currency:   cfg.Currency,
		TopUpLimit: decimal.NewFromInt(cfg.TopUpLimit),
	})
	defer svc.Close()

	if cfg.TokenSecret == "" {
		sugar.Warn("APP_SECRET is empty, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.TokenSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting envirogo server", "addr", cfg.RunAddress, "currency", cfg.Currency)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
