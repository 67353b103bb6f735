package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodhub-be/internal/address"
	"foodhub-be/internal/auth"
	"foodhub-be/internal/catalog"
	"foodhub-be/internal/config"
	"foodhub-be/internal/db"
	"foodhub-be/internal/events"
	"foodhub-be/internal/handlers"
	"foodhub-be/internal/logger"
	"foodhub-be/internal/metrics"
	"foodhub-be/internal/middleware"
	"foodhub-be/internal/order"
	"foodhub-be/internal/payment"
	"foodhub-be/internal/payment/webhook"
	"foodhub-be/internal/rating"
	"foodhub-be/internal/revenue"
	"foodhub-be/internal/user"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Seams for tests.
var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
	newPublisher    = func(cfg *config.Config) (events.Publisher, error) {
		if len(cfg.KafkaBrokers) == 0 {
			return events.NoopPublisher{}, nil
		}
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, cleanup, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newServer wires repositories, services and transport. The returned
// cleanup flushes the event publisher.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func(), error) {
	log := logger.L()

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.StripeSuccessURL,
		CancelURL:     cfg.StripeCancelURL,
		Currency:      cfg.StripeCurrency,
		Timeout:       cfg.StripeTimeout,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	tx := db.NewTransactor(database)
	catalogRepo := catalog.NewRepository(database)
	menu := catalog.NewCachedRepository(catalogRepo, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	ledger := revenue.NewLedger(revenue.NewRepository(database))
	stats := &metrics.WebhookStats{}

	orderSvc := order.NewService(order.Deps{
		Repo:      order.NewRepository(database),
		Users:     user.NewRepository(database),
		Addresses: address.NewRepository(database),
		Catalog:   catalogRepo,
		Menu:      menu,
		Ledger:    ledger,
		Tx:        tx,
		Events:    publisher,
	})
	paymentSvc := payment.NewService(payment.Deps{
		Repo:    payment.NewRepository(database),
		Orders:  orderSvc,
		Gateway: gateway,
		Tx:      tx,
		Events:  publisher,
		Stats:   stats,
	})
	ratingSvc := rating.NewService(rating.NewRepository(database), menu, tx)

	router := handlers.NewRouter(handlers.RouterDeps{
		Tokens:   tokens,
		Limiter:  middleware.NewRateLimiter(ctx, cfg.InternalSecretKey),
		Health:   handlers.NewHealthHandler(stats),
		Webhook:  webhook.NewWebhookHandler(paymentSvc).PaymentWebhookHandler,
		Orders:   handlers.NewOrderHandlers(orderSvc, paymentSvc),
		Payments: handlers.NewPaymentHandlers(paymentSvc),
		Ratings:  handlers.NewRatingHandlers(ratingSvc),
		Revenue:  handlers.NewRevenueHandlers(ledger),
	})

	log.Info("server wired",
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0),
		zap.Int("catalog_cache_size", cfg.CatalogCacheSize),
	)
	return router, cleanup, nil
}
