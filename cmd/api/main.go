// Command api runs the storefront HTTP API: order submission, payment intent
// creation, and payment confirmation for the hoodie store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/gracepoint-merch/storefront-api/internal/di"
	"github.com/gracepoint-merch/storefront-api/internal/handlers"
	"github.com/gracepoint-merch/storefront-api/internal/payments"
	"github.com/gracepoint-merch/storefront-api/internal/platform/config"
	pfirestore "github.com/gracepoint-merch/storefront-api/internal/platform/firestore"
	"github.com/gracepoint-merch/storefront-api/internal/platform/idempotency"
	"github.com/gracepoint-merch/storefront-api/internal/platform/jobs"
	"github.com/gracepoint-merch/storefront-api/internal/platform/observability"
	"github.com/gracepoint-merch/storefront-api/internal/platform/secrets"
	"github.com/gracepoint-merch/storefront-api/internal/repositories"
	fsrepo "github.com/gracepoint-merch/storefront-api/internal/repositories/firestore"
	"github.com/gracepoint-merch/storefront-api/internal/repositories/memory"
	"github.com/gracepoint-merch/storefront-api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	orderRepo, closeRepo, err := buildOrderRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	if closeRepo != nil {
		defer func() {
			if err := closeRepo(); err != nil {
				logger.Warn("order repository close error", zap.Error(err))
			}
		}()
	}

	publisher, closePublisher, err := buildEventPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	if closePublisher != nil {
		defer func() {
			if err := closePublisher(); err != nil {
				logger.Warn("event publisher close error", zap.Error(err))
			}
		}()
	}

	provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.Stripe.APIKey,
		Logger: observability.EventLogger(),
	})
	if err != nil {
		logger.Fatal("failed to initialise payment provider", zap.Error(err))
	}

	container, err := di.NewContainer(cfg, di.Deps{
		Orders:   orderRepo,
		Payments: provider,
		Events:   publisher,
		Logger:   observability.EventLogger(),
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(zap.NewStdLog(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	paymentHandlers := handlers.NewPaymentHandlers(container.Services.Checkout)

	// Idempotency runs for every POST carrying the key header, so order
	// submission and payment confirmation both replay safely.
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		idempotencyMiddleware,
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithPaymentRoutes(paymentHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildOrderRepository selects Firestore when a project id is configured and
// falls back to the in-memory store otherwise.
func buildOrderRepository(ctx context.Context, cfg config.Config) (repositories.OrderRepository, func() error, error) {
	if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
		return memory.NewOrderRepository(), nil, nil
	}

	client, err := pfirestore.NewClient(ctx, pfirestore.Config{
		ProjectID:    cfg.Firestore.ProjectID,
		EmulatorHost: cfg.Firestore.EmulatorHost,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("firestore client: %w", err)
	}

	repo, err := fsrepo.NewOrderRepository(client, cfg.Firestore.OrdersCollection)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return repo, client.Close, nil
}

// buildEventPublisher wires the Pub/Sub order event publisher when enabled.
// A nil publisher is valid: the services treat events as best effort.
func buildEventPublisher(ctx context.Context, cfg config.Config) (services.OrderEventPublisher, func() error, error) {
	if !cfg.PubSub.Enabled {
		return nil, nil, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}

	topic := client.Topic(cfg.PubSub.Topic)
	publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	closer := func() error {
		topic.Stop()
		return client.Close()
	}
	return publisher, closer, nil
}
