package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/AyushGupta011/Velyra/internal/auth"
	"github.com/AyushGupta011/Velyra/internal/catalog"
	"github.com/AyushGupta011/Velyra/internal/checkout"
	"github.com/AyushGupta011/Velyra/internal/config"
	"github.com/AyushGupta011/Velyra/internal/db"
	"github.com/AyushGupta011/Velyra/internal/dedup"
	"github.com/AyushGupta011/Velyra/internal/events"
	"github.com/AyushGupta011/Velyra/internal/gateway"
	httpapi "github.com/AyushGupta011/Velyra/internal/http"
	"github.com/AyushGupta011/Velyra/internal/lifecycle"
	"github.com/AyushGupta011/Velyra/internal/lock"
	"github.com/AyushGupta011/Velyra/internal/logging"
	"github.com/AyushGupta011/Velyra/internal/order"
	"github.com/AyushGupta011/Velyra/internal/reconcile"
	"github.com/AyushGupta011/Velyra/internal/user"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel).With("service", "velyra-orders")
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("connect database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	orders := order.NewPostgresRepository(pool)
	users := user.NewPostgresRepository(pool)
	products := catalog.NewPostgresRepository(pool)

	// Redis
	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, reconcile locking disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			locker = lock.NewRedisLocker(rdb, "velyra:reconcile:", 30*time.Second)
		}
	}

	// RabbitMQ
	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitURL != "" {
		conn, err := amqp.DialConfig(cfg.RabbitURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
		if err != nil {
			logger.Error("connect to RabbitMQ", "err", err)
			os.Exit(1)
		}
		defer conn.Close()

		amqpPub, err := events.NewPublisher(conn, events.NewPostgresSequencer(pool), "")
		if err != nil {
			logger.Error("create event publisher", "err", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	} else {
		logger.Info("RABBITMQ_URL not set, order events are not published")
	}

	stripeGW := gateway.NewStripe(gateway.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	}, logger)

	reconciler := reconcile.New(stripeGW, orders, users, publisher, locker, logger, reconcile.Options{
		Currency: cfg.Currency,
	})
	manager := lifecycle.NewManager(orders, publisher, logger)
	checkoutSvc := checkout.NewService(products, stripeGW, checkout.Options{
		AppURL:      cfg.AppURL,
		ShippingFee: cfg.ShippingFlatFee,
		TaxRate:     cfg.TaxRate,
		Currency:    cfg.Currency,
	}, logger)

	// HTTP
	router := httpapi.NewRouter(httpapi.Deps{
		Reconciler:        reconciler,
		Lifecycle:         manager,
		Orders:            orders,
		Checkout:          checkoutSvc,
		Webhooks:          stripeGW,
		Ledger:            dedup.NewRepository(pool),
		Tokens:            auth.NewVerifier(cfg.JWTSecret),
		Logger:            logger,
		DBTimeout:         cfg.DBTimeout,
		ReconcileTimeout:  cfg.GatewayTimeout * 2,
		CORSAllowOrigins:  cfg.CORSAllowOrigins,
		ConfirmRatePerMin: cfg.ConfirmRatePerMin,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.GatewayTimeout*2 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("order service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", "err", err)
	}
}
