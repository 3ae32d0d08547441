package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookery/internal/cart"
	"bookery/internal/catalog"
	"bookery/internal/checkout"
	"bookery/internal/config"
	"bookery/internal/customer"
	"bookery/internal/events"
	"bookery/internal/logging"
	"bookery/internal/postgres"
	"bookery/internal/replenish"
	"bookery/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfgDir := os.Getenv("BOOKERY_CONFIG_DIR")
	if cfgDir == "" {
		cfgDir = "configs"
	}
	cfg, err := config.Load(cfgDir, os.Getenv("BOOKERY_ENV"))
	if err != nil {
		return err
	}

	logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.App.Name, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers)
		slog.Info("kafka publisher enabled", "brokers", cfg.Kafka.Brokers)
	}

	// Stores default to memory; Postgres and Redis take over when configured.
	var (
		catalogStore catalog.Store    = catalog.NewMemoryStore()
		history      checkout.History = checkout.NewMemoryHistory()
		ledger       replenish.Ledger = replenish.NewMemoryLedger()
		cartStore    cart.Store       = cart.NewMemoryStore()
	)
	if cfg.Storage.DSN != "" {
		db, err := postgres.Open(cfg.Storage.DSN, cfg.Storage.MaxOpenConns, cfg.Storage.ConnLifetime)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		catalogStore = postgres.NewCatalogStore(db)
		history = postgres.NewOrderHistory(db)
		ledger = postgres.NewReplenishLedger(db)
		slog.Info("postgres stores enabled")
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		cartStore = cart.NewRedisStore(rdb, cfg.Redis.CartTTL)
		slog.Info("redis cart store enabled", "addr", cfg.Redis.Addr)
	}

	catalogSvc := catalog.NewService(catalogStore, publisher)
	replenishSvc := replenish.NewService(ledger, catalogSvc, cfg.Replenish.ReorderQuantity)
	catalogSvc.OnLowStock(replenishSvc.HandleLowStock)
	cartSvc := cart.NewService(cartStore, catalogSvc)
	checkoutSvc := checkout.NewService(cartSvc, catalogSvc, history, publisher)
	customerSvc := customer.NewService()

	customerHandler := customer.NewHandler(customerSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/catalog", catalog.NewHandler(catalogSvc).Routes)
	r.Route("/replenishment", replenish.NewHandler(replenishSvc).Routes)
	r.Route("/customers", customerHandler.Routes)
	r.Group(func(r chi.Router) {
		r.Use(customerHandler.Middleware)
		r.Route("/cart", cart.NewHandler(cartSvc, customer.FromRequest).Routes)
		checkout.NewHandler(checkoutSvc, customer.FromRequest).Routes(r)
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
