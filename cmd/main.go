package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/aggregate"
	"github.com/fjod/go_cart/storefront/internal/cache"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/providers"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg *Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return err
	}
	log.Info("database migrations completed", zap.String("driver", string(repo.Driver())))

	var opts []aggregate.Option
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		opts = append(opts, aggregate.WithCache(cache.NewRedisCache(redisClient)))
	}

	catalog := service.NewCatalogService(repo, log, opts...)
	carts := service.NewCartService(repo, catalog, cfg.CatalogID, log, opts...)
	orders := service.NewOrdersService(repo, log, opts...)

	if cfg.SeedCatalog {
		if err := seedCatalog(ctx, catalog, cfg.CatalogID, log); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	decider := providers.RandomDecider{FailureRate: cfg.FailureRate}
	shipping := providers.NewMockShipping(decider, log)
	var payment providers.PaymentCharger = providers.NewMockPayment(decider, log)
	if cfg.FailCheckout {
		log.Warn("FAIL_CHECKOUT set: payments will stall until their deadline")
		payment = providers.StalledPayment{}
	}

	checkout := service.NewCheckoutService(
		repo,
		journal.New(repo.DB(), log),
		carts,
		orders,
		service.NewShippingHandler(shipping, shipping, cfg.ProviderTimeout),
		service.NewPaymentHandler(payment, cfg.ProviderTimeout),
		log,
	)

	var wg sync.WaitGroup
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	recoverer := service.NewRecoverer(repo, checkout, cfg.RecoveryEvery, cfg.RecoveryStale, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		recoverer.Run(bgCtx)
	}()

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, log, cfg.KafkaBrokers...)
		defer poller.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(bgCtx)
		}()
		log.Info("outbox publisher started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout),
		Product:  h.NewProductHandler(catalog, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkout, cfg.RequestTimeout),
	}, cfg.RequestTimeout, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancelBg()
			wg.Wait()
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	cancelBg()
	wg.Wait()
	log.Info("server exited")
	return nil
}

func openRepository(cfg *Config) (*repository.Repository, error) {
	if cfg.DBDriver == repository.DriverPostgres {
		return repository.NewPostgresRepository(&cfg.DB)
	}
	return repository.NewSQLiteRepository(cfg.DBPath)
}
