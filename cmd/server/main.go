package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httpadapter "leadmarket/internal/adapters/http"
	pg "leadmarket/internal/adapters/postgres"
	rediscache "leadmarket/internal/adapters/redis"

	"leadmarket/internal/adapters/gateway"
	"leadmarket/internal/adapters/notify"
	"leadmarket/internal/config"
	"leadmarket/internal/logging"
	"leadmarket/internal/ports"
	healthsvc "leadmarket/internal/services/brokerhealth"
	leadsvc "leadmarket/internal/services/leads"
	refundsvc "leadmarket/internal/services/refunds"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect error", zap.Error(err))
	}
	defer db.Close()

	var pay ports.PaymentGateway
	if cfg.PaymentGatewayURL != "" {
		pay = gateway.NewClient(cfg.PaymentGatewayURL)
	} else {
		logger.Warn("PAYMENT_GATEWAY_URL not set, using static in-process gateway")
		pay = gateway.NewStatic()
	}

	notifier := notify.NewLogNotifier(logger)
	audit := notify.NewLogAudit(logger)

	leads := leadsvc.New(pg.NewJobRepo(db), pg.NewLeadRepo(db), audit, logger)
	refunds := refundsvc.New(pg.NewRefundRepo(db), pg.NewPaymentRepo(db), pay, notifier, audit, logger)
	health := healthsvc.New(pg.NewStatsRepo(db), logger)

	if cfg.RedisURL != "" {
		cache, err := rediscache.NewHealthCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connect error", zap.Error(err))
		}
		defer func() { _ = cache.Close() }()
		health = health.WithCache(cache, cfg.HealthCacheTTL)
	}

	srv := httpadapter.New(leads, refunds, health, logger)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		logger.Fatal("server error", zap.Error(fmt.Errorf("serve: %w", err)))
	}
}
