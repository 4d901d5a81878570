package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_saga/api"
	"sales_saga/internal/config"
	"sales_saga/internal/events"
	"sales_saga/internal/inventory"
	"sales_saga/internal/ledger"
	"sales_saga/internal/postgres"
	"sales_saga/internal/redisx"
	"sales_saga/internal/sales"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var storage sales.Storage = sales.NewLocalStorage()
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		storage = &postgres.SaleStore{DB: db}
	} else {
		logger.Warn("SALES_POSTGRES_DSN not set, sales are kept in memory")
	}

	stock := inventory.NewClient(cfg.InventoryURL, cfg.CallTimeout)
	defer stock.Close()
	journal := ledger.NewClient(cfg.LedgerURL, cfg.CallTimeout)
	defer journal.Close()

	salesService := sales.NewService(storage, stock, journal, logger, sales.Options{
		CallTimeout:          cfg.CallTimeout,
		AccountCode:          cfg.AccountCode,
		AccountName:          cfg.AccountName,
		CreatedBy:            cfg.CreatedBy,
		CompensationAttempts: cfg.CompensationAttempts,
		CompensationDelay:    cfg.CompensationDelay,
	})

	if len(cfg.KafkaBrokers) > 0 {
		prod := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, 1024, logger)
		prod.Start()
		defer prod.Close()
		salesService.SetPublisher(prod)
	}

	var idempotency api.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		idempotency = redisx.NewIdempotencyStore(rdb)
	}

	r := gin.Default()
	api.InitRoutes(r, salesService, idempotency, logger)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
