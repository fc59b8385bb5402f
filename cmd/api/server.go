package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/coinflow/matching-engine/config"
	"github.com/coinflow/matching-engine/internal/api/handlers"
	"github.com/coinflow/matching-engine/internal/api/routes"
	"github.com/coinflow/matching-engine/internal/engine"
	"github.com/coinflow/matching-engine/internal/events"
	"github.com/coinflow/matching-engine/internal/logging"
	"github.com/coinflow/matching-engine/internal/marketdata"
	"github.com/coinflow/matching-engine/internal/matching"
	"github.com/coinflow/matching-engine/internal/persist"
	"github.com/coinflow/matching-engine/internal/settle"
	"github.com/coinflow/matching-engine/internal/storage"
	"github.com/coinflow/matching-engine/internal/storage/file"
	"github.com/coinflow/matching-engine/internal/storage/memory"
	"github.com/coinflow/matching-engine/internal/storage/postgres"
	"github.com/coinflow/matching-engine/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting matching engine api server", zap.String("version", "1.0.0"))

	// Build storage layers based on configuration
	orderStore, tradeStore := buildStorageLayers(cfg, log)
	defer orderStore.Close()
	defer tradeStore.Close()

	// Wire the engine and its collaborators
	bus := events.NewBus()
	ids := matching.NewCounterIDs(0)
	registry := engine.NewRegistry(ids, bus, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persister := persist.NewPersister(orderStore, tradeStore, log)
	go persister.Run(ctx, bus.Subscribe(cfg.Engine.EventBufferSize))

	settleWorker := settle.NewWorker(settle.NoopSettler{}, bus, log)
	go settleWorker.Run(ctx, bus.Subscribe(cfg.Engine.EventBufferSize))

	aggregator := marketdata.New(registry, cfg.Market.StatsWindow, cfg.Market.MaxHistory)
	go aggregator.Run(ctx, bus.Subscribe(cfg.Engine.EventBufferSize))

	// Rebuild the books from persisted open orders
	if open := orderStore.GetOpenOrders(); len(open) > 0 {
		log.Info("rehydrating order books", zap.Int("open_orders", len(open)))
		if err := registry.Rehydrate(open); err != nil {
			log.Error("rehydration finished with errors", zap.Error(err))
		}
	}

	holder := handlers.NewHolder(registry, aggregator, orderStore, tradeStore, bus, log, handlers.Limits{
		DefaultOrderLimit: cfg.API.DefaultOrderLimit,
		MaxOrderLimit:     cfg.API.MaxOrderLimit,
		DefaultTradeLimit: cfg.API.DefaultTradeLimit,
		MaxTradeLimit:     cfg.API.MaxTradeLimit,
		DefaultBookDepth:  cfg.API.DefaultOrderBookDepth,
		MaxBookDepth:      cfg.API.MaxOrderBookDepth,
	})

	handler := routes.SetupRoutes(holder, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop the event consumers after the HTTP surface is closed so in-flight
	// submissions still get persisted.
	cancel()
	bus.Close()

	log.Info("server exited",
		zap.Uint64("events_dropped", bus.Dropped()))
}

// buildStorageLayers constructs the storage layers based on configuration.
// Returns composite stores that layer memory, Redis, and Postgres storage.
func buildStorageLayers(cfg *config.Config, log *zap.Logger) (storage.OrderStore, storage.TradeStore) {
	var orderStores []storage.OrderStore
	var tradeStores []storage.TradeStore

	// L1: In-memory (fastest) - if enabled
	if cfg.Memory.Enabled {
		orderStores = append(orderStores, memory.NewInMemoryOrderStore(cfg.Memory.MaxOrders))
		tradeStores = append(tradeStores, memory.NewInMemoryTradeStore(cfg.Memory.MaxTrades))

		log.Info("in-memory storage layer enabled",
			zap.Int("max_orders", cfg.Memory.MaxOrders),
			zap.Int("max_trades", cfg.Memory.MaxTrades))
	}

	// L2: Redis (distributed cache) - if enabled
	if cfg.Redis.Enabled {
		redisOrderStore, err := redis.NewRedisOrderStore(cfg.Redis)
		if err != nil {
			log.Warn("failed to connect to redis, continuing without distributed cache",
				zap.Error(err))
		} else {
			log.Info("redis cache connected",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port))
			orderStores = append(orderStores, redisOrderStore)

			if redisTradeStore, err := redis.NewRedisTradeStore(cfg.Redis); err == nil {
				tradeStores = append(tradeStores, redisTradeStore)
			}
		}
	}

	// L3: PostgreSQL (persistent storage) - if enabled
	if cfg.Database.Enabled {
		pgOrderStore, err := postgres.NewPostgresOrderStore(cfg.Database)
		if err != nil {
			log.Warn("failed to connect to postgres, continuing without persistent storage",
				zap.Error(err))
		} else {
			log.Info("postgres connected",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Name))
			orderStores = append(orderStores, pgOrderStore)

			if pgTradeStore, err := postgres.NewPostgresTradeStore(cfg.Database); err == nil {
				tradeStores = append(tradeStores, pgTradeStore)
			}
		}
	}

	// L4: File storage (audit log) - always enabled
	if fileTradeStore, err := file.NewFileTradeStore(cfg.Engine.TradeLogPath); err == nil {
		tradeStores = append(tradeStores, fileTradeStore)
		log.Info("trade file log enabled", zap.String("path", cfg.Engine.TradeLogPath))
	} else {
		log.Warn("trade file log unavailable", zap.Error(err))
	}

	var orderStore storage.OrderStore
	var tradeStore storage.TradeStore

	if len(orderStores) == 1 {
		orderStore = orderStores[0]
	} else {
		orderStore = storage.NewCompositeOrderStore(orderStores...)
	}

	if len(tradeStores) == 1 {
		tradeStore = tradeStores[0]
	} else {
		tradeStore = storage.NewCompositeTradeStore(tradeStores...)
	}

	log.Info("storage layers initialized",
		zap.Int("order_layers", len(orderStores)),
		zap.Int("trade_layers", len(tradeStores)))

	return orderStore, tradeStore
}
