package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"

	"github.com/rl1809/lootsheet/internal/adapter/bus"
	"github.com/rl1809/lootsheet/internal/adapter/handler"
	"github.com/rl1809/lootsheet/internal/adapter/notify"
	"github.com/rl1809/lootsheet/internal/adapter/storage"
	"github.com/rl1809/lootsheet/internal/config"
	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/mediation"
	"github.com/rl1809/lootsheet/internal/core/service"
	"github.com/rl1809/lootsheet/internal/port"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		panic(err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	economy, err := config.LoadEconomy(cfg.EconomyFile)
	if err != nil {
		logger.Fatal("failed to load economy", zap.Error(err))
	}
	settings, err := economy.Settings()
	if err != nil {
		logger.Fatal("invalid economy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := storage.OpenSQLStore(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))

	if cfg.SeedFile != "" {
		if err := seed(ctx, store, cfg.SeedFile, logger); err != nil {
			logger.Fatal("failed to seed store", zap.Error(err))
		}
	}

	// Initialize notifications
	chatLog := notify.NewChatLog(cfg.ChatLogDir)
	hub := notify.NewHub(logger)
	notifier := notify.NewNotifier(hub, chatLog, logger)

	lootService := service.NewLootService(store, notifier, logger)

	// Initialize mediation transport
	authority := domain.Authority{UserID: cfg.AuthorityID, SceneID: cfg.SceneID}
	var (
		presence  port.Presence
		transport port.Transport
		guard     port.IdempotencyGuard
		queue     chan domain.Request
		localBus  *bus.LocalBus
		rdb       *redis.Client
		redisBus  *storage.RedisAdapter
	)
	subCtx, stopSubscriber := context.WithCancel(ctx)
	var subWG sync.WaitGroup

	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

		redisBus = storage.NewRedisAdapter(rdb, logger)
		presence, transport, guard = redisBus, redisBus, redisBus
		queue = make(chan domain.Request, cfg.QueueSize)

		subWG.Add(1)
		go func() {
			defer subWG.Done()
			if err := redisBus.Subscribe(subCtx, queue); err != nil {
				logger.Error("request subscription ended", zap.Error(err))
			}
		}()
		subWG.Add(1)
		go func() {
			defer subWG.Done()
			heartbeatLoop(subCtx, redisBus, authority, cfg.HeartbeatEvery, cfg.PresenceTTL, logger)
		}()
	} else {
		localBus = bus.NewLocalBus(cfg.QueueSize)
		presence = bus.StaticPresence{Authorities: []domain.Authority{authority}}
		transport = localBus
		guard = bus.NewMemoryGuard(idempotencyTTL)
		logger.Info("mediating requests in process")
	}

	requester := mediation.NewRequester(presence, transport, logger)
	dispatcher := mediation.NewDispatcher(cfg.AuthorityID, lootService, guard, notifier, settings, logger)

	// Start dispatcher
	var workerWG sync.WaitGroup
	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		if localBus != nil {
			dispatcher.Run(ctx, localBus.Queue())
			return
		}
		dispatcher.Run(ctx, queue)
	}()
	logger.Info("dispatcher started", zap.String("authority", cfg.AuthorityID))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterMediatorServer(grpcServer, handler.NewGRPCHandler(requester, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	containers := mediation.NewContainers(lootService, dispatcher)
	httpHandler := handler.NewHTTPHandler(requester, containers, cfg.AuthorityID, cfg.AuthorityToken, settings, logger)
	if cfg.AuthorityToken == "" {
		logger.Warn("no authority token set, container actions are disabled")
	}
	mux := http.NewServeMux()
	httpHandler.Routes(mux)
	mux.Handle("GET /ws", hub)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Stop intake, then let the dispatcher drain what is queued
	stopSubscriber()
	subWG.Wait()
	if localBus != nil {
		localBus.Close()
	} else {
		close(queue)
	}
	workerWG.Wait()
	logger.Info("dispatcher stopped")

	if redisBus != nil {
		if err := redisBus.Withdraw(shutdownCtx, cfg.AuthorityID); err != nil {
			logger.Warn("failed to withdraw presence", zap.Error(err))
		}
		rdb.Close()
	}
	chatLog.Close()
	store.Close()
	logger.Info("connections closed")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// seed stores every party from path that the store does not have yet.
func seed(ctx context.Context, store *storage.SQLStore, path string, logger *zap.Logger) error {
	parties, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, p := range parties {
		existing, err := store.GetParty(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := store.SaveParty(ctx, p); err != nil {
			return err
		}
		logger.Info("seeded party", zap.String("party", p.ID), zap.Int("items", len(p.Inventory)))
	}
	return nil
}

func heartbeatLoop(ctx context.Context, r *storage.RedisAdapter, a domain.Authority, every, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		a.SeenAt = time.Now().UTC()
		if err := r.Heartbeat(ctx, a, ttl); err != nil && ctx.Err() == nil {
			logger.Warn("presence heartbeat failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
