package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/price-tracker/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	repo, err := repository.NewRedisStore(ctx, rdb)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer repo.Close()

	wsHub := hub.NewHub(repo, logger)

	handler := gateway.NewHandler(wsHub, repo, logger, gateway.ClientOptions{
		MaxMessageSize: int64(cfg.Transport.MaxMessageSize),
		SendBuffer:     cfg.Gateway.SendBuffer,
		PongWait:       cfg.Transport.SocketTimeout,
	})
	srv := &http.Server{
		Addr:              cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		if cfg.Gateway.TLSCert != "" {
			logger.Info("Server Started", zap.String("port", cfg.App.Port), zap.Bool("tls", true))
			err = srv.ListenAndServeTLS(cfg.Gateway.TLSCert, cfg.Gateway.TLSKey)
		} else {
			// Clients only dial wss, so plain mode expects a TLS-terminating proxy.
			logger.Warn("Server Started without TLS", zap.String("port", cfg.App.Port))
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		wsHub.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Gateway stopped with error", zap.Error(err))
	}
	logger.Info("Shutdown Complete")
}
