package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/broadcast"
	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/generator"
	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/journal"
	"github.com/shubham-shewale/price-tracker/pkg/catalog"
	"github.com/shubham-shewale/price-tracker/pkg/config"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/transport"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// 2. Initialize Zap Logger
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 3. Seed catalog
	cat := catalog.Default()
	if cfg.Feed.CatalogPath != "" {
		if cat, err = catalog.LoadFile(cfg.Feed.CatalogPath); err != nil {
			logger.Fatal("Failed to load catalog", zap.String("path", cfg.Feed.CatalogPath), zap.Error(err))
		}
	}

	// 4. Optional tick journal
	var recorder broadcast.Recorder
	var j *journal.Journal
	if cfg.Kafka.Enabled {
		creator := journal.NewTopicCreator(logger, &journal.RealKafkaDialer{Dialer: kafka.DefaultDialer}, journal.RealClock{})
		creator.Create(context.Background(), cfg.Kafka.Brokers, cfg.Kafka.Topic)

		j = journal.New(logger, journal.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), journal.RealClock{})
		recorder = j
	}

	// 5. Wire the pipeline
	session := transport.NewSession(transport.OptionsFromConfig(cfg.Feed.RawURL(), cfg.Transport), logger)
	gen := generator.NewPriceGenerator(logger, cat, generator.NewRealRand(time.Now().UnixNano()), generator.RealClock{}, cfg.Feed.Interval)
	svc := broadcast.NewService(logger, session, gen, recorder)

	if err := svc.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start broadcast", zap.Error(err))
	}

	// 6. Wait for Shutdown Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	status, cancel := session.Status().Subscribe(4)
	defer cancel()

	// Reconnect one interval after the session drops, until it comes back.
	var retry <-chan time.Time
wait:
	for {
		select {
		case st := <-status:
			logger.Info("Connection status", zap.Stringer("status", st))
			if st == models.Disconnected && retry == nil {
				retry = time.After(cfg.Feed.Interval)
			}
		case <-retry:
			retry = nil
			if err := svc.Start(context.Background()); err != nil {
				logger.Warn("Reconnect failed", zap.Error(err))
				retry = time.After(cfg.Feed.Interval)
			}
		case <-sigChan:
			logger.Info("Shutdown signal received")
			break wait
		}
	}

	svc.Stop()

	// 7. Flush Kafka Buffer
	if j != nil {
		if err := j.Close(); err != nil {
			logger.Error("Error closing Kafka writer", zap.Error(err))
		} else {
			logger.Info("Kafka writer closed cleanly")
		}
	}
}
