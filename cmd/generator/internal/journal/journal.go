// Package journal records every generated snapshot to Kafka as one
// StockUpdate per symbol.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
)

type Journal struct {
	logger *zap.Logger
	writer KafkaWriter
	clock  Clock

	mu          sync.Mutex
	seqCounters map[string]int64
}

func New(logger *zap.Logger, writer KafkaWriter, clock Clock) *Journal {
	return &Journal{
		logger:      logger.Named("journal"),
		writer:      writer,
		clock:       clock,
		seqCounters: make(map[string]int64),
	}
}

// Record splits an encoded snapshot into per-symbol updates keyed by symbol
// id, so each symbol keeps its order within one partition.
func (j *Journal) Record(ctx context.Context, snapshot []byte) error {
	symbols, err := models.DecodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	ts := j.clock.Now().UnixMicro()
	msgs := make([]kafka.Message, 0, len(symbols))

	j.mu.Lock()
	for _, s := range symbols {
		// Seeded from the tick time so a restarted publisher continues above
		// the sequence ids it wrote before.
		seq := j.seqCounters[s.ID] + 1
		if seq < ts {
			seq = ts
		}
		j.seqCounters[s.ID] = seq
		payload, err := json.Marshal(models.StockUpdate{
			Symbol:    s.ID,
			Price:     s.Price,
			Timestamp: ts,
			SeqID:     seq,
		})
		if err != nil {
			j.mu.Unlock()
			return fmt.Errorf("marshal update %s: %w", s.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(s.ID), Value: payload})
	}
	j.mu.Unlock()

	if err := j.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("journal write: %w", err)
	}
	j.logger.Debug("Recorded snapshot", zap.Int("symbols", len(msgs)))
	return nil
}

// Close flushes buffered messages.
func (j *Journal) Close() error {
	return j.writer.Close()
}
