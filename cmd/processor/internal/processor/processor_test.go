package processor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/cmd/processor/internal/processor"
	"github.com/shubham-shewale/price-tracker/cmd/processor/internal/testutils"
	"github.com/shubham-shewale/price-tracker/pkg/config"
	"github.com/shubham-shewale/price-tracker/pkg/models"
)

func update(symbol, price string, seq int64) models.StockUpdate {
	return models.StockUpdate{Symbol: symbol, Price: decimal.RequireFromString(price), SeqID: seq}
}

func messages(t *testing.T, updates ...models.StockUpdate) []kafka.Message {
	t.Helper()
	var msgs []kafka.Message
	for _, u := range updates {
		val, err := json.Marshal(u)
		if err != nil {
			t.Fatal(err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(u.Symbol), Value: val})
	}
	return msgs
}

func run(t *testing.T, workers int, reader processor.KafkaReader, rdb processor.RedisClient, d time.Duration) {
	t.Helper()
	proc := processor.NewProcessor(config.ProcessorConfig{NumWorkers: workers}, zap.NewNop(), rdb, reader)

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := proc.Run(ctx); err != nil {
		t.Logf("Processor stopped: %v", err)
	}
}

func TestProcessor_WorkerLogic(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: messages(t,
		update("AAPL", "100.00", 1),
		update("AAPL", "100.00", 1),
		update("AAPL", "101.00", 2),
		update("TSLA", "900.00", 1),
	)}
	mockRedis := testutils.NewMockRedisClient()

	run(t, 2, mockReader, mockRedis, 500*time.Millisecond)

	pipeline := mockRedis.PipelineSpy
	pipeline.Mu.Lock()
	defer pipeline.Mu.Unlock()

	if pipeline.ExecCount != 3 {
		t.Errorf("Expected 3 pipeline executions, got %d", pipeline.ExecCount)
	}

	hasAAPL := false
	hasTSLA := false
	for _, cmd := range pipeline.RecordedCmds {
		if cmd == "SET "+models.QuoteKey("AAPL") {
			hasAAPL = true
		}
		if cmd == "SET "+models.QuoteKey("TSLA") {
			hasTSLA = true
		}
	}

	if !hasAAPL {
		t.Error("Missing Redis command for AAPL")
	}
	if !hasTSLA {
		t.Error("Missing Redis command for TSLA")
	}
}

func TestProcessor_StaleSeqIgnored(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: messages(t,
		update("AAPL", "101.00", 2),
		update("AAPL", "100.00", 1),
	)}
	mockRedis := testutils.NewMockRedisClient()

	run(t, 1, mockReader, mockRedis, 300*time.Millisecond)

	var got models.StockUpdate
	if err := json.Unmarshal([]byte(mockRedis.PipelineSpy.Value(models.QuoteKey("AAPL"))), &got); err != nil {
		t.Fatal(err)
	}
	if got.SeqID != 2 || got.Price.StringFixed(2) != "101.00" {
		t.Errorf("Expected seq 2 at 101.00 to win, got %+v", got)
	}
}

func TestProcessor_FailedWriteIsRetriedOnRedelivery(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Messages: messages(t,
		update("MSFT", "420.15", 1),
		update("MSFT", "420.15", 1),
	)}
	mockRedis := testutils.NewMockRedisClient()
	mockRedis.PipelineSpy.FailExec = 1

	run(t, 1, mockReader, mockRedis, 300*time.Millisecond)

	if n := mockRedis.PipelineSpy.Execs(); n != 1 {
		t.Errorf("Expected the redelivered update to be written once, got %d", n)
	}
}

func TestProcessor_InvalidJSON(t *testing.T) {
	msgs := []kafka.Message{
		{Key: []byte("AAPL"), Value: []byte("{broken-json")},
		{Key: []byte(""), Value: []byte(`{"price":"1.00","seq_id":1}`)},
	}

	mockReader := &testutils.MockKafkaReader{Messages: msgs}
	mockRedis := testutils.NewMockRedisClient()

	run(t, 1, mockReader, mockRedis, 200*time.Millisecond)

	if mockRedis.PipelineSpy.Execs() > 0 {
		t.Error("Should not execute Redis commands for invalid updates")
	}
}

func TestProcessor_ClosedReaderStops(t *testing.T) {
	mockReader := &testutils.MockKafkaReader{Closed: true}
	proc := processor.NewProcessor(config.ProcessorConfig{}, zap.NewNop(), testutils.NewMockRedisClient(), mockReader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
