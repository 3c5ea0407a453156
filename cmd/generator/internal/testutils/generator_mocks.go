package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/journal"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
	Closed     bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockKafkaWriter) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Messages)
}

// MockClock only advances when told to. After hands back a shared channel;
// Advance blocks until the generator loop is waiting on it.
type MockClock struct {
	Mu          sync.Mutex
	CurrentTime time.Time
	ticks       chan time.Time
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{CurrentTime: start, ticks: make(chan time.Time)}
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Sleep(d time.Duration) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.CurrentTime = m.CurrentTime.Add(d)
}

func (m *MockClock) After(d time.Duration) <-chan time.Time {
	return m.ticks
}

func (m *MockClock) Advance(d time.Duration) {
	m.Sleep(d)
	m.ticks <- m.Now()
}

// MockRand replays Values in a loop.
type MockRand struct {
	Mu     sync.Mutex
	Values []float64
	next   int
}

func (m *MockRand) Float64() float64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Values) == 0 {
		return 0
	}
	v := m.Values[m.next%len(m.Values)]
	m.next++
	return v
}

type MockKafkaConn struct {
	CreatedTopics []string
	Partitions    int
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	parts := make([]kafka.Partition, m.Partitions)
	for i := range parts {
		parts[i] = kafka.Partition{ID: i}
	}
	return parts, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Fail    bool
	Dials   []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (journal.KafkaConn, error) {
	m.Dials = append(m.Dials, address)
	if m.Fail {
		return nil, errors.New("connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{Partitions: 1}
	}
	return m.ConnSpy, nil
}

// MockTransport records sent text and echoes it to Messages subscribers.
type MockTransport struct {
	Mu          sync.Mutex
	Sent        []string
	Attempts    int
	ConnectErr  error
	SendErr     error
	Connects    int
	Disconnects int

	status  *stream.State[models.ConnectionStatus]
	inbound *stream.Broadcaster[string]
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		status:  stream.NewState(models.Disconnected),
		inbound: stream.NewBroadcaster[string](),
	}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Connects++
	m.status.Set(models.Connecting)
	if m.ConnectErr != nil {
		m.status.Set(models.Disconnected)
		return m.ConnectErr
	}
	m.status.Set(models.Connected)
	return nil
}

func (m *MockTransport) Disconnect() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Disconnects++
	m.status.Set(models.Disconnected)
	return nil
}

func (m *MockTransport) Send(ctx context.Context, text string) error {
	m.Mu.Lock()
	m.Attempts++
	if m.SendErr != nil {
		err := m.SendErr
		m.Mu.Unlock()
		return err
	}
	m.Sent = append(m.Sent, text)
	m.Mu.Unlock()

	m.inbound.Publish(text)
	return nil
}

func (m *MockTransport) Status() *stream.State[models.ConnectionStatus] { return m.status }

func (m *MockTransport) Messages(buf int) (<-chan string, stream.CancelFunc) {
	return m.inbound.Subscribe(buf)
}

func (m *MockTransport) AttemptCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Attempts
}

func (m *MockTransport) SentCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Sent)
}

// MockGenerator lets tests push snapshots by hand.
type MockGenerator struct {
	Mu     sync.Mutex
	Starts int
	Stops  int
	Out    chan []byte
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Out: make(chan []byte, 1)}
}

func (m *MockGenerator) Start() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Starts++
}

func (m *MockGenerator) Stop() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Stops++
}

func (m *MockGenerator) Output() <-chan []byte { return m.Out }

func (m *MockGenerator) Counts() (starts, stops int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Starts, m.Stops
}
