// Package events publishes sales saga outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"sales_saga/internal/sales"
)

var _ sales.EventPublisher = (*Producer)(nil)

// ErrClosed is returned by Publish once the producer has been closed.
var ErrClosed = errors.New("producer closed")

// Envelope wraps every event written to the topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues events and writes them from a single goroutine.
type Producer struct {
	w       messageWriter
	logger  *zap.Logger
	service string

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

// NewProducer creates a producer writing to topic. Call Start before Publish.
func NewProducer(brokers []string, topic, service string, buf int, logger *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, service, buf, logger)
}

func newProducer(w messageWriter, service string, buf int, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		w:       w,
		logger:  logger,
		service: service,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
	}
}

// Start runs the write loop until Close.
func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.logger.Warn("failed to write saga event", zap.ByteString("key", m.Key), zap.Error(err))
			}
		}
		if err := p.w.Close(); err != nil {
			p.logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()
}

// Publish enqueues the event. It blocks while the queue is full.
func (p *Producer) Publish(ctx context.Context, event sales.SagaEvent) error {
	m, err := p.message(event)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes the queued events and waits for the writer to shut down.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *Producer) message(event sales.SagaEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode saga event: %w", err)
	}
	env, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type),
		EventVersion:  1,
		OccurredAt:    event.OccurredAt,
		Producer:      p.service,
		CorrelationID: event.SaleNumber,
		Payload:       payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	return kafka.Message{
		// Key by sale number so every event of a sale lands on one partition.
		Key:   []byte(event.SaleNumber),
		Value: env,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(event.Type)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}, nil
}
