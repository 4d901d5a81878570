package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"sales_saga/internal/sales"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
	block  chan struct{}
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) written() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...)
}

func completedEvent() sales.SagaEvent {
	return sales.SagaEvent{
		Type:          sales.EventSaleCompleted,
		SaleID:        "b1",
		SaleNumber:    "SALE-20250903-B30BAD",
		ProductID:     "p-1",
		Quantity:      3,
		FinalAmount:   decimal.RequireFromString("53.973"),
		JournalNumber: "JE20250903B30BAD",
		Trace:         []sales.Step{sales.StepValidating, sales.StepCompleted},
		OccurredAt:    time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestProducer_PublishWritesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "sales-service", 4, zaptest.NewLogger(t))
	p.Start()

	require.NoError(t, p.Publish(context.Background(), completedEvent()))
	p.Close()

	msgs := w.written()
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "SALE-20250903-B30BAD", string(m.Key))
	assert.Contains(t, m.Headers, kafka.Header{Key: "x-event-type", Value: []byte("SaleCompleted")})

	var env Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "SaleCompleted", env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "sales-service", env.Producer)
	assert.Equal(t, "SALE-20250903-B30BAD", env.CorrelationID)

	var payload sales.SagaEvent
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "JE20250903B30BAD", payload.JournalNumber)
	assert.True(t, payload.FinalAmount.Equal(decimal.RequireFromString("53.973")))
	assert.True(t, w.closed)
}

func TestProducer_PublishAfterClose(t *testing.T) {
	p := newProducer(&fakeWriter{}, "sales-service", 1, zaptest.NewLogger(t))
	p.Start()
	p.Close()

	err := p.Publish(context.Background(), completedEvent())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestProducer_WriteFailureIsNotFatal(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newProducer(w, "sales-service", 2, zaptest.NewLogger(t))
	p.Start()

	require.NoError(t, p.Publish(context.Background(), completedEvent()))
	require.NoError(t, p.Publish(context.Background(), completedEvent()))
	p.Close()
	assert.Empty(t, w.written())
}

func TestProducer_PublishRespectsContext(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	p := newProducer(w, "sales-service", 0, zaptest.NewLogger(t))
	p.Start()

	// the loop takes the first message and blocks in the writer
	require.NoError(t, p.Publish(context.Background(), completedEvent()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, completedEvent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(w.block)
	p.Close()
	assert.Len(t, w.written(), 1)
}
