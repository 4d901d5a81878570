package sales

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

type mockStock struct{ mock.Mock }

func (m *mockStock) GetProduct(ctx context.Context, id string) (ProductSnapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ProductSnapshot), args.Error(1)
}

func (m *mockStock) SetStock(ctx context.Context, id string, newQuantity int) error {
	return m.Called(ctx, id, newQuantity).Error(0)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) CreateJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(JournalEntry), args.Error(1)
}

func (m *mockLedger) DeleteJournalEntry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockLedger) FindJournalEntry(ctx context.Context, number string) (JournalEntry, error) {
	args := m.Called(ctx, number)
	return args.Get(0).(JournalEntry), args.Error(1)
}

// spyStorage wraps LocalStorage, counts calls and can be told to fail.
type spyStorage struct {
	*LocalStorage
	mu        sync.Mutex
	creates   int
	deletes   []string
	createErr error
	deleteErr error
	onDelete  func(id string)
}

func newSpyStorage() *spyStorage {
	return &spyStorage{LocalStorage: NewLocalStorage()}
}

func (s *spyStorage) Create(ctx context.Context, sale *Sale) error {
	s.mu.Lock()
	s.creates++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.LocalStorage.Create(ctx, sale)
}

func (s *spyStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	err := s.deleteErr
	hook := s.onDelete
	s.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return err
	}
	return s.LocalStorage.Delete(ctx, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []SagaEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e SagaEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// recorder keeps the order compensating actions ran in.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
