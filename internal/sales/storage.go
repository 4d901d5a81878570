package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// ErrDuplicateSaleNumber is returned when a sale number is already taken.
var ErrDuplicateSaleNumber = errors.New("duplicate sale number")

// Storage is the sale persistence collaborator. Each call is atomic on its own.
type Storage interface {
	// Create persists the sale and fills in its ID and timestamps.
	Create(ctx context.Context, sale *Sale) error
	Read(ctx context.Context, id string) (*Sale, error)
	ReadByNumber(ctx context.Context, saleNumber string) (*Sale, error)
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*Sale, error)
}

// LocalStorage provides an in-memory implementation for storing sales.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string]Sale
}

// NewLocalStorage instantiates a new LocalStorage for sales with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]Sale{},
	}
}

func (l *LocalStorage) Create(_ context.Context, sale *Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.m {
		if existing.SaleNumber == sale.SaleNumber {
			return ErrDuplicateSaleNumber
		}
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	now := time.Now()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	l.m[sale.ID] = *sale
	return nil
}

// Read retrieves a sale from the local storage by ID.
// Returns ErrNotFound if the sale is not found.
func (l *LocalStorage) Read(_ context.Context, id string) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (l *LocalStorage) ReadByNumber(_ context.Context, saleNumber string) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.m {
		if s.SaleNumber == saleNumber {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes a sale. Returns ErrNotFound if there is nothing to remove.
func (l *LocalStorage) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.m[id]; !ok {
		return ErrNotFound
	}
	delete(l.m, id)
	return nil
}

// GetAll retrieves all sales ordered by creation time.
func (l *LocalStorage) GetAll(_ context.Context) ([]*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sales := make([]*Sale, 0, len(l.m))
	for _, s := range l.m {
		s := s
		sales = append(sales, &s)
	}
	sort.Slice(sales, func(i, j int) bool {
		return sales[i].CreatedAt.Before(sales[j].CreatedAt)
	})
	return sales, nil
}
