package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Options are the values the orchestrator is constructed with.
type Options struct {
	// CallTimeout bounds every collaborator call. Zero disables it.
	CallTimeout time.Duration
	AccountCode string
	AccountName string
	// CreatedBy tags journal entries with the originating service.
	CreatedBy string
	// CompensationAttempts is how many times a compensating action is tried.
	CompensationAttempts uint
	CompensationDelay    time.Duration
}

// DefaultOptions returns the values used by the sales service.
func DefaultOptions() Options {
	return Options{
		CallTimeout:          5 * time.Second,
		AccountCode:          "4000",
		AccountName:          "Sales Revenue",
		CreatedBy:            "sales-service",
		CompensationAttempts: 1,
		CompensationDelay:    100 * time.Millisecond,
	}
}

// Service records sales across the sale store, the inventory service and the ledger.
type Service struct {
	storage   Storage
	stock     StockClient
	ledger    LedgerClient
	publisher EventPublisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

// ListFilter narrows ListSales. Empty fields match everything.
type ListFilter struct {
	CustomerID string
	ProductID  string
}

// NewService creates a new Service.
func NewService(storage Storage, stock StockClient, ledger LedgerClient, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CompensationAttempts == 0 {
		opts.CompensationAttempts = 1
	}
	return &Service{
		storage:   storage,
		stock:     stock,
		ledger:    ledger,
		publisher: nopPublisher{},
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// SetPublisher routes saga outcomes to p.
func (s *Service) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// GetSale returns the sale with the given ID.
func (s *Service) GetSale(ctx context.Context, id string) (*Sale, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: sale id is required", ErrValidation)
	}
	var sale *Sale
	err := s.call(ctx, func(ctx context.Context) (err error) {
		sale, err = s.storage.Read(ctx, id)
		return err
	})
	return sale, err
}

// FindBySaleNumber returns the sale with the given sale number.
func (s *Service) FindBySaleNumber(ctx context.Context, saleNumber string) (*Sale, error) {
	if saleNumber == "" {
		return nil, fmt.Errorf("%w: sale number is required", ErrValidation)
	}
	var sale *Sale
	err := s.call(ctx, func(ctx context.Context) (err error) {
		sale, err = s.storage.ReadByNumber(ctx, saleNumber)
		return err
	})
	return sale, err
}

// GetSaleJournal returns the journal entry posted for a sale. The journal
// number is recomputed from the sale number, nothing else is stored.
func (s *Service) GetSaleJournal(ctx context.Context, id string) (JournalEntry, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err = s.call(ctx, func(ctx context.Context) (err error) {
		entry, err = s.ledger.FindJournalEntry(ctx, DeriveJournalNumber(sale.SaleNumber))
		return err
	})
	return entry, err
}

// ListSales returns the stored sales matching filter.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	var all []*Sale
	err := s.call(ctx, func(ctx context.Context) (err error) {
		all, err = s.storage.GetAll(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list sales", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	filtered := make([]*Sale, 0, len(all))
	for _, sale := range all {
		if filter.CustomerID != "" && sale.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ProductID != "" && sale.ProductID != filter.ProductID {
			continue
		}
		filtered = append(filtered, sale)
	}
	return filtered, nil
}

// call runs fn under the per-call timeout. A timeout is reported as ErrInfrastructure.
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.opts.CallTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInfrastructure) {
		err = fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	return err
}
