package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Step is a state of the sale saga.
type Step string

const (
	StepValidating         Step = "Validating"
	StepPersisting         Step = "Persisting"
	StepUpdatingStock      Step = "UpdatingStock"
	StepRegisteringJournal Step = "RegisteringJournal"
	StepCompleted          Step = "Completed"
	StepCompensating       Step = "Compensating"
)

type undoAction struct {
	step Step
	undo func(ctx context.Context) error
}

// compensationLedger belongs to a single ExecuteSale attempt and is dropped with it.
// undo only ever holds steps that already committed, in completion order.
type compensationLedger struct {
	productValidated bool
	snapshotStock    int

	saleCreated bool
	saleID      string
	saleNumber  string

	stockUpdated    bool
	productID       string
	originalStock   int
	quantityReduced int

	journalEntryCreated bool
	journalID           string
	journalNumber       string

	trace []Step
	undo  []undoAction
}

func (l *compensationLedger) enter(step Step) {
	l.trace = append(l.trace, step)
}

func (l *compensationLedger) fields() []zap.Field {
	return []zap.Field{
		zap.Bool("product_validated", l.productValidated),
		zap.Int("snapshot_stock", l.snapshotStock),
		zap.Bool("sale_created", l.saleCreated),
		zap.String("created_sale_id", l.saleID),
		zap.Bool("stock_updated", l.stockUpdated),
		zap.Int("original_stock", l.originalStock),
		zap.Int("quantity_reduced", l.quantityReduced),
		zap.Bool("journal_entry_created", l.journalEntryCreated),
		zap.String("journal_id", l.journalID),
		zap.String("journal_number", l.journalNumber),
	}
}

func (l *compensationLedger) committed(step Step, undo func(ctx context.Context) error) {
	l.undo = append(l.undo, undoAction{step: step, undo: undo})
}

// ExecuteSale validates stock, persists the sale, decrements stock and posts the
// journal entry. When a step after persistence fails, every step that already
// committed is undone in reverse order and the cause is returned wrapped in
// ErrTransactionFailed. Validation failures are returned as they are.
//
// Stock is read twice without a lock, so concurrent sales of the same product
// can both pass validation and oversell it.
func (s *Service) ExecuteSale(ctx context.Context, req *SaleRequest) (*Sale, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: sale request is required", ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	ledger := &compensationLedger{}
	logger := s.logger.With(zap.String("product_id", req.ProductID), zap.Int("quantity", req.Quantity))

	ledger.enter(StepValidating)
	product, err := s.getProduct(ctx, req.ProductID)
	if err != nil {
		logger.Warn("sale rejected", zap.String("step", string(StepValidating)), zap.Error(err))
		return nil, err
	}
	if product.StockQuantity < req.Quantity {
		err = fmt.Errorf("%w: product %s has %d in stock, %d requested", ErrInsufficientStock, req.ProductID, product.StockQuantity, req.Quantity)
		logger.Warn("sale rejected", zap.String("step", string(StepValidating)), zap.Error(err))
		return nil, err
	}
	ledger.productValidated = true
	ledger.snapshotStock = product.StockQuantity

	ledger.enter(StepPersisting)
	sale := s.buildSale(applyDefaults(*req, product, s.now()))
	logger = logger.With(zap.String("sale_number", sale.SaleNumber))
	logger.Debug("persisting sale")
	if err := s.call(ctx, func(ctx context.Context) error { return s.storage.Create(ctx, sale) }); err != nil {
		return nil, s.rollback(ctx, logger, ledger, sale, StepPersisting, err)
	}
	ledger.saleCreated = true
	ledger.saleID = sale.ID
	ledger.saleNumber = sale.SaleNumber
	ledger.committed(StepPersisting, func(ctx context.Context) error {
		return s.storage.Delete(ctx, ledger.saleID)
	})
	logger = logger.With(zap.String("sale_id", sale.ID))

	ledger.enter(StepUpdatingStock)
	logger.Debug("updating stock")
	current, err := s.getProduct(ctx, sale.ProductID)
	if err != nil {
		return nil, s.rollback(ctx, logger, ledger, sale, StepUpdatingStock, err)
	}
	originalStock := current.StockQuantity
	if err := s.call(ctx, func(ctx context.Context) error {
		return s.stock.SetStock(ctx, sale.ProductID, originalStock-sale.Quantity)
	}); err != nil {
		return nil, s.rollback(ctx, logger, ledger, sale, StepUpdatingStock, err)
	}
	ledger.stockUpdated = true
	ledger.productID = sale.ProductID
	ledger.originalStock = originalStock
	ledger.quantityReduced = sale.Quantity
	ledger.committed(StepUpdatingStock, func(ctx context.Context) error {
		return s.stock.SetStock(ctx, ledger.productID, ledger.originalStock)
	})

	ledger.enter(StepRegisteringJournal)
	logger.Debug("registering journal entry")
	var journal JournalEntry
	if err := s.call(ctx, func(ctx context.Context) (err error) {
		journal, err = s.ledger.CreateJournalEntry(ctx, s.buildJournalEntry(sale))
		return err
	}); err != nil {
		return nil, s.rollback(ctx, logger, ledger, sale, StepRegisteringJournal, err)
	}
	ledger.journalEntryCreated = true
	ledger.journalID = journal.ID
	ledger.journalNumber = journal.JournalEntryNumber
	// Nothing runs after the journal yet; this undo covers steps appended later.
	ledger.committed(StepRegisteringJournal, func(ctx context.Context) error {
		return s.ledger.DeleteJournalEntry(ctx, ledger.journalID)
	})

	ledger.enter(StepCompleted)
	logger.Info("sale completed",
		zap.String("journal_id", journal.ID),
		zap.String("journal_number", journal.JournalEntryNumber),
		zap.String("final_amount", sale.FinalAmount.String()),
	)
	s.publish(ctx, logger, SagaEvent{
		Type:          EventSaleCompleted,
		SaleID:        sale.ID,
		SaleNumber:    sale.SaleNumber,
		ProductID:     sale.ProductID,
		Quantity:      sale.Quantity,
		FinalAmount:   sale.FinalAmount,
		JournalNumber: journal.JournalEntryNumber,
		Trace:         ledger.trace,
	})
	return sale, nil
}

func (s *Service) getProduct(ctx context.Context, id string) (ProductSnapshot, error) {
	var product ProductSnapshot
	err := s.call(ctx, func(ctx context.Context) (err error) {
		product, err = s.stock.GetProduct(ctx, id)
		return err
	})
	return product, err
}

// rollback undoes the committed steps and returns the error handed to the caller.
// The failed step itself is never compensated.
func (s *Service) rollback(ctx context.Context, logger *zap.Logger, ledger *compensationLedger, sale *Sale, failed Step, cause error) error {
	logger.Error("sale transaction failed",
		append(ledger.fields(), zap.String("step", string(failed)), zap.Error(cause))...,
	)

	ledger.enter(StepCompensating)
	warnings := s.compensate(ctx, logger, ledger)
	if warnings != nil {
		logger.Warn("compensation incomplete",
			zap.Int("warnings", len(warnings.Errors)),
			zap.Error(warnings),
			zap.Any("trace", ledger.trace),
		)
	}

	event := SagaEvent{
		Type:        EventSaleRolledBack,
		SaleNumber:  sale.SaleNumber,
		ProductID:   sale.ProductID,
		Quantity:    sale.Quantity,
		FinalAmount: sale.FinalAmount,
		FailedStep:  failed,
		Cause:       cause.Error(),
		Trace:       ledger.trace,
	}
	if ledger.saleCreated {
		event.SaleID = ledger.saleID
	}
	if warnings != nil {
		event.CompensationWarnings = len(warnings.Errors)
	}
	s.publish(ctx, logger, event)

	return fmt.Errorf("%w: %s: %w", ErrTransactionFailed, failed, cause)
}

// compensate runs every recorded undo action newest first. A failing action is
// logged and the remaining ones still run.
func (s *Service) compensate(ctx context.Context, logger *zap.Logger, ledger *compensationLedger) *multierror.Error {
	ctx = context.WithoutCancel(ctx)

	var warnings *multierror.Error
	for i := len(ledger.undo) - 1; i >= 0; i-- {
		action := ledger.undo[i]
		err := retry.Do(
			func() error {
				return s.call(ctx, action.undo)
			},
			retry.Context(ctx),
			retry.Attempts(s.opts.CompensationAttempts),
			retry.Delay(s.opts.CompensationDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.Debug("retrying compensation", zap.String("step", string(action.step)), zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
		if err != nil {
			logger.Warn("compensation failed", zap.String("step", string(action.step)), zap.Error(err))
			warnings = multierror.Append(warnings, fmt.Errorf("compensate %s: %w", action.step, err))
			continue
		}
		logger.Info("compensated", zap.String("step", string(action.step)))
	}
	return warnings
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, event SagaEvent) {
	event.OccurredAt = s.now().UTC()
	err := s.call(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed to publish saga event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *Service) buildSale(req SaleRequest) *Sale {
	amounts := CalculatePricing(*req.UnitPrice, req.Quantity, req.DiscountPercentage)
	return &Sale{
		SaleNumber:         req.SaleNumber,
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		UnitPrice:          *req.UnitPrice,
		TotalAmount:        amounts.Total,
		DiscountPercentage: *req.DiscountPercentage,
		DiscountAmount:     amounts.Discount,
		FinalAmount:        amounts.Final,
		SaleDate:           *req.SaleDate,
		CustomerID:         req.CustomerID,
		CustomerName:       req.CustomerName,
		Salesperson:        req.Salesperson,
		PaymentMethod:      req.PaymentMethod,
		PaymentStatus:      req.PaymentStatus,
		Notes:              req.Notes,
	}
}

func (s *Service) buildJournalEntry(sale *Sale) JournalEntry {
	return JournalEntry{
		JournalEntryNumber: DeriveJournalNumber(sale.SaleNumber),
		TransactionDate:    sale.SaleDate,
		PostingDate:        truncateToDay(s.now()),
		AccountCode:        s.opts.AccountCode,
		AccountName:        s.opts.AccountName,
		DebitAmount:        decimal.Zero,
		CreditAmount:       sale.FinalAmount,
		Description:        fmt.Sprintf("Sale %s: product %s x%d", sale.SaleNumber, sale.ProductID, sale.Quantity),
		Status:             JournalStatusDraft,
		CreatedBy:          s.opts.CreatedBy,
	}
}
