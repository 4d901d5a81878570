package sales

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed input or a business rule violation. It never triggers compensation.
var ErrValidation = errors.New("validation error")

// ErrInsufficientStock is returned when the product holds less stock than requested.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrValidation)

// ErrProductNotFound is returned when the inventory service does not know the product.
var ErrProductNotFound = fmt.Errorf("%w: product not found", ErrValidation)

// ErrInfrastructure marks a transport failure talking to a collaborator, timeouts included.
var ErrInfrastructure = errors.New("infrastructure error")

// ErrTransactionFailed wraps the cause of a failure that happened after the sale was persisted.
var ErrTransactionFailed = errors.New("transaction failed and was rolled back")

// IsValidation reports whether err was caused by the request itself. Failures
// after the sale was persisted are never validation errors, whatever their cause.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) && !errors.Is(err, ErrTransactionFailed)
}

// ErrJournalNotFound is returned when the ledger holds no matching journal entry.
var ErrJournalNotFound = errors.New("journal entry not found")
