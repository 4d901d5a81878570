package sales

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	saleNumberPrefix    = "SALE-"
	journalNumberPrefix = "JE"
	numberDateLayout    = "20060102"
	tokenLength         = 6

	// MaxJournalNumberLength is the longest journal number the ledger accepts.
	MaxJournalNumberLength = 16
)

var errMalformedSaleNumber = errors.New("malformed sale number")

// SaleNumber holds the fields both the sale number and the journal number are formatted from.
type SaleNumber struct {
	Date  time.Time
	Token string
}

// NewSaleNumber draws a random token for the given day.
func NewSaleNumber(now time.Time) SaleNumber {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return SaleNumber{
		Date:  truncateToDay(now),
		Token: strings.ToUpper(raw[:tokenLength]),
	}
}

// GenerateSaleNumber returns a fresh sale number such as SALE-20250903-B30BAD.
func GenerateSaleNumber() string {
	return NewSaleNumber(time.Now()).String()
}

func (n SaleNumber) String() string {
	return saleNumberPrefix + n.Date.Format(numberDateLayout) + "-" + n.Token
}

// JournalNumber formats the correlated journal number, e.g. JE20250903B30BAD.
func (n SaleNumber) JournalNumber() string {
	return journalNumberPrefix + n.Date.Format(numberDateLayout) + n.Token
}

// ParseSaleNumber splits a SALE-<yyyymmdd>-<token> number back into its fields.
func ParseSaleNumber(s string) (SaleNumber, error) {
	rest, ok := strings.CutPrefix(s, saleNumberPrefix)
	if !ok {
		return SaleNumber{}, errMalformedSaleNumber
	}
	datePart, token, ok := strings.Cut(rest, "-")
	if !ok || len(token) != tokenLength || !isAlphanumeric(token) {
		return SaleNumber{}, errMalformedSaleNumber
	}
	date, err := time.Parse(numberDateLayout, datePart)
	if err != nil {
		return SaleNumber{}, errMalformedSaleNumber
	}
	return SaleNumber{Date: date, Token: strings.ToUpper(token)}, nil
}

// DeriveJournalNumber recomputes the journal number of a sale from its number alone.
// Numbers not produced by GenerateSaleNumber fall back to JE followed by their
// alphanumeric characters, cut to MaxJournalNumberLength.
func DeriveJournalNumber(saleNumber string) string {
	if n, err := ParseSaleNumber(saleNumber); err == nil {
		return n.JournalNumber()
	}
	var b strings.Builder
	b.WriteString(journalNumberPrefix)
	for _, r := range strings.TrimPrefix(saleNumber, saleNumberPrefix) {
		if b.Len() == MaxJournalNumberLength {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
