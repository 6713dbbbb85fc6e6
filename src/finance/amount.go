package finance

import (
	"errors"

	"fintrack-server/src/models"

	"github.com/shopspring/decimal"
)

var ErrInvalidType = errors.New("transaction type must be income or expense")

// NormalizeAmount applies the ledger sign convention: income is stored as
// the absolute value, expense as its negation, whatever sign was submitted.
// Zero is valid for both types.
func NormalizeAmount(t models.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, ErrInvalidType
	}
	if t == models.TransactionIncome {
		return amount.Abs(), nil
	}
	return amount.Abs().Neg(), nil
}
