package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is a single ledger entry. Entries are never edited; they are
// created by their owner and deleted individually.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TransactionType TransactionType `json:"transaction_type"`
	MoneyAmount     decimal.Decimal `json:"money_amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	CreatedAt       time.Time       `json:"created_at"`
}

type CreateTransactionRequest struct {
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
}
