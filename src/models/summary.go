package models

import "github.com/shopspring/decimal"

// FinancialSummary holds the per-user totals derived from the whole ledger.
type FinancialSummary struct {
	UserID       string          `json:"user_id"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

// Totals is the request-scoped fold of a filtered transaction list.
type Totals struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

// CategoryTotal is the signed sum of expenses recorded under one category.
type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Magnitude returns the absolute value of the category total for display.
func (c CategoryTotal) Magnitude() decimal.Decimal {
	return c.TotalAmount.Abs()
}
