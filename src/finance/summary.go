package finance

import (
	"context"
	"fmt"

	"fintrack-server/src/db"
	"fintrack-server/src/models"

	"github.com/shopspring/decimal"
)

// Fold sums a transaction list. Non-negative amounts count as income,
// negative amounts as expense.
func Fold(txs []models.Transaction) models.Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.MoneyAmount.Sign() >= 0 {
			income = income.Add(tx.MoneyAmount)
		} else {
			expense = expense.Add(tx.MoneyAmount)
		}
	}
	return models.Totals{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Add(expense),
	}
}

// Engine rebuilds a user's FinancialSummary from the full ledger.
//
// There is no locking between the scan and the upsert. Two overlapping
// recomputations for the same user leave the row written by whichever upsert
// runs last, which may come from a scan that missed the other request's
// write. The next mutation for that user repairs the row.
type Engine struct {
	ledger    db.LedgerStore
	summaries db.SummaryStore
}

func NewEngine(ledger db.LedgerStore, summaries db.SummaryStore) *Engine {
	return &Engine{ledger: ledger, summaries: summaries}
}

// Recompute scans every transaction of userID and overwrites the summary row
// with one upsert. A user without transactions gets an all-zero row.
func (e *Engine) Recompute(ctx context.Context, userID string) (models.FinancialSummary, error) {
	if err := db.RequireOwner(userID); err != nil {
		return models.FinancialSummary{}, err
	}

	txs, err := e.ledger.FindTransactions(ctx, models.OwnerQuery(userID))
	if err != nil {
		return models.FinancialSummary{}, fmt.Errorf("scan ledger for %s: %w", userID, err)
	}

	totals := Fold(txs)
	summary := models.FinancialSummary{
		UserID:       userID,
		TotalIncome:  totals.TotalIncome,
		TotalExpense: totals.TotalExpense,
		Balance:      totals.Balance,
	}
	if err := e.summaries.UpsertSummary(ctx, summary); err != nil {
		return models.FinancialSummary{}, fmt.Errorf("upsert summary for %s: %w", userID, err)
	}
	return summary, nil
}
