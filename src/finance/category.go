package finance

import (
	"slices"
	"strings"

	"fintrack-server/src/models"

	"github.com/shopspring/decimal"
)

// AggregateByCategory groups expense transactions by category. Sums keep
// their negative sign and are ordered ascending, so the category with the
// largest spend comes first; equal sums are ordered by category name.
func AggregateByCategory(txs []models.Transaction) []models.CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.TransactionType != models.TransactionExpense {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.MoneyAmount)
	}

	out := make([]models.CategoryTotal, 0, len(sums))
	for category, total := range sums {
		out = append(out, models.CategoryTotal{Category: category, TotalAmount: total})
	}
	SortCategoryTotals(out)
	return out
}

// SortCategoryTotals orders by signed sum, then by category name compared
// bytewise. SQL stores must sort with the "C" collation to agree.
func SortCategoryTotals(totals []models.CategoryTotal) {
	slices.SortFunc(totals, func(a, b models.CategoryTotal) int {
		if c := a.TotalAmount.Cmp(b.TotalAmount); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
}
