package sqlite

import (
	"context"
	"strings"
	"time"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/models"
)

const transactionColumns = `id, user_id, transaction_type, money_amount, description, category, date, time, created_at_ns`

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := db.RequireOwner(tx.UserID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.TransactionType), tx.MoneyAmount.String(),
		tx.Description, tx.Category, tx.Date, tx.Time, toNanos(tx.CreatedAt),
	)
	return translate(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var (
		t         models.Transaction
		txType    string
		createdAt int64
	)
	err := row.Scan(&t.ID, &t.UserID, &txType, &t.MoneyAmount, &t.Description, &t.Category, &t.Date, &t.Time, &createdAt)
	if err != nil {
		return t, err
	}
	t.TransactionType = models.TransactionType(txType)
	t.CreatedAt = fromNanos(createdAt)
	return t, nil
}

// FindTransactions narrows by the equality constraints in SQL. The text and
// period constraints run in Go: SQLite's lower() folds ASCII only.
func (s *Store) FindTransactions(ctx context.Context, q models.LedgerQuery) ([]models.Transaction, error) {
	if err := db.RequireOwner(q.UserID); err != nil {
		return nil, err
	}

	where := []string{"user_id = ?"}
	args := []any{q.UserID}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Date != "" {
		where = append(where, "date = ?")
		args = append(args, q.Date)
	}
	if q.TransactionType != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, q.TransactionType)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at_ns DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		if finance.Match(q, t) {
			transactions = append(transactions, t)
		}
	}
	return transactions, rows.Err()
}

func (s *Store) FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if err := db.RequireOwner(userID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := db.RequireOwner(userID); err != nil {
		return err
	}
	return s.execOne(ctx, "delete transaction",
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
}

// ExpensesByCategory sums in Go; amounts are stored as decimal text.
func (s *Store) ExpensesByCategory(ctx context.Context, userID string) ([]models.CategoryTotal, error) {
	txs, err := s.FindTransactions(ctx, models.LedgerQuery{
		UserID:          userID,
		TransactionType: string(models.TransactionExpense),
	})
	if err != nil {
		return nil, err
	}
	return finance.AggregateByCategory(txs), nil
}

func (s *Store) UpsertSummary(ctx context.Context, summary models.FinancialSummary) error {
	if err := db.RequireOwner(summary.UserID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO finances (user_id, total_income, total_expense, balance, updated_at_ns)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET total_income = excluded.total_income,
			total_expense = excluded.total_expense,
			balance = excluded.balance,
			updated_at_ns = excluded.updated_at_ns`,
		summary.UserID,
		summary.TotalIncome.String(),
		summary.TotalExpense.String(),
		summary.Balance.String(),
		toNanos(time.Now()),
	)
	return err
}

func (s *Store) GetSummary(ctx context.Context, userID string) (*models.FinancialSummary, error) {
	var summary models.FinancialSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_income, total_expense, balance
		FROM finances
		WHERE user_id = ?`, userID).
		Scan(&summary.UserID, &summary.TotalIncome, &summary.TotalExpense, &summary.Balance)
	if err != nil {
		return nil, translate(err)
	}
	return &summary, nil
}
