package postgres

import (
	"context"
	"fmt"
	"strings"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/models"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, user_id, transaction_type, money_amount, description, category, date, time, created_at`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.TransactionType, &t.MoneyAmount, &t.Description, &t.Category, &t.Date, &t.Time, &t.CreatedAt)
	return t, err
}

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := db.RequireOwner(tx.UserID); err != nil {
		return err
	}
	query := `
		INSERT INTO transactions (id, user_id, transaction_type, money_amount, description, category, date, time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.TransactionType,
		tx.MoneyAmount,
		tx.Description,
		tx.Category,
		tx.Date,
		tx.Time,
		tx.CreatedAt,
	)
	if err != nil {
		return translate(err)
	}
	return nil
}

// FindTransactions pushes the equality and text constraints into SQL and
// applies the period bound on the result, since stored dates are strings in
// the owner's format.
func (s *Store) FindTransactions(ctx context.Context, q models.LedgerQuery) ([]models.Transaction, error) {
	if err := db.RequireOwner(q.UserID); err != nil {
		return nil, err
	}

	where := []string{"user_id = $1"}
	args := []any{q.UserID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if q.TextQuery != "" {
		add("strpos(lower(description), lower($%d)) > 0", q.TextQuery)
	}
	if q.Category != "" {
		add("category = $%d", q.Category)
	}
	if q.Date != "" {
		add("date = $%d", q.Date)
	}
	if q.TransactionType != "" {
		add("transaction_type = $%d", q.TransactionType)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.pool.Query(ctx, query, args...)
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
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return finance.FilterPeriod(q, transactions), nil
}

func (s *Store) FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if err := db.RequireOwner(userID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`
	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := db.RequireOwner(userID); err != nil {
		return err
	}
	query := `
		DELETE FROM transactions
		WHERE id = $1 AND user_id = $2
	`
	return s.execOne(ctx, "delete transaction", query, id, userID)
}

func (s *Store) ExpensesByCategory(ctx context.Context, userID string) ([]models.CategoryTotal, error) {
	if err := db.RequireOwner(userID); err != nil {
		return nil, err
	}
	query := `
		SELECT category, SUM(money_amount) AS total
		FROM transactions
		WHERE user_id = $1 AND transaction_type = 'expense'
		GROUP BY category
		ORDER BY total ASC, category COLLATE "C" ASC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]models.CategoryTotal, 0)
	for rows.Next() {
		var c models.CategoryTotal
		if err := rows.Scan(&c.Category, &c.TotalAmount); err != nil {
			return nil, err
		}
		totals = append(totals, c)
	}
	return totals, rows.Err()
}
