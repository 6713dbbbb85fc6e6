package postgres

import (
	"context"

	"fintrack-server/src/db"
	"fintrack-server/src/models"
)

func (s *Store) UpsertSummary(ctx context.Context, summary models.FinancialSummary) error {
	if err := db.RequireOwner(summary.UserID); err != nil {
		return err
	}
	query := `
		INSERT INTO finances (user_id, total_income, total_expense, balance, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET total_income = EXCLUDED.total_income,
			total_expense = EXCLUDED.total_expense,
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query, summary.UserID, summary.TotalIncome, summary.TotalExpense, summary.Balance)
	return err
}

func (s *Store) GetSummary(ctx context.Context, userID string) (*models.FinancialSummary, error) {
	query := `
		SELECT user_id, total_income, total_expense, balance
		FROM finances
		WHERE user_id = $1
	`
	var summary models.FinancialSummary
	err := s.pool.QueryRow(ctx, query, userID).
		Scan(&summary.UserID, &summary.TotalIncome, &summary.TotalExpense, &summary.Balance)
	if err != nil {
		return nil, translate(err)
	}
	return &summary, nil
}
