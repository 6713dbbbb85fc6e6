package db

import (
	"context"
	"errors"

	"fintrack-server/src/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrMissingOwner = errors.New("query has no owner")
)

// LedgerStore is the transaction collection. Every method is scoped to a
// single owner.
type LedgerStore interface {
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransactions(ctx context.Context, q models.LedgerQuery) ([]models.Transaction, error)
	FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	// ExpensesByCategory groups the owner's expenses by category and returns
	// the signed sums ordered ascending, ties broken by category name.
	ExpensesByCategory(ctx context.Context, userID string) ([]models.CategoryTotal, error)
}

// SummaryStore holds one FinancialSummary row per user.
type SummaryStore interface {
	UpsertSummary(ctx context.Context, s models.FinancialSummary) error
	GetSummary(ctx context.Context, userID string) (*models.FinancialSummary, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CompleteProfile(ctx context.Context, id, firstName, lastName, timezone string) error
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error
	UpdatePasswordByEmail(ctx context.Context, email string, hash []byte) error
	UpdateLastLogin(ctx context.Context, id string) error
	// DeleteUser removes the user together with their ledger and summary.
	DeleteUser(ctx context.Context, id string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Store is a complete backend.
type Store interface {
	LedgerStore
	SummaryStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// RequireOwner guards store queries against a missing owner.
func RequireOwner(userID string) error {
	if userID == "" {
		return ErrMissingOwner
	}
	return nil
}
