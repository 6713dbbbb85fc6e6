package finance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fintrack-server/src/db"
	"fintrack-server/src/events"
	"fintrack-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	timeOfDayFormat = "%H:%M"
	publishTimeout  = 2 * time.Second
)

// Service is the entry point used by request handlers. Every ledger mutation
// recomputes the owner's summary before returning.
type Service struct {
	ledger    db.LedgerStore
	summaries db.SummaryStore
	engine    *Engine
	events    events.Publisher
	now       func() time.Time
}

func NewService(ledger db.LedgerStore, summaries db.SummaryStore, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		ledger:    ledger,
		summaries: summaries,
		engine:    NewEngine(ledger, summaries),
		events:    publisher,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for period bounds and default dates.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// RecordTransaction validates and stores a new transaction for user, then
// recomputes the user's summary. Missing date and time default to the current
// moment in the user's timezone.
func (s *Service) RecordTransaction(ctx context.Context, user *models.User, req models.CreateTransactionRequest) (*models.Transaction, error) {
	txType := models.TransactionType(req.TransactionType)
	amount, err := NormalizeAmount(txType, req.Amount)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences()
	local := s.now().In(ResolveLocation(prefs.Timezone))
	date := req.Date
	if date == "" {
		date = FormatDate(prefs.DateFormat, local)
	}
	timeOfDay := req.Time
	if timeOfDay == "" {
		timeOfDay = FormatDate(timeOfDayFormat, local)
	}

	tx := &models.Transaction{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		TransactionType: txType,
		MoneyAmount:     amount,
		Description:     req.Description,
		Category:        req.Category,
		Date:            date,
		Time:            timeOfDay,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.ledger.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	summary, err := s.engine.Recompute(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{Kind: events.TransactionRecorded, UserID: user.ID, TransactionID: tx.ID, Transaction: tx})
	s.publish(ctx, events.Event{Kind: events.SummaryRecomputed, UserID: user.ID, Summary: &summary})
	return tx, nil
}

// DeleteTransaction removes a transaction owned by userID and recomputes the
// summary. A transaction owned by someone else is reported as not found.
func (s *Service) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if _, err := s.ledger.FindTransaction(ctx, userID, transactionID); err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	summary, err := s.engine.Recompute(ctx, userID)
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{Kind: events.TransactionDeleted, UserID: userID, TransactionID: transactionID})
	s.publish(ctx, events.Event{Kind: events.SummaryRecomputed, UserID: userID, Summary: &summary})
	return nil
}

// ListTransactions runs the filters for user and folds the result.
func (s *Service) ListTransactions(ctx context.Context, user *models.User, f Filters) ([]models.Transaction, models.Totals, error) {
	q := BuildQuery(user.ID, f, user.Preferences(), s.now())
	txs, err := s.ledger.FindTransactions(ctx, q)
	if err != nil {
		return nil, models.Totals{}, fmt.Errorf("find transactions: %w", err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, Fold(txs), nil
}

// Summary returns the stored summary for userID, or zeros when no row has
// been written yet.
func (s *Service) Summary(ctx context.Context, userID string) (models.FinancialSummary, error) {
	summary, err := s.summaries.GetSummary(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return models.FinancialSummary{
			UserID:       userID,
			TotalIncome:  decimal.Zero,
			TotalExpense: decimal.Zero,
			Balance:      decimal.Zero,
		}, nil
	}
	if err != nil {
		return models.FinancialSummary{}, fmt.Errorf("get summary: %w", err)
	}
	return *summary, nil
}

// Overview is everything the transactions page shows: the filtered list with
// its own totals, and the stored summary of the whole ledger.
type Overview struct {
	Transactions []models.Transaction    `json:"transactions"`
	Filtered     models.Totals           `json:"filtered_totals"`
	Summary      models.FinancialSummary `json:"summary"`
	Filters      Filters                 `json:"filters"`
}

func (s *Service) Overview(ctx context.Context, user *models.User, f Filters) (*Overview, error) {
	ov := &Overview{Filters: f}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, totals, err := s.ListTransactions(gctx, user, f)
		if err != nil {
			return err
		}
		ov.Transactions, ov.Filtered = txs, totals
		return nil
	})
	g.Go(func() error {
		summary, err := s.Summary(gctx, user.ID)
		if err != nil {
			return err
		}
		ov.Summary = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}

func (s *Service) ExpensesByCategory(ctx context.Context, userID string) ([]models.CategoryTotal, error) {
	if err := db.RequireOwner(userID); err != nil {
		return nil, err
	}
	totals, err := s.ledger.ExpensesByCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate expenses: %w", err)
	}
	if totals == nil {
		totals = []models.CategoryTotal{}
	}
	return totals, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("ERROR: Failed to publish %s event for user %s: %v", e.Kind, e.UserID, err)
	}
}
