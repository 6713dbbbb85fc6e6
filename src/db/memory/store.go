// Package memory is an in-process backend used by tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/models"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]models.User
	transactions map[string]models.Transaction
	summaries    map[string]models.FinancialSummary
}

var _ db.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]models.User),
		transactions: make(map[string]models.Transaction),
		summaries:    make(map[string]models.FinancialSummary),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := db.RequireOwner(tx.UserID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[tx.ID]; exists {
		return db.ErrDuplicate
	}
	s.transactions[tx.ID] = *tx
	return nil
}

// FindTransactions returns matches newest first.
func (s *Store) FindTransactions(ctx context.Context, q models.LedgerQuery) ([]models.Transaction, error) {
	if err := db.RequireOwner(q.UserID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for _, tx := range s.transactions {
		if finance.Match(q, tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) FindTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if err := db.RequireOwner(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return nil, db.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := db.RequireOwner(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return db.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ExpensesByCategory(ctx context.Context, userID string) ([]models.CategoryTotal, error) {
	txs, err := s.FindTransactions(ctx, models.OwnerQuery(userID))
	if err != nil {
		return nil, err
	}
	return finance.AggregateByCategory(txs), nil
}

func (s *Store) UpsertSummary(ctx context.Context, summary models.FinancialSummary) error {
	if err := db.RequireOwner(summary.UserID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.UserID] = summary
	return nil
}

func (s *Store) GetSummary(ctx context.Context, userID string) (*models.FinancialSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &summary, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return db.ErrDuplicate
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.DateFormat == "" {
		u.DateFormat = models.DefaultDateFormat
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) CompleteProfile(ctx context.Context, id, firstName, lastName, timezone string) error {
	return s.updateUser(id, func(u *models.User) error {
		u.FirstName = firstName
		u.LastName = lastName
		u.Timezone = timezone
		u.CompletedProfile = true
		return nil
	})
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && strings.EqualFold(other.Email, p.Email) {
			return db.ErrDuplicate
		}
	}
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Email = p.Email
	u.PhonePrefix = p.PhonePrefix
	u.PhoneNumber = p.PhoneNumber
	u.DateOfBirth = p.DateOfBirth
	u.Biography = p.Biography
	u.Country = p.Country
	u.City = p.City
	u.Timezone = p.Timezone
	u.DefaultCurrency = p.DefaultCurrency
	u.Language = p.Language
	u.DateFormat = p.DateFormat
	s.users[id] = u
	return nil
}

func (s *Store) UpdatePasswordByEmail(ctx context.Context, email string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.PasswordHash = hash
			s.users[id] = u
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *Store) UpdateLastLogin(ctx context.Context, id string) error {
	return s.updateUser(id, func(u *models.User) error {
		now := time.Now().UTC()
		u.LastLogin = &now
		return nil
	})
}

func (s *Store) updateUser(id string, apply func(*models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	if err := apply(&u); err != nil {
		return err
	}
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.users, id)
	delete(s.summaries, id)
	for txID, tx := range s.transactions {
		if tx.UserID == id {
			delete(s.transactions, txID)
		}
	}
	return nil
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
