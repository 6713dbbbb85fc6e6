// Package storetest is the behaviour every db.Store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) db.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s db.Store)
	}{
		{"Users", testUsers},
		{"DuplicateUser", testDuplicateUser},
		{"ProfileUpdates", testProfileUpdates},
		{"LedgerOwnership", testLedgerOwnership},
		{"LedgerFilters", testLedgerFilters},
		{"ExpensesByCategory", testExpensesByCategory},
		{"ExpensesByCategoryTieOrder", testExpensesByCategoryTieOrder},
		{"Summary", testSummary},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"MissingOwner", testMissingOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func newUser(t *testing.T, s db.Store, id string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           id,
		Username:     id,
		Email:        id + "@gmail.com",
		PasswordHash: []byte("hash-" + id),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func insert(t *testing.T, s db.Store, tx models.Transaction) {
	t.Helper()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	require.NoError(t, s.InsertTransaction(context.Background(), &tx))
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testUsers(t *testing.T, s db.Store) {
	ctx := context.Background()
	created := newUser(t, s, "alice")

	byID, err := s.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.com", byID.Email)
	assert.Equal(t, []byte("hash-alice"), byID.PasswordHash)
	assert.Equal(t, models.DefaultDateFormat, byID.DateFormat)
	assert.False(t, byID.CompletedProfile)
	assert.Nil(t, byID.LastLogin)
	assert.WithinDuration(t, created.CreatedAt, byID.CreatedAt, time.Second)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", byName.ID)

	byEmail, err := s.GetUserByEmail(ctx, "ALICE@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.ID)

	_, err = s.GetUserByID(ctx, "nobody")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@gmail.com")
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, s.UpdateLastLogin(ctx, "alice"))
	byID, err = s.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, byID.LastLogin)

	require.NoError(t, s.UpdatePasswordByEmail(ctx, "alice@gmail.com", []byte("new-hash")))
	byID, err = s.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("new-hash"), byID.PasswordHash)
	assert.ErrorIs(t, s.UpdatePasswordByEmail(ctx, "nobody@gmail.com", []byte("x")), db.ErrNotFound)

	newUser(t, s, "bob")
	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func testDuplicateUser(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")

	err := s.CreateUser(ctx, &models.User{ID: "other", Username: "alice", Email: "x@gmail.com", PasswordHash: []byte("h")})
	assert.ErrorIs(t, err, db.ErrDuplicate)

	err = s.CreateUser(ctx, &models.User{ID: "other", Username: "other", Email: "alice@gmail.com", PasswordHash: []byte("h")})
	assert.ErrorIs(t, err, db.ErrDuplicate)
}

func testProfileUpdates(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")
	newUser(t, s, "bob")

	require.NoError(t, s.CompleteProfile(ctx, "alice", "Alice", "Smith", "Europe/Kyiv"))
	u, err := s.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.CompletedProfile)
	assert.Equal(t, "Alice", u.FirstName)
	assert.Equal(t, "Europe/Kyiv", u.Timezone)

	update := models.ProfileUpdate{
		FirstName:       "Alicia",
		LastName:        "Smith",
		Email:           "alicia@gmail.com",
		PhonePrefix:     "+380",
		PhoneNumber:     "501234567",
		DateOfBirth:     "1990-04-01",
		Biography:       "Saving for a bike",
		Country:         "Ukraine",
		City:            "Lviv",
		Timezone:        "Europe/Kyiv",
		DefaultCurrency: "UAH",
		Language:        "uk",
		DateFormat:      "%d.%m.%Y",
	}
	require.NoError(t, s.UpdateProfile(ctx, "alice", update))
	u, err = s.GetUserByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alicia@gmail.com", u.Email)
	assert.Equal(t, "501234567", u.PhoneNumber)
	assert.Equal(t, "%d.%m.%Y", u.DateFormat)
	assert.Equal(t, "UAH", u.DefaultCurrency)
	assert.True(t, u.CompletedProfile)

	update.Email = "bob@gmail.com"
	assert.ErrorIs(t, s.UpdateProfile(ctx, "alice", update), db.ErrDuplicate)
	assert.ErrorIs(t, s.CompleteProfile(ctx, "nobody", "a", "b", "UTC"), db.ErrNotFound)
}

func testLedgerOwnership(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")
	newUser(t, s, "bob")
	insert(t, s, models.Transaction{ID: "a1", UserID: "alice", TransactionType: models.TransactionIncome, MoneyAmount: amount("10.25"), Category: "Work", Date: "2024-01-05", Time: "09:00"})
	insert(t, s, models.Transaction{ID: "b1", UserID: "bob", TransactionType: models.TransactionExpense, MoneyAmount: amount("-3"), Category: "Food", Date: "2024-01-05"})

	got, err := s.FindTransaction(ctx, "alice", "a1")
	require.NoError(t, err)
	assert.True(t, got.MoneyAmount.Equal(amount("10.25")))
	assert.Equal(t, models.TransactionIncome, got.TransactionType)
	assert.Equal(t, "09:00", got.Time)

	_, err = s.FindTransaction(ctx, "alice", "b1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "alice", "b1"), db.ErrNotFound)

	txs, err := s.FindTransactions(ctx, models.OwnerQuery("bob"))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "b1", txs[0].ID)

	require.NoError(t, s.DeleteTransaction(ctx, "bob", "b1"))
	txs, err = s.FindTransactions(ctx, models.OwnerQuery("bob"))
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func testLedgerFilters(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	insert(t, s, models.Transaction{ID: "t1", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-4"), Description: "Morning Coffee", Category: "Food", Date: "2024-01-05", CreatedAt: base})
	insert(t, s, models.Transaction{ID: "t2", UserID: "alice", TransactionType: models.TransactionIncome, MoneyAmount: amount("900"), Description: "Salary", Category: "Work", Date: "2024-01-05", CreatedAt: base.Add(time.Minute)})
	insert(t, s, models.Transaction{ID: "t3", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-60"), Description: "Train", Category: "Transport", Date: "2023-12-28", CreatedAt: base.Add(2 * time.Minute)})

	find := func(f finance.Filters, now time.Time) []string {
		t.Helper()
		txs, err := s.FindTransactions(ctx, finance.BuildQuery("alice", f, models.Preferences{DateFormat: models.DefaultDateFormat}, now))
		require.NoError(t, err)
		ids := make([]string, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID
		}
		return ids
	}
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)

	assert.Equal(t, []string{"t3", "t2", "t1"}, find(finance.Filters{PeriodFilter: finance.PeriodAll}, now), "newest first")
	assert.Equal(t, []string{"t1"}, find(finance.Filters{TextQuery: "COF"}, now))
	assert.Empty(t, find(finance.Filters{TextQuery: "cof", TypeQuery: "income"}, now))
	assert.Equal(t, []string{"t3"}, find(finance.Filters{CategoryQuery: "Transport"}, now))
	assert.Equal(t, []string{"t2", "t1"}, find(finance.Filters{DateQuery: "2024-01-05"}, now))
	assert.Equal(t, []string{"t2", "t1"}, find(finance.Filters{PeriodFilter: finance.PeriodYear}, now))
	assert.Equal(t, []string{"t3"}, find(finance.Filters{PeriodFilter: finance.PeriodYear, DateQuery: "2023-12-28"}, now))
	assert.Empty(t, find(finance.Filters{PeriodFilter: finance.PeriodToday}, now))
}

func testExpensesByCategory(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")
	newUser(t, s, "bob")
	insert(t, s, models.Transaction{ID: "e1", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-30"), Category: "Food"})
	insert(t, s, models.Transaction{ID: "e2", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-20"), Category: "Food"})
	insert(t, s, models.Transaction{ID: "e3", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-10"), Category: "Transport"})
	insert(t, s, models.Transaction{ID: "i1", UserID: "alice", TransactionType: models.TransactionIncome, MoneyAmount: amount("500"), Category: "Food"})
	insert(t, s, models.Transaction{ID: "b1", UserID: "bob", TransactionType: models.TransactionExpense, MoneyAmount: amount("-999"), Category: "Food"})

	totals, err := s.ExpensesByCategory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Food", totals[0].Category)
	assert.True(t, totals[0].TotalAmount.Equal(amount("-50")), totals[0].TotalAmount.String())
	assert.Equal(t, "Transport", totals[1].Category)
	assert.True(t, totals[1].TotalAmount.Equal(amount("-10")))

	totals, err = s.ExpensesByCategory(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func testExpensesByCategoryTieOrder(t *testing.T, s db.Store) {
	newUser(t, s, "alice")
	insert(t, s, models.Transaction{ID: "e1", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-5"), Category: "apple"})
	insert(t, s, models.Transaction{ID: "e2", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-5"), Category: "Banana"})
	insert(t, s, models.Transaction{ID: "e3", UserID: "alice", TransactionType: models.TransactionExpense, MoneyAmount: amount("-5"), Category: "banana"})

	totals, err := s.ExpensesByCategory(context.Background(), "alice")
	require.NoError(t, err)
	names := make([]string, len(totals))
	for i, c := range totals {
		names[i] = c.Category
	}
	// Bytewise: upper case sorts before lower case.
	assert.Equal(t, []string{"Banana", "apple", "banana"}, names)
}

func testSummary(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")

	_, err := s.GetSummary(ctx, "alice")
	assert.ErrorIs(t, err, db.ErrNotFound)

	first := models.FinancialSummary{UserID: "alice", TotalIncome: amount("10.5"), TotalExpense: amount("-2.25"), Balance: amount("8.25")}
	require.NoError(t, s.UpsertSummary(ctx, first))
	second := models.FinancialSummary{UserID: "alice", TotalIncome: amount("11"), TotalExpense: amount("0"), Balance: amount("11")}
	require.NoError(t, s.UpsertSummary(ctx, second))

	got, err := s.GetSummary(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.TotalIncome.Equal(second.TotalIncome))
	assert.True(t, got.TotalExpense.IsZero())
	assert.True(t, got.Balance.Equal(second.Balance))
}

func testDeleteUserCascades(t *testing.T, s db.Store) {
	ctx := context.Background()
	newUser(t, s, "alice")
	insert(t, s, models.Transaction{ID: "a1", UserID: "alice", TransactionType: models.TransactionIncome, MoneyAmount: amount("1")})
	require.NoError(t, s.UpsertSummary(ctx, models.FinancialSummary{UserID: "alice", TotalIncome: amount("1"), Balance: amount("1")}))

	require.NoError(t, s.DeleteUser(ctx, "alice"))

	_, err := s.GetUserByID(ctx, "alice")
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = s.GetSummary(ctx, "alice")
	assert.ErrorIs(t, err, db.ErrNotFound)
	txs, err := s.FindTransactions(ctx, models.OwnerQuery("alice"))
	require.NoError(t, err)
	assert.Empty(t, txs)

	assert.ErrorIs(t, s.DeleteUser(ctx, "alice"), db.ErrNotFound)
}

func testMissingOwner(t *testing.T, s db.Store) {
	ctx := context.Background()

	_, err := s.FindTransactions(ctx, models.LedgerQuery{Category: "Food"})
	assert.ErrorIs(t, err, db.ErrMissingOwner)
	assert.ErrorIs(t, s.InsertTransaction(ctx, &models.Transaction{ID: "x"}), db.ErrMissingOwner)
	assert.ErrorIs(t, s.UpsertSummary(ctx, models.FinancialSummary{}), db.ErrMissingOwner)
	_, err = s.ExpensesByCategory(ctx, "")
	assert.ErrorIs(t, err, db.ErrMissingOwner)
}
