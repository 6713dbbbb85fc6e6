package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack-server/src/auth"
	"fintrack-server/src/config"
	"fintrack-server/src/db"
	"fintrack-server/src/db/memory"
	"fintrack-server/src/finance"
	"fintrack-server/src/handlers"
	"fintrack-server/src/mail"
	"fintrack-server/src/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const password = "Secret#123"

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (s *recordingSender) Send(ctx context.Context, m mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) last(t *testing.T) mail.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

type testServer struct {
	router *chi.Mux
	store  db.Store
	mails  *recordingSender
}

func newTestServer(t *testing.T, demo bool) *testServer {
	t.Helper()
	store := memory.New()
	profiles, err := db.NewProfileCache(time.Minute)
	require.NoError(t, err)
	t.Cleanup(profiles.Close)

	mails := &recordingSender{}
	deps := &handlers.Deps{
		Store:    store,
		Finance:  finance.NewService(store, store, nil),
		Profiles: profiles,
		Tokens:   auth.NewTokens("test-secret", time.Hour, 15*time.Minute),
		Outbox:   mail.Direct{Sender: mails},
		Config: &config.Config{
			PublicBaseURL:       "http://localhost:5173",
			AllowedOrigins:      []string{"http://localhost:5173"},
			AllowedEmailDomains: []string{"gmail.com"},
			DemoMode:            demo,
		},
	}
	return &testServer{router: NewRouter(deps), store: store, mails: mails}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username":         username,
		"email":            username + "@gmail.com",
		"password":         password,
		"confirm_password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "/complete-profile", body["redirect"])
	return body["token"].(string)
}

// onboard registers a user and completes their profile.
func (s *testServer) onboard(t *testing.T, username string) string {
	t.Helper()
	token := s.register(t, username)
	rec := s.do(t, http.MethodPost, "/api/profile/complete", token, map[string]string{
		"first_name": "Test",
		"last_name":  "User",
		"timezone":   "Europe/Kyiv",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return token
}

func (s *testServer) record(t *testing.T, token, kind, amount, description, category string) models.Transaction {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"transaction_type": kind,
		"amount":           json.Number(amount),
		"description":      description,
		"category":         category,
		"date":             "2024-01-05",
		"time":             "12:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Transaction](t, rec)
}

func (s *testServer) summary(t *testing.T, token string) models.FinancialSummary {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.FinancialSummary](t, rec)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "alice")

	tests := []struct {
		name    string
		body    map[string]string
		code    int
		message string
	}{
		{
			name:    "foreign domain",
			body:    map[string]string{"username": "bob", "email": "bob@example.com", "password": password, "confirm_password": password},
			code:    http.StatusBadRequest,
			message: `Invalid email format or address: "bob@example.com"`,
		},
		{
			name:    "mismatched passwords",
			body:    map[string]string{"username": "bob", "email": "bob@gmail.com", "password": password, "confirm_password": password + "x"},
			code:    http.StatusBadRequest,
			message: "Passwords do not match",
		},
		{
			name: "weak password",
			body: map[string]string{"username": "bob", "email": "bob@gmail.com", "password": "password", "confirm_password": "password"},
			code: http.StatusBadRequest,
		},
		{
			name:    "taken username",
			body:    map[string]string{"username": "alice", "email": "other@gmail.com", "password": password, "confirm_password": password},
			code:    http.StatusConflict,
			message: "Username alice already exists",
		},
		{
			name:    "taken email",
			body:    map[string]string{"username": "other", "email": "ALICE@gmail.com", "password": password, "confirm_password": password},
			code:    http.StatusConflict,
			message: "Email alice@gmail.com already exists",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/register", "", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, errorOf(t, rec))
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice@gmail.com", "password": password})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/complete-profile", decode[map[string]string](t, rec)["redirect"])

	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "nobody", "password": password})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileGuard(t *testing.T) {
	s := newTestServer(t, false)
	token := s.register(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/transactions", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "/complete-profile", decode[map[string]string](t, rec)["redirect"])

	rec = s.do(t, http.MethodPost, "/api/profile/complete", token, map[string]string{
		"first_name": "Alice", "last_name": "Smith", "timezone": "Mars/Olympus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Invalid timezone selected: "Mars/Olympus", Try format like "Europe/Kyiv"`, errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/profile/complete", token, map[string]string{
		"first_name": "Alice", "last_name": "Smith", "timezone": "Europe/Kyiv",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/transactions", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.User](t, rec)
	assert.Equal(t, "Alice", profile.FirstName)
	assert.True(t, profile.CompletedProfile)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t, false)
	token := s.onboard(t, "alice")
	s.register(t, "bob")

	update := map[string]string{
		"first_name":   "Alice",
		"last_name":    "Smith",
		"email":        "alice.smith@gmail.com",
		"phone_number": "12345",
		"timezone":     "Europe/Kyiv",
		"date_format":  "%d.%m.%Y",
	}
	rec := s.do(t, http.MethodPut, "/api/profile", token, update)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid phone number. Please enter exactly 9 digits", errorOf(t, rec))

	update["phone_number"] = "501234567"
	update["email"] = "bob@gmail.com"
	rec = s.do(t, http.MethodPut, "/api/profile", token, update)
	assert.Equal(t, http.StatusConflict, rec.Code)

	update["email"] = "alice.smith@gmail.com"
	rec = s.do(t, http.MethodPut, "/api/profile", token, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.User](t, rec)
	assert.Equal(t, "alice.smith@gmail.com", profile.Email)
	assert.Equal(t, "%d.%m.%Y", profile.DateFormat)
}

func TestTransactionsFlow(t *testing.T) {
	s := newTestServer(t, false)
	alice := s.onboard(t, "alice")

	s.record(t, alice, "income", "100", "Salary", "Work")
	lunch := s.record(t, alice, "expense", "30", "Business lunch", "Food")
	s.record(t, alice, "expense", "20", "Train", "Transport")
	assertDecimal(t, "-30", lunch.MoneyAmount)

	summary := s.summary(t, alice)
	assertDecimal(t, "100", summary.TotalIncome)
	assertDecimal(t, "-50", summary.TotalExpense)
	assertDecimal(t, "50", summary.Balance)

	rec := s.do(t, http.MethodGet, "/api/transactions?textQuery=LUNCH", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[finance.Overview](t, rec)
	require.Len(t, overview.Transactions, 1)
	assert.Equal(t, lunch.ID, overview.Transactions[0].ID)
	assertDecimal(t, "-30", overview.Filtered.TotalExpense)
	assertDecimal(t, "-30", overview.Filtered.Balance)
	assertDecimal(t, "50", overview.Summary.Balance)

	rec = s.do(t, http.MethodGet, "/api/analytics", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	analytics := decode[struct {
		Labels []string          `json:"labels"`
		Data   []decimal.Decimal `json:"data"`
	}](t, rec)
	assert.Equal(t, []string{"Food", "Transport"}, analytics.Labels)
	require.Len(t, analytics.Data, 2)
	assertDecimal(t, "30", analytics.Data[0])
	assertDecimal(t, "20", analytics.Data[1])

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+lunch.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertDecimal(t, "80", s.summary(t, alice).Balance)

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+lunch.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionValidation(t *testing.T) {
	s := newTestServer(t, false)
	token := s.onboard(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/transactions", token, map[string]any{
		"transaction_type": "transfer", "amount": 10, "category": "Misc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	summary := s.summary(t, token)
	assert.True(t, summary.Balance.IsZero())
}

func TestZeroAmountTransaction(t *testing.T) {
	s := newTestServer(t, false)
	token := s.onboard(t, "alice")

	tx := s.record(t, token, "expense", "0", "Free sample", "Food")
	assert.True(t, tx.MoneyAmount.IsZero())
	assert.Equal(t, models.TransactionExpense, tx.TransactionType)

	rec := s.do(t, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[finance.Overview](t, rec).Transactions, 1)
	assert.True(t, s.summary(t, token).Balance.IsZero())
}

func TestTransactionsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t, false)
	alice := s.onboard(t, "alice")
	bob := s.onboard(t, "bob")
	tx := s.record(t, alice, "expense", "15", "Books", "Education")

	rec := s.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/transactions", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[finance.Overview](t, rec).Transactions)
	assert.True(t, s.summary(t, bob).Balance.IsZero())
	assertDecimal(t, "-15", s.summary(t, alice).Balance)
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/password/forgot", "", map[string]string{"email": "nobody@gmail.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Email not found", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/password/forgot", "", map[string]string{"email": "alice@gmail.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	msg := s.mails.last(t)
	assert.Equal(t, "alice@gmail.com", msg.To)
	assert.Equal(t, "Password Reset Request", msg.Subject)
	_, token, found := strings.Cut(msg.Body, "http://localhost:5173/reset-password/")
	require.True(t, found, msg.Body)

	rec = s.do(t, http.MethodPost, "/api/password/reset/not-a-token", "", map[string]string{
		"new_password": "Fresh#456", "confirm_new_password": "Fresh#456",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid password reset link.", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/password/reset/"+token, "", map[string]string{
		"new_password": "Fresh#456", "confirm_new_password": "Other#456",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Passwords do not match", errorOf(t, rec))

	rec = s.do(t, http.MethodPost, "/api/password/reset/"+token, "", map[string]string{
		"new_password": "Fresh#456", "confirm_new_password": "Fresh#456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": password})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "Fresh#456"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t, false)
	token := s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/user/change-password", token, map[string]string{
		"current_password": "wrong", "new_password": "Fresh#456",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/user/change-password", token, map[string]string{
		"current_password": password, "new_password": "Fresh#456",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "Fresh#456"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	s := newTestServer(t, false)
	token := s.onboard(t, "alice")
	s.record(t, token, "income", "10", "Gift", "Other")
	user, err := s.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)

	rec := s.do(t, http.MethodDelete, "/api/user", token, map[string]string{"user_id": "someone-else"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/user", token, map[string]string{"user_id": user.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = s.store.GetUserByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = s.store.GetSummary(context.Background(), user.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDemoModeBlocksWrites(t *testing.T) {
	s := newTestServer(t, true)
	token := s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/profile/complete", token, map[string]string{
		"first_name": "Alice", "last_name": "Smith", "timezone": "UTC",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
