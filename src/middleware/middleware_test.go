package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack-server/src/auth"
	"fintrack-server/src/db"
	"fintrack-server/src/db/memory"
	"fintrack-server/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := TokenFromRequest(req)
	assert.Error(t, err)

	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	token, err := TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token)

	req.Header.Set("Authorization", "Bearer from-header")
	token, err = TokenFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)
}

func TestRequireAuthenticated(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour, time.Minute)
	var gotID, gotName string
	h := RequireAuthenticated(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserIDFromContext(r.Context())
		gotName = UsernameFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing token", decodeError(t, rec)["error"])

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reset, err := tokens.IssuePasswordReset("alice@gmail.com")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+reset)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reset tokens are not sessions")

	session, err := tokens.IssueSession("u1", "alice")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotID)
	assert.Equal(t, "alice", gotName)
}

func TestRequireCompleteProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "new", Username: "new", Email: "new@gmail.com"}))
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "done", Username: "done", Email: "done@gmail.com", CompletedProfile: true}))
	cache, err := db.NewProfileCache(time.Minute)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	var seen *models.User
	h := RequireCompleteProfile(store, cache)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))
	serve := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if userID != "" {
			req = req.WithContext(context.WithValue(req.Context(), userIDKey, userID))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve("ghost")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve("new")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "profile incomplete", body["error"])
	assert.Equal(t, "/complete-profile", body["redirect"])

	rec = serve("done")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "done", seen.Username)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	called := false
	preflight := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec = httptest.NewRecorder()
	preflight.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/transactions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
}

func TestDemoMode(t *testing.T) {
	tests := []struct {
		name   string
		demo   bool
		method string
		path   string
		want   int
	}{
		{"off allows writes", false, http.MethodPost, "/api/transactions", http.StatusOK},
		{"get allowed", true, http.MethodGet, "/api/transactions", http.StatusOK},
		{"login allowed", true, http.MethodPost, "/api/login", http.StatusOK},
		{"register allowed", true, http.MethodPost, "/api/register", http.StatusOK},
		{"create blocked", true, http.MethodPost, "/api/transactions", http.StatusForbidden},
		{"delete blocked", true, http.MethodDelete, "/api/transactions/1", http.StatusForbidden},
		{"put blocked", true, http.MethodPut, "/api/profile", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			DemoMode(tt.demo)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
