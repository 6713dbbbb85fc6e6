package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"fintrack-server/src/auth"
	"fintrack-server/src/db"
	"fintrack-server/src/models"
	"fintrack-server/src/util"
)

const SessionCookie = "session"

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
	userKey     contextKey = "user"
)

// TokenFromRequest reads the bearer token, falling back to the session
// cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", fmt.Errorf("missing token")
}

// RequireAuthenticated rejects requests without a valid session token and
// stores the session user in the request context.
func RequireAuthenticated(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := TokenFromRequest(r)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}
			claims, err := tokens.ParseSession(tokenString)
			if err != nil {
				util.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
			ctx = context.WithValue(ctx, usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCompleteProfile must run after RequireAuthenticated. It loads the
// profile through the shared cache and turns away users who have not
// finished onboarding.
func RequireCompleteProfile(users db.UserStore, cache *db.ProfileCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				util.WriteError(w, http.StatusUnauthorized, "missing token")
				return
			}

			user, err := cache.Load(r.Context(), users, userID)
			if errors.Is(err, db.ErrNotFound) {
				util.WriteError(w, http.StatusUnauthorized, "user not found")
				return
			}
			if err != nil {
				log.Printf("ERROR: Failed to load profile for user %s: %v", userID, err)
				util.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}

			if !user.CompletedProfile {
				util.WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":    "profile incomplete",
					"redirect": "/complete-profile",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// UserFromContext returns the profile attached by RequireCompleteProfile.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}
