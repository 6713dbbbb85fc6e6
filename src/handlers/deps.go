package handlers

import (
	"net/http"
	"strings"
	"time"

	"fintrack-server/src/auth"
	"fintrack-server/src/config"
	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/mail"
	"fintrack-server/src/middleware"
)

// Deps is everything the handlers share. It is built once at startup.
type Deps struct {
	Store    db.Store
	Finance  *finance.Service
	Profiles *db.ProfileCache
	Tokens   *auth.Tokens
	Outbox   mail.Outbox
	Config   *config.Config
}

func setSessionCookie(w http.ResponseWriter, d *Deps, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(d.Tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   strings.HasPrefix(d.Config.PublicBaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
