// Package auth issues and verifies the signed tokens used for sessions and
// password reset links.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession       = "session"
	PurposePasswordReset = "password_reset"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokens(secret string, ttl, resetTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, resetTTL: resetTTL, now: time.Now}
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// IssueSession signs a session token whose subject is the user ID.
func (t *Tokens) IssueSession(userID, username string) (string, error) {
	return t.sign(Claims{Username: username, Purpose: PurposeSession}, userID, t.ttl)
}

// IssuePasswordReset signs a short lived token whose subject is the email
// address the reset link was sent to.
func (t *Tokens) IssuePasswordReset(email string) (string, error) {
	return t.sign(Claims{Purpose: PurposePasswordReset}, email, t.resetTTL)
}

// ParseSession returns the claims of a valid session token.
func (t *Tokens) ParseSession(token string) (*Claims, error) {
	return t.parse(token, PurposeSession)
}

// ParsePasswordReset returns the email address carried by a valid reset
// token.
func (t *Tokens) ParsePasswordReset(token string) (string, error) {
	claims, err := t.parse(token, PurposePasswordReset)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (t *Tokens) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := t.now()
	claims.Subject = subject
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
