package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"fintrack-server/src/auth"
	"fintrack-server/src/db"
	"fintrack-server/src/mail"
	"fintrack-server/src/models"
	"fintrack-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const passwordRules = "password must be at least 8 characters with uppercase, lowercase, digit, and special character"

func Register(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode register request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Username = strings.TrimSpace(req.Username)

		if !util.ValidateEmail(req.Email) || !util.ValidateEmailDomain(req.Email, d.Config.AllowedEmailDomains) {
			log.Printf("ERROR: Email validation failed during registration - Email: %s", req.Email)
			util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid email format or address: %q", req.Email))
			return
		}

		if !util.ValidateUsername(req.Username) {
			log.Printf("ERROR: Username validation failed during registration - Username: %s", req.Username)
			util.WriteError(w, http.StatusBadRequest, "username must be between 3 and 30 characters")
			return
		}

		if req.Password != req.ConfirmPassword {
			util.WriteError(w, http.StatusBadRequest, "Passwords do not match")
			return
		}

		if !util.ValidatePassword(req.Password) {
			log.Printf("ERROR: Password validation failed during registration - Username: %s", req.Username)
			util.WriteError(w, http.StatusBadRequest, passwordRules)
			return
		}

		if _, err := d.Store.GetUserByUsername(r.Context(), req.Username); err == nil {
			util.WriteError(w, http.StatusConflict, fmt.Sprintf("Username %s already exists", req.Username))
			return
		}
		if _, err := d.Store.GetUserByEmail(r.Context(), req.Email); err == nil {
			util.WriteError(w, http.StatusConflict, fmt.Sprintf("Email %s already exists", req.Email))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: Failed to hash password for user %s: %v", req.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user := &models.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hashedPassword,
			DateFormat:   models.DefaultDateFormat,
		}
		if err := d.Store.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				log.Printf("ERROR: Registration failed - email or username already exists - Email: %s, Username: %s", req.Email, req.Username)
				util.WriteError(w, http.StatusConflict, "email or username already exists")
				return
			}
			log.Printf("ERROR: Failed to create user %s: %v", req.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		log.Printf("INFO: Successful registration - User: %s, ID: %s", user.Username, user.ID)

		tokenString, err := d.Tokens.IssueSession(user.ID, user.Username)
		if err != nil {
			log.Printf("ERROR: Failed to generate JWT token for user %s: %v", user.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		setSessionCookie(w, d, tokenString)
		util.WriteJSON(w, http.StatusCreated, map[string]any{
			"token":    tokenString,
			"user":     models.RegisterResponse{ID: user.ID, Email: user.Email, Username: user.Username},
			"redirect": "/complete-profile",
		})
	}
}

func Login(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials struct {
			UsernameOrEmail string `json:"username"`
			Password        string `json:"password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
			log.Printf("ERROR: Failed to decode login request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		login := strings.TrimSpace(credentials.UsernameOrEmail)
		user, err := d.Store.GetUserByUsername(r.Context(), login)
		if err != nil {
			user, err = d.Store.GetUserByEmail(r.Context(), login)
		}
		if err != nil {
			log.Printf("ERROR: Failed to find user during login - Username/Email: %s: %v", login, err)
			util.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(credentials.Password)); err != nil {
			log.Printf("ERROR: Invalid password attempt for username/email %s from IP %s", login, r.RemoteAddr)
			util.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		tokenString, err := d.Tokens.IssueSession(user.ID, user.Username)
		if err != nil {
			log.Printf("ERROR: Failed to generate JWT token for user %s: %v", user.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		if err := d.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
			log.Printf("ERROR: Failed to update last_login for user %s: %v", user.Username, err)
		}

		log.Printf("INFO: Successful login - User: %s, ID: %s", user.Username, user.ID)

		redirect := "/transactions"
		if !user.CompletedProfile {
			redirect = "/complete-profile"
		}
		setSessionCookie(w, d, tokenString)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"token":    tokenString,
			"redirect": redirect,
		})
	}
}

func Logout(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearSessionCookie(w)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message":  "logged out",
			"redirect": "/",
		})
	}
}

// ForgotPassword mails a time limited reset link to a registered address.
func ForgotPassword(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		user, err := d.Store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "Email not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to look up email for password reset: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := d.Tokens.IssuePasswordReset(user.Email)
		if err != nil {
			log.Printf("ERROR: Failed to generate reset token for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		link := d.Config.PublicBaseURL + "/reset-password/" + token
		if err := d.Outbox.Enqueue(r.Context(), mail.PasswordReset(user.Email, link)); err != nil {
			log.Printf("ERROR: Failed to queue password reset mail for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to send reset link")
			return
		}

		log.Printf("INFO: Password reset requested - User: %s", user.ID)
		util.WriteJSON(w, http.StatusAccepted, map[string]string{
			"message": "Password reset link sent",
		})
	}
}

func ResetPassword(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := d.Tokens.ParsePasswordReset(chi.URLParam(r, "token"))
		if errors.Is(err, auth.ErrExpiredToken) {
			util.WriteError(w, http.StatusBadRequest, "The password reset link has expired.")
			return
		}
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid password reset link.")
			return
		}

		var req struct {
			NewPassword        string `json:"new_password"`
			ConfirmNewPassword string `json:"confirm_new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.NewPassword != req.ConfirmNewPassword {
			util.WriteError(w, http.StatusBadRequest, "Passwords do not match")
			return
		}
		if !util.ValidatePassword(req.NewPassword) {
			util.WriteError(w, http.StatusBadRequest, passwordRules)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: Failed to hash new password: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		err = d.Store.UpdatePasswordByEmail(r.Context(), email, hashedPassword)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusBadRequest, "Invalid password reset link.")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to update password: %v", err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if user, err := d.Store.GetUserByEmail(r.Context(), email); err == nil {
			d.Profiles.Del(user.ID)
		}

		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message":  "Password updated successfully",
			"redirect": "/",
		})
	}
}
