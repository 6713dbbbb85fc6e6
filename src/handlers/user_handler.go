package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/middleware"
	"fintrack-server/src/models"
	"fintrack-server/src/util"

	"golang.org/x/crypto/bcrypt"
)

func GetProfile(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())

		user, err := d.Profiles.Load(r.Context(), d.Store, userID)
		if err != nil {
			log.Printf("ERROR: Failed to get user - user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		util.WriteJSON(w, http.StatusOK, user)
	}
}

// CompleteProfile records the onboarding details. It is reachable before the
// profile guard lets the user anywhere else.
func CompleteProfile(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())

		var req models.CompleteProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode complete profile request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)
		req.Timezone = strings.TrimSpace(req.Timezone)
		if req.FirstName == "" || req.LastName == "" {
			util.WriteError(w, http.StatusBadRequest, "first and last name are required")
			return
		}
		if err := finance.ValidateTimezone(req.Timezone); err != nil {
			util.WriteError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid timezone selected: %q, Try format like \"Europe/Kyiv\"", req.Timezone))
			return
		}

		if err := d.Store.CompleteProfile(r.Context(), userID, req.FirstName, req.LastName, req.Timezone); err != nil {
			log.Printf("ERROR: Failed to complete profile - user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		d.Profiles.Del(userID)

		log.Printf("INFO: Profile completed - User: %s", userID)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message":  "profile completed",
			"redirect": "/transactions",
		})
	}
}

func UpdateProfile(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())

		var req models.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode update profile request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
		if req.DateFormat == "" {
			req.DateFormat = models.DefaultDateFormat
		}

		if !util.ValidateEmail(req.Email) || !util.ValidateEmailDomain(req.Email, d.Config.AllowedEmailDomains) {
			log.Printf("ERROR: Email validation failed during user update - Email: %s, User: %s", req.Email, userID)
			util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid email format or address: %q", req.Email))
			return
		}
		if !util.ValidatePhoneNumber(req.PhoneNumber) {
			util.WriteError(w, http.StatusBadRequest, "Invalid phone number. Please enter exactly 9 digits")
			return
		}
		if err := finance.ValidateTimezone(req.Timezone); err != nil {
			util.WriteError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid timezone selected: %q, Try format like \"Europe/Kyiv\"", req.Timezone))
			return
		}
		if err := finance.ValidateDateFormat(req.DateFormat); err != nil {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		err := d.Store.UpdateProfile(r.Context(), userID, req)
		if errors.Is(err, db.ErrDuplicate) {
			util.WriteError(w, http.StatusConflict, fmt.Sprintf("Email %s already exists", req.Email))
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to update user profile - user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		d.Profiles.Del(userID)

		log.Printf("INFO: User profile updated - User: %s", userID)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "profile updated successfully",
		})
	}
}

func ChangePassword(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())

		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode change password request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		user, err := d.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			log.Printf("ERROR: Failed to get user for password change - user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusNotFound, "user not found")
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.CurrentPassword)); err != nil {
			log.Printf("ERROR: Invalid current password attempt for user %s", userID)
			util.WriteError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}

		if !util.ValidatePassword(req.NewPassword) {
			log.Printf("ERROR: Password validation failed during change password - User: %s", userID)
			util.WriteError(w, http.StatusBadRequest, passwordRules)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: Failed to hash new password for user %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := d.Store.UpdatePasswordByEmail(r.Context(), user.Email, hashedPassword); err != nil {
			log.Printf("ERROR: Failed to update user password - user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		d.Profiles.Del(userID)

		log.Printf("INFO: User password changed - User: %s", userID)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "password changed successfully",
		})
	}
}

func DeleteUser(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())

		log.Printf("INFO: DeleteUser called for user_id: %s", userID)

		// Only allow users to delete themselves
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode delete user request body for user_id: %s: %v", userID, err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.UserID != userID {
			log.Printf("ERROR: Forbidden delete attempt - Authenticated user: %s, Requested user: %s", userID, req.UserID)
			util.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}

		log.Printf("INFO: Deleting user %s and all associated data", userID)
		if err := d.Store.DeleteUser(r.Context(), userID); err != nil {
			log.Printf("ERROR: Failed to delete user %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "failed to delete user")
			return
		}
		d.Profiles.Del(userID)
		clearSessionCookie(w)

		log.Printf("INFO: User %s deleted successfully", userID)
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"message":  "user deleted",
			"redirect": "/register",
		})
	}
}
