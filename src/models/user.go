package models

import "time"

const DefaultDateFormat = "%Y-%m-%d"

type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     []byte     `json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Timezone         string     `json:"timezone"`
	DateFormat       string     `json:"date_format"`
	CompletedProfile bool       `json:"completed_profile"`
	PhonePrefix      string     `json:"phone_prefix"`
	PhoneNumber      string     `json:"phone_number"`
	DateOfBirth      string     `json:"date_of_birth"`
	Biography        string     `json:"biography"`
	Country          string     `json:"country"`
	City             string     `json:"city"`
	DefaultCurrency  string     `json:"default_currency"`
	Language         string     `json:"language"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// Preferences returns the subset of the profile that parameterises date
// handling for this user.
func (u *User) Preferences() Preferences {
	format := u.DateFormat
	if format == "" {
		format = DefaultDateFormat
	}
	return Preferences{Timezone: u.Timezone, DateFormat: format}
}

type Preferences struct {
	Timezone   string
	DateFormat string
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type CompleteProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Timezone  string `json:"timezone"`
}

// ProfileUpdate carries the editable "about user" fields.
type ProfileUpdate struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	PhonePrefix     string `json:"phone_prefix"`
	PhoneNumber     string `json:"phone_number"`
	DateOfBirth     string `json:"date_of_birth"`
	Biography       string `json:"biography"`
	Country         string `json:"country"`
	City            string `json:"city"`
	Timezone        string `json:"timezone"`
	DefaultCurrency string `json:"default_currency"`
	Language        string `json:"language"`
	DateFormat      string `json:"date_format"`
}
