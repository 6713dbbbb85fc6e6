package util

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{9}$`)
	lowerPattern = regexp.MustCompile("[a-z]")
	upperPattern = regexp.MustCompile("[A-Z]")
	digitPattern = regexp.MustCompile("[0-9]")
	otherPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateEmailDomain reports whether the address belongs to one of the
// accepted mail providers. Domains are compared case-insensitively.
func ValidateEmailDomain(email string, domains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range domains {
		if domain == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func ValidateUsername(username string) bool {
	return len(username) >= 3 && len(username) <= 30
}

func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	return lowerPattern.MatchString(password) &&
		upperPattern.MatchString(password) &&
		digitPattern.MatchString(password) &&
		otherPattern.MatchString(password)
}

// ValidatePhoneNumber accepts an empty number or exactly nine digits.
func ValidatePhoneNumber(number string) bool {
	return number == "" || phonePattern.MatchString(number)
}
