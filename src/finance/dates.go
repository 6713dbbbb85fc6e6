package finance

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"fintrack-server/src/models"

	"github.com/ncruces/go-strftime"
)

// ResolveLocation loads the named IANA zone. Empty or unknown names fall back
// to UTC; date handling never fails because of a bad stored timezone.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateTimezone rejects names that time.LoadLocation cannot resolve.
func ValidateTimezone(name string) error {
	if name == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

// ValidateDateFormat accepts strftime patterns that can both format and parse
// back a calendar date.
func ValidateDateFormat(format string) error {
	if format == "" {
		return fmt.Errorf("date format is required")
	}
	if _, err := strftime.Layout(format); err != nil {
		return fmt.Errorf("invalid date format %q: %w", format, err)
	}
	probe := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	parsed, err := strftime.Parse(format, strftime.Format(format, probe))
	if err != nil || civilDay(parsed) != civilDay(probe) {
		return fmt.Errorf("date format %q does not identify a calendar day", format)
	}
	return nil
}

func FormatDate(format string, t time.Time) string {
	if format == "" {
		format = models.DefaultDateFormat
	}
	return strftime.Format(format, t)
}

// ParseDate reads a stored date using the user's format first and ISO
// (%Y-%m-%d) second.
func ParseDate(value, format string) (time.Time, bool) {
	if format != "" {
		if t, err := strftime.Parse(format, value); err == nil {
			return t, true
		}
	}
	if t, err := strftime.Parse(models.DefaultDateFormat, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// civilDay collapses t to a yyyymmdd integer in its own location so that
// dates parsed in UTC compare against bounds computed in local time.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
