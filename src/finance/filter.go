package finance

import (
	"net/url"
	"strings"
	"time"

	"fintrack-server/src/models"
)

type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Filters are the user supplied list filters. Empty fields add no constraint.
type Filters struct {
	TextQuery     string `json:"textQuery"`
	CategoryQuery string `json:"categoryQuery"`
	DateQuery     string `json:"dateQuery"`
	TypeQuery     string `json:"typeQuery"`
	PeriodFilter  Period `json:"periodFilter"`
}

// FiltersFromValues reads filters from URL query parameters.
func FiltersFromValues(v url.Values) Filters {
	period := Period(v.Get("periodFilter"))
	if period == "" {
		period = PeriodAll
	}
	return Filters{
		TextQuery:     v.Get("textQuery"),
		CategoryQuery: v.Get("categoryQuery"),
		DateQuery:     v.Get("dateQuery"),
		TypeQuery:     v.Get("typeQuery"),
		PeriodFilter:  period,
	}
}

// PeriodStart returns midnight of the first day of the period containing now,
// in now's location. Weeks start on Monday. The second result is false for
// "all" and for unknown periods.
func PeriodStart(p Period, now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodToday:
		return today, true
	case PeriodWeek:
		sinceMonday := (int(now.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -sinceMonday), true
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), true
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}

// BuildQuery turns filters into a ledger query owned by userID. An exact date
// replaces any period bound.
func BuildQuery(userID string, f Filters, prefs models.Preferences, now time.Time) models.LedgerQuery {
	q := models.LedgerQuery{
		UserID:          userID,
		TextQuery:       f.TextQuery,
		Category:        f.CategoryQuery,
		TransactionType: f.TypeQuery,
		DateFormat:      prefs.DateFormat,
	}
	if q.DateFormat == "" {
		q.DateFormat = models.DefaultDateFormat
	}

	if start, ok := PeriodStart(f.PeriodFilter, now); ok {
		q.Since = &start
		q.SinceText = FormatDate(q.DateFormat, start)
	}
	if f.DateQuery != "" {
		q.Date = f.DateQuery
		q.Since = nil
		q.SinceText = ""
	}
	return q
}

// Match reports whether tx satisfies every constraint of q.
func Match(q models.LedgerQuery, tx models.Transaction) bool {
	if tx.UserID != q.UserID {
		return false
	}
	if q.TextQuery != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(q.TextQuery)) {
		return false
	}
	if q.Category != "" && tx.Category != q.Category {
		return false
	}
	if q.Date != "" && tx.Date != q.Date {
		return false
	}
	if q.TransactionType != "" && string(tx.TransactionType) != q.TransactionType {
		return false
	}
	return MatchPeriod(q, tx)
}

// MatchPeriod applies only the period bound of q. Dates that cannot be parsed
// are compared as strings against the formatted bound.
func MatchPeriod(q models.LedgerQuery, tx models.Transaction) bool {
	if q.Since == nil {
		return true
	}
	if d, ok := ParseDate(tx.Date, q.DateFormat); ok {
		return civilDay(d) >= civilDay(*q.Since)
	}
	return tx.Date >= q.SinceText
}

// FilterPeriod returns the transactions inside the period bound of q in a new
// slice; txs is left untouched. Stores that push the other constraints into
// their query language call it on the result.
func FilterPeriod(q models.LedgerQuery, txs []models.Transaction) []models.Transaction {
	if q.Since == nil {
		return txs
	}
	kept := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if MatchPeriod(q, tx) {
			kept = append(kept, tx)
		}
	}
	return kept
}
