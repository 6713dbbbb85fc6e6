package models

import "time"

// LedgerQuery is the store-level form of a transaction filter. UserID is
// mandatory; stores refuse to run a query without an owner.
type LedgerQuery struct {
	UserID          string
	TextQuery       string
	Category        string
	Date            string
	TransactionType string

	// Since is the inclusive lower bound of a period filter, SinceText the
	// same bound rendered in DateFormat.
	Since      *time.Time
	SinceText  string
	DateFormat string
}

// OwnerQuery selects every transaction of a user.
func OwnerQuery(userID string) LedgerQuery {
	return LedgerQuery{UserID: userID}
}
