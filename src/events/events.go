// Package events publishes ledger change notifications for downstream
// consumers. Publishing is a side channel: a failed publish never rolls back
// or fails the write that produced it.
package events

import (
	"context"
	"time"

	"fintrack-server/src/models"
)

type Kind string

const (
	TransactionRecorded Kind = "transaction.recorded"
	TransactionDeleted  Kind = "transaction.deleted"
	SummaryRecomputed   Kind = "summary.recomputed"
)

type Event struct {
	Kind          Kind                     `json:"kind"`
	UserID        string                   `json:"user_id"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	Transaction   *models.Transaction      `json:"transaction,omitempty"`
	Summary       *models.FinancialSummary `json:"summary,omitempty"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
