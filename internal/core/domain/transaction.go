package domain

import (
	"fmt"
	"time"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/shopspring/decimal"
)

// TransactionType indicates the direction of a transaction.
type TransactionType string

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

// Transaction represents a single ledger entry within a context's snapshot.
// Identity is opaque and immutable; everything else may be edited locally.
type Transaction struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID)
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"` // Always non-negative; Type carries the direction
	Date          time.Time       `json:"date"`
	Description   string          `json:"description,omitempty"`
	AccountID     string          `json:"accountID,omitempty"`   // Source account; empty when unassigned
	ToAccountID   string          `json:"toAccountID,omitempty"` // Destination account for transfers
	CategoryID    string          `json:"categoryID,omitempty"`  // Empty when uncategorised
	PendingSync   bool            `json:"pendingSync"`           // Created/modified locally since last successful push
}

// Validate checks the invariants every transaction must satisfy before it is
// admitted into a snapshot.
func (t Transaction) Validate() error {
	if t.TransactionID == "" {
		return fmt.Errorf("%w: transaction id is required", apperrors.ErrValidation)
	}
	switch t.Type {
	case Income, Expense, Transfer:
	default:
		return fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, t.Type)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", apperrors.ErrValidation)
	}
	if t.Type == Transfer && t.ToAccountID == "" {
		return fmt.Errorf("%w: transfer requires a destination account", apperrors.ErrValidation)
	}
	return nil
}
