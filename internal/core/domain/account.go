package domain

import (
	"github.com/shopspring/decimal"
)

// Account represents a user-defined money holding (cash, bank, card) inside a
// context's snapshot. Accounts are low-cardinality configuration, not history.
type Account struct {
	AccountID    string          `json:"accountID"` // Primary Key (UUID)
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currencyCode"`
	Balance      decimal.Decimal `json:"balance"`
}
