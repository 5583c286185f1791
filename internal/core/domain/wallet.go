package domain

import "time"

// ContextID identifies an isolated dataset scope: the empty value is the
// user's personal space, anything else is a shared wallet id.
type ContextID string

// PersonalContext is the singular personal scope.
const PersonalContext ContextID = ""

// IsPersonal reports whether the context is the personal scope.
func (c ContextID) IsPersonal() bool { return c == PersonalContext }

// StorageKey returns the per-context snapshot key fragment. The personal
// scope gets a stable name so the key layout never contains an empty segment.
func (c ContextID) StorageKey() string {
	if c.IsPersonal() {
		return "personal"
	}
	return string(c)
}

// Wallet represents a shared multi-writer context's metadata. The wallet's
// financial data itself lives in the per-context snapshot, not here.
type Wallet struct {
	WalletID     string    `json:"walletID"` // Primary Key (UUID)
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currencyCode"`
	OwnerID      string    `json:"ownerID"`
	MemberIDs    []string  `json:"memberIDs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsOwner reports whether userID owns the wallet.
func (w Wallet) IsOwner(userID string) bool { return w.OwnerID == userID }

// IsMember reports whether userID belongs to the wallet (owner included).
func (w Wallet) IsMember(userID string) bool {
	if w.OwnerID == userID {
		return true
	}
	for _, id := range w.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
