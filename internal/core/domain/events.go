package domain

import "time"

// ChangeScope names the realtime channel a subscription is bound to.
type ChangeScope string

const (
	ScopeUserBackup ChangeScope = "backup" // Personal backup channel, keyed by user id
	ScopeWallet     ChangeScope = "wallet" // Shared wallet channel, keyed by wallet id
)

// ChangeEvent is the tagged variant carried by a realtime subscription.
// Payloads are validated at the gateway boundary; the engine only ever sees
// one of the two concrete types below.
type ChangeEvent interface {
	Scope() ChangeScope
	// AuthorID identifies who produced the remote change; events authored by
	// the current user are echoes of its own pushes and are ignored.
	AuthorID() string
}

// BackupChangeEvent signals that the user's personal backup was rewritten.
type BackupChangeEvent struct {
	OwnerID   string    `json:"ownerID"`
	EditorID  string    `json:"editorID"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (BackupChangeEvent) Scope() ChangeScope { return ScopeUserBackup }
func (e BackupChangeEvent) AuthorID() string { return e.EditorID }

// WalletChangeEvent signals that a shared wallet's data was rewritten.
type WalletChangeEvent struct {
	WalletID  string    `json:"walletID"`
	EditorID  string    `json:"editorID"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WalletChangeEvent) Scope() ChangeScope { return ScopeWallet }
func (e WalletChangeEvent) AuthorID() string { return e.EditorID }

// NotificationKind classifies the soft signals raised by the realtime
// listener. They are informational only; no remote data is applied.
type NotificationKind string

const (
	NotifyWalletUpdated NotificationKind = "wallet_updated"
	NotifyBackupUpdated NotificationKind = "backup_updated"
)

// Notification is a non-blocking "new data available" signal surfaced to the
// presentation layer.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Context ContextID        `json:"context"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}
