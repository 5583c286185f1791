package repositories

import (
	"context"
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
)

// BackupRepository covers the user-scoped backup store. Most-recent-wins
// semantics: a push overwrites whatever was there before.
type BackupRepository interface {
	// PushBackup overwrites the user's backup and returns the server-assigned
	// update timestamp.
	PushBackup(ctx context.Context, ownerID string, payload domain.Snapshot) (time.Time, error)

	// PullBackup retrieves the user's backup envelope. Returns
	// apperrors.ErrNotFound when no backup exists yet (a normal first-run
	// condition, not a failure).
	PullBackup(ctx context.Context, ownerID string) (*domain.BackupEnvelope, error)
}

// WalletRepository covers shared-wallet metadata and wallet-scoped data.
type WalletRepository interface {
	// PushWalletData overwrites the wallet's dataset, attributing the write
	// to editorID so other members' realtime listeners can tell it apart
	// from their own echoes.
	PushWalletData(ctx context.Context, walletID, editorID string, payload domain.Snapshot) error

	// PullWalletData retrieves the wallet's current dataset. Returns
	// apperrors.ErrNotFound when the wallet holds no data yet.
	PullWalletData(ctx context.Context, walletID string) (*domain.Snapshot, error)

	ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error)
	CreateWallet(ctx context.Context, ownerID, name, currencyCode string) (*domain.Wallet, error)
	DeleteWallet(ctx context.Context, walletID string) error
}

// Subscription is an open realtime channel. Close tears it down; it is safe
// to call more than once.
type Subscription interface {
	Close() error
}

// RealtimeSubscriber opens push-notification subscriptions scoped to one
// context. The onChange callback receives validated tagged events; it is
// invoked from the subscription's own goroutine.
type RealtimeSubscriber interface {
	Subscribe(ctx context.Context, scope domain.ChangeScope, scopeID string, onChange func(domain.ChangeEvent)) (Subscription, error)
}

// AuthProvider exposes the authentication primitives of the remote backend.
// Password handling, token refresh and account recovery all live on the
// other side of this boundary.
type AuthProvider interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Signup(ctx context.Context, email, password, name string) (*domain.Session, error)
	ResetPassword(ctx context.Context, email string) error
	GetSession(ctx context.Context) (*domain.Session, error)
}

// RemoteGateway combines every network-boundary capability the sync engine
// consumes. Adapters implement the whole facade; services depend only on the
// facets they use.
type RemoteGateway interface {
	BackupRepository
	WalletRepository
	RealtimeSubscriber
	AuthProvider
}
