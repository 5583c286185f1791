package services

import (
	"context"

	"github.com/ledgermate/ledgermate/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReaderSvc exposes read access to the live snapshot. Callers always
// receive deep copies; the live snapshot is never aliased.
type LedgerReaderSvc interface {
	Snapshot() domain.Snapshot
}

// LedgerWriterSvc covers every mutating ledger operation. Each one applies
// its in-memory change and marks unsynced changes synchronously before
// returning, including cascades.
type LedgerWriterSvc interface {
	CreateTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, txn domain.Transaction) error
	DeleteTransaction(ctx context.Context, transactionID string) error
	ImportTransactions(ctx context.Context, txns []domain.Transaction) (int, error)

	CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error)
	UpdateAccount(ctx context.Context, account domain.Account) error
	DeleteAccount(ctx context.Context, accountID string) error

	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, categoryID string) error

	SetBudget(ctx context.Context, amount decimal.Decimal) error
	SetCategoryBudget(ctx context.Context, categoryID string, amount decimal.Decimal) error
	UpdateSettings(ctx context.Context, settings domain.Settings) error
}

// LedgerSvcFacade combines read and write access to the live snapshot.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}

// ContextSvc swaps the active dataset between contexts.
type ContextSvc interface {
	// SwitchContext persists the outgoing snapshot, swaps the active context
	// and loads (or initializes) the incoming one. The outgoing save always
	// happens before the swap.
	SwitchContext(ctx context.Context, target domain.ContextID) error

	ActiveContext() domain.ContextID
}

// SyncSvcFacade is the reconciliation engine surface exposed upward.
type SyncSvcFacade interface {
	// State returns a copy of the process-wide sync read model.
	State() domain.SyncState

	// Push backs up the active context's data. Returns PushSkipped (and no
	// error) when another push is already in flight.
	Push(ctx context.Context) (domain.PushOutcome, error)

	// Restore applies a pending remote backup using the given strategy.
	Restore(ctx context.Context, strategy domain.RestoreStrategy) error

	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Signup(ctx context.Context, email, password, name string) (*domain.Session, error)
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error

	// SetOnline flips the connectivity flag and lets the engine tear down or
	// rebuild its realtime subscription accordingly.
	SetOnline(ctx context.Context, online bool)

	// ListWallets returns the wallets the signed-in user can switch to.
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	CreateWallet(ctx context.Context, name, currencyCode string) (*domain.Wallet, error)
	DeleteWallet(ctx context.Context, walletID string) error
}

// RealtimeSvc manages the single push-notification subscription that follows
// the active context around.
type RealtimeSvc interface {
	// Refresh tears down any existing subscription and, when the engine is
	// authenticated, online and not mid-logout, opens exactly one new
	// subscription scoped to the active context.
	Refresh(ctx context.Context)

	// Notifications yields the soft "new data available" signals. The feed
	// never blocks producers; oldest entries are dropped on overflow.
	Notifications() <-chan domain.Notification

	Close()
}
