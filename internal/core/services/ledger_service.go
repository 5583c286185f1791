package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
	"github.com/ledgermate/ledgermate/internal/middleware"
	"github.com/shopspring/decimal"
)

// LedgerService owns the live snapshot and applies every mutating ledger
// operation to it. Each mutation marks unsynced changes inside the same
// critical section it mutates in, so a crash or navigation can never lose
// the "needs push" signal.
type LedgerService struct {
	state   *appState
	persist *persister
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(state *appState, persist *persister) *LedgerService {
	return &LedgerService{state: state, persist: persist}
}

var _ portssvc.LedgerSvcFacade = (*LedgerService)(nil)

// Snapshot returns a deep copy of the live snapshot.
func (s *LedgerService) Snapshot() domain.Snapshot {
	return s.state.snapshotClone()
}

// mutate runs fn against the live snapshot under the state lock, marks the
// dirty flag in the same critical section, then persists the result as a
// best-effort side effect.
func (s *LedgerService) mutate(ctx context.Context, fn func(st *appState) error) error {
	s.state.mu.Lock()
	if err := fn(s.state); err != nil {
		s.state.mu.Unlock()
		return err
	}
	dirtyChanged := s.state.markDirtyLocked()
	active := s.state.syncState.ActiveContext
	snap := s.state.snapshot.Clone()
	pendingDeletes := append([]string(nil), s.state.pendingDeletes...)
	s.state.mu.Unlock()

	s.persist.saveSnapshotQuiet(ctx, active, snap)
	s.persist.saveJSONQuiet(ctx, keyPendingDeletes, pendingDeletes)
	if dirtyChanged {
		s.persist.saveJSONQuiet(ctx, keyUnsyncedChanges, true)
	}
	return nil
}

// CreateTransaction validates and appends a new transaction, assigning an id
// when the caller did not provide one.
func (s *LedgerService) CreateTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if txn.TransactionID == "" {
		txn.TransactionID = uuid.NewString()
	}
	if txn.Date.IsZero() {
		txn.Date = time.Now()
	}
	txn.PendingSync = true
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, func(st *appState) error {
		for _, existing := range st.snapshot.Transactions {
			if existing.TransactionID == txn.TransactionID {
				return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
			}
		}
		st.snapshot.Transactions = append(st.snapshot.Transactions, txn)
		st.snapshot.SortTransactions()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Transaction created", slog.String("transaction_id", txn.TransactionID), slog.String("type", string(txn.Type)))
	return &txn, nil
}

// UpdateTransaction replaces an existing transaction in place, keeping its
// identity and re-marking it pending sync.
func (s *LedgerService) UpdateTransaction(ctx context.Context, txn domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	txn.PendingSync = true

	return s.mutate(ctx, func(st *appState) error {
		for i, existing := range st.snapshot.Transactions {
			if existing.TransactionID == txn.TransactionID {
				st.snapshot.Transactions[i] = txn
				st.snapshot.SortTransactions()
				return nil
			}
		}
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, txn.TransactionID)
	})
}

// DeleteTransaction removes a transaction and remembers its id so a later
// merge-restore does not resurrect it.
func (s *LedgerService) DeleteTransaction(ctx context.Context, transactionID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	err := s.mutate(ctx, func(st *appState) error {
		for i, existing := range st.snapshot.Transactions {
			if existing.TransactionID == transactionID {
				st.snapshot.Transactions = append(st.snapshot.Transactions[:i], st.snapshot.Transactions[i+1:]...)
				st.pendingDeletes = append(st.pendingDeletes, transactionID)
				return nil
			}
		}
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	})
	if err != nil {
		return err
	}

	logger.Debug("Transaction deleted", slog.String("transaction_id", transactionID))
	return nil
}

// ImportTransactions appends a batch of transactions (CSV import, statement
// parse). Entries failing validation are skipped; the returned count is the
// number actually admitted.
func (s *LedgerService) ImportTransactions(ctx context.Context, txns []domain.Transaction) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	imported := 0
	err := s.mutate(ctx, func(st *appState) error {
		existing := make(map[string]struct{}, len(st.snapshot.Transactions))
		for _, t := range st.snapshot.Transactions {
			existing[t.TransactionID] = struct{}{}
		}
		for _, txn := range txns {
			if txn.TransactionID == "" {
				txn.TransactionID = uuid.NewString()
			}
			if txn.Date.IsZero() {
				txn.Date = time.Now()
			}
			txn.PendingSync = true
			if err := txn.Validate(); err != nil {
				logger.Warn("Skipping invalid imported transaction", slog.String("error", err.Error()))
				continue
			}
			if _, dup := existing[txn.TransactionID]; dup {
				continue
			}
			existing[txn.TransactionID] = struct{}{}
			st.snapshot.Transactions = append(st.snapshot.Transactions, txn)
			imported++
		}
		if imported == 0 && len(txns) > 0 {
			return fmt.Errorf("%w: no importable transactions", apperrors.ErrValidation)
		}
		st.snapshot.SortTransactions()
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Transactions imported", slog.Int("count", imported))
	return imported, nil
}

// CreateAccount appends a new account.
func (s *LedgerService) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	if account.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", apperrors.ErrValidation)
	}
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}

	err := s.mutate(ctx, func(st *appState) error {
		for _, existing := range st.snapshot.Accounts {
			if existing.AccountID == account.AccountID {
				return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
			}
		}
		st.snapshot.Accounts = append(st.snapshot.Accounts, account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount replaces an existing account's attributes.
func (s *LedgerService) UpdateAccount(ctx context.Context, account domain.Account) error {
	if account.Name == "" {
		return fmt.Errorf("%w: account name is required", apperrors.ErrValidation)
	}
	return s.mutate(ctx, func(st *appState) error {
		for i, existing := range st.snapshot.Accounts {
			if existing.AccountID == account.AccountID {
				st.snapshot.Accounts[i] = account
				return nil
			}
		}
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, account.AccountID)
	})
}

// DeleteAccount removes an account and cascades over the transactions that
// referenced it: when other accounts remain they are reassigned to the first
// remaining one, otherwise the reference is cleared. Affected transactions
// are re-marked pending sync.
func (s *LedgerService) DeleteAccount(ctx context.Context, accountID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	reassigned := 0
	err := s.mutate(ctx, func(st *appState) error {
		idx := -1
		for i, existing := range st.snapshot.Accounts {
			if existing.AccountID == accountID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		st.snapshot.Accounts = append(st.snapshot.Accounts[:idx], st.snapshot.Accounts[idx+1:]...)

		fallback := ""
		if len(st.snapshot.Accounts) > 0 {
			fallback = st.snapshot.Accounts[0].AccountID
		}
		for i := range st.snapshot.Transactions {
			txn := &st.snapshot.Transactions[i]
			touched := false
			if txn.AccountID == accountID {
				txn.AccountID = fallback
				touched = true
			}
			if txn.ToAccountID == accountID {
				txn.ToAccountID = fallback
				touched = true
			}
			if touched {
				txn.PendingSync = true
				reassigned++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Account deleted", slog.String("account_id", accountID), slog.Int("transactions_reassigned", reassigned))
	return nil
}

// CreateCategory appends a new category.
func (s *LedgerService) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", apperrors.ErrValidation)
	}
	if category.Kind != domain.CategoryIncome && category.Kind != domain.CategoryExpense {
		return nil, fmt.Errorf("%w: unknown category kind %q", apperrors.ErrValidation, category.Kind)
	}
	if category.CategoryID == "" {
		category.CategoryID = uuid.NewString()
	}

	err := s.mutate(ctx, func(st *appState) error {
		for _, existing := range st.snapshot.Categories {
			if existing.CategoryID == category.CategoryID {
				return fmt.Errorf("%w: category %s", apperrors.ErrDuplicate, category.CategoryID)
			}
		}
		st.snapshot.Categories = append(st.snapshot.Categories, category)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory replaces an existing category's attributes.
func (s *LedgerService) UpdateCategory(ctx context.Context, category domain.Category) error {
	if category.Name == "" {
		return fmt.Errorf("%w: category name is required", apperrors.ErrValidation)
	}
	return s.mutate(ctx, func(st *appState) error {
		for i, existing := range st.snapshot.Categories {
			if existing.CategoryID == category.CategoryID {
				st.snapshot.Categories[i] = category
				return nil
			}
		}
		return fmt.Errorf("%w: category %s", apperrors.ErrNotFound, category.CategoryID)
	})
}

// DeleteCategory removes a category, clears the reference on transactions
// that carried it and drops its per-category budget entry.
func (s *LedgerService) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.mutate(ctx, func(st *appState) error {
		idx := -1
		for i, existing := range st.snapshot.Categories {
			if existing.CategoryID == categoryID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: category %s", apperrors.ErrNotFound, categoryID)
		}
		st.snapshot.Categories = append(st.snapshot.Categories[:idx], st.snapshot.Categories[idx+1:]...)
		delete(st.snapshot.CategoryBudgets, categoryID)
		for i := range st.snapshot.Transactions {
			txn := &st.snapshot.Transactions[i]
			if txn.CategoryID == categoryID {
				txn.CategoryID = ""
				txn.PendingSync = true
			}
		}
		return nil
	})
}

// SetBudget sets the overall budget.
func (s *LedgerService) SetBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: budget must not be negative", apperrors.ErrValidation)
	}
	return s.mutate(ctx, func(st *appState) error {
		st.snapshot.Budget = amount
		return nil
	})
}

// SetCategoryBudget sets the budget for one category. A zero amount removes
// the entry.
func (s *LedgerService) SetCategoryBudget(ctx context.Context, categoryID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: budget must not be negative", apperrors.ErrValidation)
	}
	return s.mutate(ctx, func(st *appState) error {
		known := false
		for _, category := range st.snapshot.Categories {
			if category.CategoryID == categoryID {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: category %s", apperrors.ErrNotFound, categoryID)
		}
		if amount.IsZero() {
			delete(st.snapshot.CategoryBudgets, categoryID)
			return nil
		}
		st.snapshot.CategoryBudgets[categoryID] = amount
		return nil
	})
}

// UpdateSettings replaces the per-context settings record.
func (s *LedgerService) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	switch settings.AutoBackup {
	case domain.AutoBackupOff, domain.AutoBackupDaily, domain.AutoBackupWeekly:
	default:
		return fmt.Errorf("%w: unknown auto-backup mode %q", apperrors.ErrValidation, settings.AutoBackup)
	}
	return s.mutate(ctx, func(st *appState) error {
		st.snapshot.Settings = settings
		return nil
	})
}
