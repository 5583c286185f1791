package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Settings holds the per-context user preferences that travel with the
// snapshot. AutoBackup uses the values of AutoBackupMode.
type Settings struct {
	CurrencyCode string `json:"currencyCode"`
	Locale       string `json:"locale,omitempty"`
	Theme        string `json:"theme,omitempty"`
	AutoBackup   string `json:"autoBackup"` // off | daily | weekly
	HideBalances bool   `json:"hideBalances"`
}

// Auto-backup modes carried in Settings.AutoBackup.
const (
	AutoBackupOff    = "off"
	AutoBackupDaily  = "daily"  // Push when more than ~24h elapsed
	AutoBackupWeekly = "weekly" // Push when more than ~168h elapsed
)

// Snapshot is the complete financial dataset for one context. Exactly one
// snapshot is live (in memory) at a time; the rest sit serialized in the
// local store under their context key.
type Snapshot struct {
	Transactions       []Transaction              `json:"transactions"` // Kept sorted descending by date
	Accounts           []Account                  `json:"accounts"`
	Categories         []Category                 `json:"categories"`
	Budget             decimal.Decimal            `json:"budget"`
	CategoryBudgets    map[string]decimal.Decimal `json:"categoryBudgets"`
	Settings           Settings                   `json:"settings"`
	CustomTranslations map[string]string          `json:"customTranslations,omitempty"`
}

// EmptySnapshot returns the dataset a freshly joined wallet starts from:
// no seeded accounts or categories, everything zeroed.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Transactions:    []Transaction{},
		Accounts:        []Account{},
		Categories:      []Category{},
		Budget:          decimal.Zero,
		CategoryBudgets: map[string]decimal.Decimal{},
		Settings:        Settings{AutoBackup: AutoBackupOff},
	}
}

// DefaultSnapshot returns the personal-space starter dataset for a brand new
// user: a cash account and a small set of starter categories.
func DefaultSnapshot() Snapshot {
	s := EmptySnapshot()
	s.Accounts = []Account{
		{AccountID: "acc-cash", Name: "Cash", CurrencyCode: "USD", Balance: decimal.Zero},
	}
	s.Categories = []Category{
		{CategoryID: "cat-salary", Name: "Salary", Kind: CategoryIncome},
		{CategoryID: "cat-groceries", Name: "Groceries", Kind: CategoryExpense},
		{CategoryID: "cat-other", Name: "Other", Kind: CategoryExpense},
	}
	s.Settings.CurrencyCode = "USD"
	return s
}

// Clone returns a deep copy. Callers outside the owning service only ever see
// clones, so the live snapshot is never aliased.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Transactions = append([]Transaction(nil), s.Transactions...)
	out.Accounts = append([]Account(nil), s.Accounts...)
	out.Categories = append([]Category(nil), s.Categories...)
	if s.CategoryBudgets != nil {
		out.CategoryBudgets = make(map[string]decimal.Decimal, len(s.CategoryBudgets))
		for k, v := range s.CategoryBudgets {
			out.CategoryBudgets[k] = v
		}
	}
	if s.CustomTranslations != nil {
		out.CustomTranslations = make(map[string]string, len(s.CustomTranslations))
		for k, v := range s.CustomTranslations {
			out.CustomTranslations[k] = v
		}
	}
	return out
}

// Normalize fills the zero-value holes a snapshot can pick up on the wire so
// no field is ever left nil for callers.
func (s *Snapshot) Normalize() {
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Accounts == nil {
		s.Accounts = []Account{}
	}
	if s.Categories == nil {
		s.Categories = []Category{}
	}
	if s.CategoryBudgets == nil {
		s.CategoryBudgets = map[string]decimal.Decimal{}
	}
	if s.Settings.AutoBackup == "" {
		s.Settings.AutoBackup = AutoBackupOff
	}
}

// SortTransactions re-sorts the transaction sequence descending by date,
// ties broken by id so the order is deterministic.
func (s *Snapshot) SortTransactions() {
	sort.SliceStable(s.Transactions, func(i, j int) bool {
		ti, tj := s.Transactions[i], s.Transactions[j]
		if !ti.Date.Equal(tj.Date) {
			return ti.Date.After(tj.Date)
		}
		return ti.TransactionID > tj.TransactionID
	})
}

// Merge combines a remote snapshot into a local one per the merge-restore
// strategy: transactions are unioned by id with remote winning collisions and
// local-only entries preserved, while accounts, categories and settings-like
// fields are replaced wholesale by the remote copy (low-cardinality
// configuration, remote structure wins to avoid ghost entries). Ids listed in
// pendingDeletes were removed locally and must not be resurrected by the
// union. The result's transactions are sorted descending by date.
func Merge(local, remote Snapshot, pendingDeletes []string) Snapshot {
	deleted := make(map[string]struct{}, len(pendingDeletes))
	for _, id := range pendingDeletes {
		deleted[id] = struct{}{}
	}

	out := remote.Clone()
	out.Normalize()

	seen := make(map[string]struct{}, len(out.Transactions))
	kept := out.Transactions[:0]
	for _, txn := range out.Transactions {
		if _, gone := deleted[txn.TransactionID]; gone {
			continue
		}
		seen[txn.TransactionID] = struct{}{}
		kept = append(kept, txn)
	}
	out.Transactions = kept
	for _, txn := range local.Transactions {
		if _, ok := seen[txn.TransactionID]; ok {
			continue // Remote wins id collisions
		}
		if _, gone := deleted[txn.TransactionID]; gone {
			continue
		}
		out.Transactions = append(out.Transactions, txn)
	}
	out.SortTransactions()

	// Budgets and settings shallow-merge with remote overriding local keys.
	merged := make(map[string]decimal.Decimal, len(local.CategoryBudgets)+len(out.CategoryBudgets))
	for k, v := range local.CategoryBudgets {
		merged[k] = v
	}
	for k, v := range out.CategoryBudgets {
		merged[k] = v
	}
	out.CategoryBudgets = merged

	if len(local.CustomTranslations) > 0 {
		translations := make(map[string]string, len(local.CustomTranslations)+len(out.CustomTranslations))
		for k, v := range local.CustomTranslations {
			translations[k] = v
		}
		for k, v := range out.CustomTranslations {
			translations[k] = v
		}
		out.CustomTranslations = translations
	}
	return out
}
