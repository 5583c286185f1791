package services

import "github.com/ledgermate/ledgermate/internal/core/domain"

// Local store key layout: one key per entity category plus one composite
// per-context snapshot key. The bare entity keys double as the legacy layout
// older installs persisted the personal space under; they are still written
// on personal saves and read as a fallback on personal loads.
const (
	keyTransactions       = "transactions"
	keyAccounts           = "accounts"
	keyCategories         = "categories"
	keyBudget             = "budget"
	keyCategoryBudgets    = "category_budgets"
	keySettings           = "settings"
	keyCustomTranslations = "custom_translations"
	keyPendingDeletes     = "pending_deletes"
	keyWallets            = "wallets"
	keyLastSync           = "last_sync"
	keyUnsyncedChanges    = "unsynced_changes"
	keyActiveContext      = "active_context"

	snapshotKeyPrefix = "snapshot:"
)

// snapshotKey returns the composite per-context snapshot key.
func snapshotKey(id domain.ContextID) string {
	return snapshotKeyPrefix + id.StorageKey()
}
