package dto

import (
	"time"

	"github.com/ledgermate/ledgermate/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest defines the data needed to record a new transaction.
type CreateTransactionRequest struct {
	Type        domain.TransactionType `json:"type" binding:"required,oneof=income expense transfer"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Date        time.Time              `json:"date" binding:"required"`
	Description string                 `json:"description"`
	AccountID   string                 `json:"accountID"`
	ToAccountID string                 `json:"toAccountID"` // Required by the service for transfers
	CategoryID  string                 `json:"categoryID"`
}

// ToDomain converts the request into a domain transaction. The service
// assigns the transaction ID.
func (r CreateTransactionRequest) ToDomain() domain.Transaction {
	return domain.Transaction{
		Type:        r.Type,
		Amount:      r.Amount,
		Date:        r.Date,
		Description: r.Description,
		AccountID:   r.AccountID,
		ToAccountID: r.ToAccountID,
		CategoryID:  r.CategoryID,
	}
}

// UpdateTransactionRequest carries the full replacement state for an existing
// transaction. The ID comes from the URL, never the body.
type UpdateTransactionRequest struct {
	Type        domain.TransactionType `json:"type" binding:"required,oneof=income expense transfer"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Date        time.Time              `json:"date" binding:"required"`
	Description string                 `json:"description"`
	AccountID   string                 `json:"accountID"`
	ToAccountID string                 `json:"toAccountID"`
	CategoryID  string                 `json:"categoryID"`
}

// ToDomain converts the request into a domain transaction with the given ID.
func (r UpdateTransactionRequest) ToDomain(transactionID string) domain.Transaction {
	return domain.Transaction{
		TransactionID: transactionID,
		Type:          r.Type,
		Amount:        r.Amount,
		Date:          r.Date,
		Description:   r.Description,
		AccountID:     r.AccountID,
		ToAccountID:   r.ToAccountID,
		CategoryID:    r.CategoryID,
	}
}

// ImportTransactionsRequest wraps a batch of transactions to merge into the
// active context.
type ImportTransactionsRequest struct {
	Transactions []CreateTransactionRequest `json:"transactions" binding:"required,min=1,dive"`
}

// ImportTransactionsResponse reports how many rows were actually admitted.
type ImportTransactionsResponse struct {
	Imported int `json:"imported"`
	Rejected int `json:"rejected"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string                 `json:"transactionID"`
	Type          domain.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Date          time.Time              `json:"date"`
	Description   string                 `json:"description,omitempty"`
	AccountID     string                 `json:"accountID,omitempty"`
	ToAccountID   string                 `json:"toAccountID,omitempty"`
	CategoryID    string                 `json:"categoryID,omitempty"`
	PendingSync   bool                   `json:"pendingSync"`
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		Type:          t.Type,
		Amount:        t.Amount,
		Date:          t.Date,
		Description:   t.Description,
		AccountID:     t.AccountID,
		ToAccountID:   t.ToAccountID,
		CategoryID:    t.CategoryID,
		PendingSync:   t.PendingSync,
	}
}

// ToTransactionResponses maps a slice of domain transactions.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, ToTransactionResponse(&txns[i]))
	}
	return out
}

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Name         string          `json:"name" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,currencycode"`
	Balance      decimal.Decimal `json:"balance"`
}

// UpdateAccountRequest carries the full replacement state for an account.
type UpdateAccountRequest struct {
	Name         string          `json:"name" binding:"required"`
	CurrencyCode string          `json:"currencyCode" binding:"required,currencycode"`
	Balance      decimal.Decimal `json:"balance"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID    string          `json:"accountID"`
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currencyCode"`
	Balance      decimal.Decimal `json:"balance"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    acc.AccountID,
		Name:         acc.Name,
		CurrencyCode: acc.CurrencyCode,
		Balance:      acc.Balance,
	}
}

// ToAccountResponses maps a slice of domain accounts.
func ToAccountResponses(accs []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accs))
	for i := range accs {
		out = append(out, ToAccountResponse(&accs[i]))
	}
	return out
}

// CreateCategoryRequest defines the data needed to create a new category.
type CreateCategoryRequest struct {
	Name string              `json:"name" binding:"required"`
	Kind domain.CategoryKind `json:"kind" binding:"required,oneof=income expense"`
	Icon string              `json:"icon"`
}

// UpdateCategoryRequest carries the full replacement state for a category.
type UpdateCategoryRequest struct {
	Name string              `json:"name" binding:"required"`
	Kind domain.CategoryKind `json:"kind" binding:"required,oneof=income expense"`
	Icon string              `json:"icon"`
}

// CategoryResponse defines the data returned for a category.
type CategoryResponse struct {
	CategoryID string              `json:"categoryID"`
	Name       string              `json:"name"`
	Kind       domain.CategoryKind `json:"kind"`
	Icon       string              `json:"icon,omitempty"`
}

// ToCategoryResponse converts a domain.Category to CategoryResponse DTO.
func ToCategoryResponse(cat *domain.Category) CategoryResponse {
	return CategoryResponse{
		CategoryID: cat.CategoryID,
		Name:       cat.Name,
		Kind:       cat.Kind,
		Icon:       cat.Icon,
	}
}

// ToCategoryResponses maps a slice of domain categories.
func ToCategoryResponses(cats []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, ToCategoryResponse(&cats[i]))
	}
	return out
}

// SetBudgetRequest sets the overall monthly budget for the active context.
type SetBudgetRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// SetCategoryBudgetRequest sets (or clears, with zero) one category's budget.
type SetCategoryBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// UpdateSettingsRequest carries the replacement settings for the active
// context.
type UpdateSettingsRequest struct {
	CurrencyCode string `json:"currencyCode" binding:"required,currencycode"`
	Locale       string `json:"locale"`
	Theme        string `json:"theme"`
	AutoBackup   string `json:"autoBackup" binding:"required,oneof=off daily weekly"`
	HideBalances bool   `json:"hideBalances"`
}

// ToDomain converts the request into domain settings.
func (r UpdateSettingsRequest) ToDomain() domain.Settings {
	return domain.Settings{
		CurrencyCode: r.CurrencyCode,
		Locale:       r.Locale,
		Theme:        r.Theme,
		AutoBackup:   r.AutoBackup,
		HideBalances: r.HideBalances,
	}
}

// SnapshotResponse is the full read model of the active context's dataset.
type SnapshotResponse struct {
	Transactions       []TransactionResponse      `json:"transactions"`
	Accounts           []AccountResponse          `json:"accounts"`
	Categories         []CategoryResponse         `json:"categories"`
	Budget             decimal.Decimal            `json:"budget"`
	CategoryBudgets    map[string]decimal.Decimal `json:"categoryBudgets"`
	Settings           domain.Settings            `json:"settings"`
	CustomTranslations map[string]string          `json:"customTranslations,omitempty"`
}

// ToSnapshotResponse converts a domain.Snapshot to its response DTO.
func ToSnapshotResponse(s domain.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Transactions:       ToTransactionResponses(s.Transactions),
		Accounts:           ToAccountResponses(s.Accounts),
		Categories:         ToCategoryResponses(s.Categories),
		Budget:             s.Budget,
		CategoryBudgets:    s.CategoryBudgets,
		Settings:           s.Settings,
		CustomTranslations: s.CustomTranslations,
	}
}
