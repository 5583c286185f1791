package domain

// CategoryKind splits categories between the two spend directions.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// Category labels transactions for budgeting and reporting.
type Category struct {
	CategoryID string       `json:"categoryID"` // Primary Key (UUID)
	Name       string       `json:"name"`
	Kind       CategoryKind `json:"kind"`
	Icon       string       `json:"icon,omitempty"`
}
