// Package ledger defines the storage contract the ingestion pipeline and the
// analytics engine depend on. Implementations live in subpackages; the rest of
// the code only sees these interfaces.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// ErrNotFound is returned when a document does not exist or does not belong to
// the requesting owner. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("ledger: not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("ledger: duplicate")

// TransactionFilter narrows a transaction scan. OwnerID is always required.
type TransactionFilter struct {
	OwnerID    string
	From       *time.Time
	To         *time.Time
	Kind       *domain.TransactionKind
	CategoryID string
}

// ListOptions controls sorting and pagination for List.
type ListOptions struct {
	SortBy   string
	SortAsc  bool
	Page     int64
	Limit    int64
}

// TransactionUpdate is a partial update; nil fields are left untouched.
type TransactionUpdate struct {
	Kind          *domain.TransactionKind
	Amount        *float64
	Date          *time.Time
	Description   *string
	MerchantName  *string
	PaymentMethod *string
	Tags          []string
	Category      *domain.CategoryRef
}

// CategoryTotal is one row of the category breakdown view.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MonthTotal is one grouped row of a monthly expense scan.
type MonthTotal struct {
	Year   int
	Month  int
	Amount float64
}

// MonthFlow is one grouped row of a monthly income/expense scan.
type MonthFlow struct {
	Year    int
	Month   int
	Income  float64
	Expense float64
}

// Last30Summary aggregates the trailing-30-day window.
type Last30Summary struct {
	NetIncome         float64
	TotalExpense      float64
	TotalTransactions int64
}

// OwnerSummary combines the lifetime balance with the trailing-30-day window.
// Both are zero-valued when the owner has no transactions at all.
type OwnerSummary struct {
	TotalBalance float64
	Last30       Last30Summary
}

// TransactionStore is the durable transaction collection.
type TransactionStore interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, ownerID, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter TransactionFilter, opts ListOptions) ([]domain.Transaction, int64, error)
	// Update atomically applies a partial update scoped by owner+id and
	// returns the updated document, or ErrNotFound.
	Update(ctx context.Context, ownerID, id string, upd TransactionUpdate) (*domain.Transaction, error)
	// Delete atomically removes a document scoped by owner+id, or ErrNotFound.
	Delete(ctx context.Context, ownerID, id string) error

	// ExpenseTotalsByCategory sums expense amounts grouped by embedded category
	// name, sorted by total descending. Nil bounds leave the range open.
	ExpenseTotalsByCategory(ctx context.Context, ownerID string, from, to *time.Time) ([]CategoryTotal, error)
	// MonthlyExpenseTotals sums expense amounts grouped by calendar year+month
	// inside [from, to].
	MonthlyExpenseTotals(ctx context.Context, ownerID string, from, to time.Time) ([]MonthTotal, error)
	// MonthlyFlows computes conditional income and expense sums grouped by
	// calendar year+month inside [from, to].
	MonthlyFlows(ctx context.Context, ownerID string, from, to time.Time) ([]MonthFlow, error)
	// Summary computes the lifetime balance and the trailing window summary in
	// one pass over the owner's transactions.
	Summary(ctx context.Context, ownerID string, windowStart, now time.Time) (*OwnerSummary, error)
}

// CategoryStore is the durable category collection.
type CategoryStore interface {
	// FindByName returns the category with the exact name visible to ownerID,
	// preferring an owner-scoped match over a global one. An empty ownerID
	// restricts the lookup to global categories. Returns ErrNotFound when no
	// category matches.
	FindByName(ctx context.Context, ownerID, name string) (*domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
	// ListVisible returns the owner's categories plus all global ones, sorted
	// by name ascending.
	ListVisible(ctx context.Context, ownerID string) ([]domain.Category, error)
	// Insert adds a category, returning ErrDuplicate when (name, ownerId)
	// already exists.
	Insert(ctx context.Context, c *domain.Category) error
}
