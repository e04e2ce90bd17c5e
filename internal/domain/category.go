package domain

import (
	"time"
)

// CategoryType restricts which transaction kinds a category may be attached to.
type CategoryType string

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
	CategoryBoth    CategoryType = "both"
)

// UncategorizedName is the well-known global fallback category. It is created
// lazily on first need and always has type "expense".
const UncategorizedName = "Uncategorized"

// Category is a classification label, either global (OwnerID nil) or owned by
// a single user. (name, ownerId) is unique among owner-scoped categories and
// name is unique among global ones.
type Category struct {
	ID        string       `bson:"_id,omitempty" json:"id"`
	OwnerID   *string      `bson:"ownerId" json:"ownerId"`
	Name      string       `bson:"name" json:"name"`
	Type      CategoryType `bson:"type" json:"type"`
	Icon      string       `bson:"icon,omitempty" json:"icon,omitempty"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Global reports whether the category is shared across all owners.
func (c *Category) Global() bool {
	return c.OwnerID == nil
}

// Allows reports whether a transaction of the given kind may use this category.
func (c *Category) Allows(kind TransactionKind) bool {
	return c.Type == CategoryBoth || string(c.Type) == string(kind)
}

// Ref returns the snapshot embedded on transactions.
func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}
