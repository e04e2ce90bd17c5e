package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// CategoryResolver maps a free-text category guess onto an existing category,
// falling back to the shared Uncategorized category. A missing match never
// fails resolution; only store errors do.
type CategoryResolver struct {
	cats ledger.CategoryStore
}

func NewCategoryResolver(cats ledger.CategoryStore) *CategoryResolver {
	return &CategoryResolver{cats: cats}
}

// Resolve returns the category snapshot to embed for the given guess. The
// lookup prefers an owner-scoped category over a global one with the same
// name; when nothing matches it falls back to the global Uncategorized
// category, creating it on first need.
func (r *CategoryResolver) Resolve(ctx context.Context, ownerID, nameGuess string) (domain.CategoryRef, error) {
	if nameGuess != "" {
		c, err := r.cats.FindByName(ctx, ownerID, nameGuess)
		if err == nil {
			return c.Ref(), nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return domain.CategoryRef{}, fmt.Errorf("resolver: lookup %q: %w", nameGuess, err)
		}
	}

	c, err := r.EnsureUncategorized(ctx)
	if err != nil {
		return domain.CategoryRef{}, err
	}
	return c.Ref(), nil
}

// EnsureUncategorized returns the global Uncategorized category, creating it
// if the store has none. Two concurrent first-requests may both attempt the
// insert; the unique index turns the loser's insert into ErrDuplicate, which
// is treated as already-exists and re-fetched.
func (r *CategoryResolver) EnsureUncategorized(ctx context.Context) (*domain.Category, error) {
	c, err := r.cats.FindByName(ctx, "", domain.UncategorizedName)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("resolver: lookup fallback category: %w", err)
	}

	c = &domain.Category{
		Name:    domain.UncategorizedName,
		Type:    domain.CategoryExpense,
		OwnerID: nil,
	}
	err = r.cats.Insert(ctx, c)
	if errors.Is(err, ledger.ErrDuplicate) {
		c, err = r.cats.FindByName(ctx, "", domain.UncategorizedName)
		if err != nil {
			return nil, fmt.Errorf("resolver: refetch fallback category: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolver: create fallback category: %w", err)
	}
	return c, nil
}
