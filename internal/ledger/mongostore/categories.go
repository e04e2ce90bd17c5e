package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// Categories is the category view of a Store. It exists because the category
// and transaction methods would otherwise collide on the Insert/Get names,
// which keeps one Store from implementing both ledger interfaces directly.
type Categories struct {
	*Store
}

// Categories returns the ledger.CategoryStore view of the store.
func (s *Store) Categories() *Categories {
	return &Categories{s}
}

// FindByName prefers an owner-scoped category over a global one carrying the
// same name; two lookups keep the preference deterministic instead of leaning
// on store ordering.
func (s *Categories) FindByName(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	if ownerID != "" {
		c, err := s.findOneCategory(ctx, bson.M{"name": name, "ownerId": ownerID})
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return s.findOneCategory(ctx, bson.M{"name": name, "ownerId": nil})
}

func (s *Categories) Get(ctx context.Context, id string) (*domain.Category, error) {
	return s.findOneCategory(ctx, bson.M{"_id": id})
}

func (s *Categories) ListVisible(ctx context.Context, ownerID string) ([]domain.Category, error) {
	cur, err := s.categories.Find(ctx,
		bson.M{"$or": bson.A{
			bson.M{"ownerId": ownerID},
			bson.M{"ownerId": nil},
		}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongostore: list categories: %w", err)
	}
	defer cur.Close(ctx)

	cats := []domain.Category{}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("mongostore: decode categories: %w", err)
	}
	return cats, nil
}

func (s *Categories) Insert(ctx context.Context, c *domain.Category) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.categories.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("mongostore: insert category: %w", err)
	}
	return nil
}

func (s *Store) findOneCategory(ctx context.Context, filter bson.M) (*domain.Category, error) {
	var c domain.Category
	err := s.categories.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: find category: %w", err)
	}
	return &c, nil
}
