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

// Sortable list fields; anything else falls back to date.
var listSortFields = map[string]string{
	"date":      "date",
	"amount":    "amount",
	"createdAt": "createdAt",
}

func (s *Store) Insert(ctx context.Context, tx *domain.Transaction) error {
	now := time.Now().UTC()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if _, err := s.transactions.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("mongostore: insert transaction: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := s.transactions.FindOne(ctx, bson.M{"_id": id, "userId": ownerID}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get transaction: %w", err)
	}
	return &tx, nil
}

func (s *Store) List(ctx context.Context, filter ledger.TransactionFilter, opts ledger.ListOptions) ([]domain.Transaction, int64, error) {
	query := transactionQuery(filter)

	total, err := s.transactions.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: count transactions: %w", err)
	}

	sortField, ok := listSortFields[opts.SortBy]
	if !ok {
		sortField = "date"
	}
	order := -1
	if opts.SortAsc {
		order = 1
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}

	cur, err := s.transactions.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}}).
		SetSkip((page-1)*limit).
		SetLimit(limit))
	if err != nil {
		return nil, 0, fmt.Errorf("mongostore: list transactions: %w", err)
	}
	defer cur.Close(ctx)

	txs := []domain.Transaction{}
	if err := cur.All(ctx, &txs); err != nil {
		return nil, 0, fmt.Errorf("mongostore: decode transactions: %w", err)
	}
	return txs, total, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, upd ledger.TransactionUpdate) (*domain.Transaction, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Kind != nil {
		set["type"] = *upd.Kind
	}
	if upd.Amount != nil {
		set["amount"] = *upd.Amount
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.MerchantName != nil {
		set["merchantName"] = *upd.MerchantName
	}
	if upd.PaymentMethod != nil {
		set["paymentMethod"] = *upd.PaymentMethod
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}

	var tx domain.Transaction
	err := s.transactions.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: update transaction: %w", err)
	}
	return &tx, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	err := s.transactions.FindOneAndDelete(ctx, bson.M{"_id": id, "userId": ownerID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mongostore: delete transaction: %w", err)
	}
	return nil
}

func transactionQuery(filter ledger.TransactionFilter) bson.M {
	query := bson.M{"userId": filter.OwnerID}

	if filter.From != nil || filter.To != nil {
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		query["date"] = dateRange
	}
	if filter.Kind != nil {
		query["type"] = *filter.Kind
	}
	if filter.CategoryID != "" {
		query["category._id"] = filter.CategoryID
	}
	return query
}
