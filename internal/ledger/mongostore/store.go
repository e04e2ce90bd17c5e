// Package mongostore implements the ledger interfaces on MongoDB.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	transactionsCollection = "transactions"
	categoriesCollection   = "categories"
)

// Store holds the collection handles for one database.
type Store struct {
	transactions *mongo.Collection
	categories   *mongo.Collection
}

// Connect dials MongoDB, verifies the connection and returns a Store bound to
// the named database.
func Connect(ctx context.Context, uri, database string) (*Store, *mongo.Client, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("mongostore: MONGO_URI not set")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	return New(client.Database(database)), client, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{
		transactions: db.Collection(transactionsCollection),
		categories:   db.Collection(categoriesCollection),
	}
}

// EnsureIndexes creates the indexes the data model relies on: the owner+date
// scan index on transactions and the uniqueness constraint on category names.
// A null ownerId participates in the unique key, so global names are unique
// among themselves and the lazy Uncategorized creation race resolves to a
// duplicate-key error.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongostore: transactions index: %w", err)
	}

	_, err = s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "ownerId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongostore: categories index: %w", err)
	}

	return nil
}
