// Package counterstore hands out gap-tolerant sequential numbers for
// human-facing identifiers such as invoice and transaction numbers.
package counterstore

import (
	"context"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sequence names.
const (
	Invoice     = "invoice"
	Transaction = "transaction"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("counters")}
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// Next atomically increments the named sequence and returns the new value.
// The first call for a name returns 1. A number handed out to a write that
// later fails is not reused.
func (s *Store) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var c counter
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&c)
	if err != nil && wafflemongo.IsDup(err) {
		// two first-time upserts raced; the document exists now
		err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&c)
	}
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return c.Seq, nil
}

// NextInvoiceNumber returns the next "INV-000123" style number.
func (s *Store) NextInvoiceNumber(ctx context.Context) (string, error) {
	n, err := s.Next(ctx, Invoice)
	if err != nil {
		return "", err
	}
	return FormatInvoice(n), nil
}

// NextTransactionID returns the next "TRN001" style identifier.
func (s *Store) NextTransactionID(ctx context.Context) (string, error) {
	n, err := s.Next(ctx, Transaction)
	if err != nil {
		return "", err
	}
	return FormatTransaction(n), nil
}

func FormatInvoice(n int64) string     { return fmt.Sprintf("INV-%06d", n) }
func FormatTransaction(n int64) string { return fmt.Sprintf("TRN%03d", n) }
