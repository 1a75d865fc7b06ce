// internal/app/store/payments/paymentstore.go
package paymentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicateSlot means an entry already exists for the same
	// (chit, member, month, slot). The existing entry is left untouched.
	ErrDuplicateSlot = errors.New("a payment for this slot and month already exists")
	// ErrDuplicateInvoice means the invoice number was already used; the
	// counter and the collection have drifted apart.
	ErrDuplicateInvoice = errors.New("invoice number already in use")
	// ErrAlreadyConfirmed is returned by Confirm for an entry already confirmed.
	ErrAlreadyConfirmed = errors.New("payment is already confirmed")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

// Insert writes one ledger entry. A unique index on
// (chit_id, member_id, payment_month, slot_number) turns a repeated slot into
// ErrDuplicateSlot.
func (s *Store) Insert(ctx context.Context, p models.Payment) (models.Payment, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.IsAdminConfirmed = false
	p.ConfirmedAt = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "invoice_number") {
				return models.Payment{}, ErrDuplicateInvoice
			}
			return models.Payment{}, ErrDuplicateSlot
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Payment, error) {
	var p models.Payment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Payment{}, ErrNotFound
	}
	if err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// Confirm flips is_admin_confirmed from false to true in one conditional
// update. Two concurrent confirms cannot both succeed.
func (s *Store) Confirm(ctx context.Context, id primitive.ObjectID) (models.Payment, error) {
	now := time.Now().UTC()
	var p models.Payment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_admin_confirmed": false},
		bson.M{"$set": bson.M{
			"is_admin_confirmed": true,
			"confirmed_at":       now,
			"updated_at":         now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Payment{}, err
	}
	n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return models.Payment{}, cerr
	}
	if n == 0 {
		return models.Payment{}, ErrNotFound
	}
	return models.Payment{}, ErrAlreadyConfirmed
}

// CountUnconfirmed returns how many entries await admin confirmation.
func (s *Store) CountUnconfirmed(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_admin_confirmed": false})
}

// CollectedForMonth sums paid_amount over every entry of the month.
func (s *Store) CollectedForMonth(ctx context.Context, month string) (money.Amount, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"payment_month": month}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$toDecimal", Value: "$paid_amount"}}}}},
		}}},
	})
	if err != nil {
		return money.Zero, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return money.Zero, cur.Err()
	}
	var row struct {
		Total money.Amount `bson:"total"`
	}
	if err := cur.Decode(&row); err != nil {
		return money.Zero, err
	}
	return row.Total, nil
}
