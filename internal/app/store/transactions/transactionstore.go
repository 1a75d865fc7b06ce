// internal/app/store/transactions/transactionstore.go
package transactionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrDuplicateTxID = errors.New("transaction id already in use")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transactions")}
}

// Create inserts t. TransactionID must already be allocated.
func (s *Store) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Transaction{}, ErrDuplicateTxID
		}
		return models.Transaction{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Transaction, error) {
	var t models.Transaction
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// ListFilter narrows List. MemberID and ChitID match either side of a transfer.
type ListFilter struct {
	Type     string
	MemberID *primitive.ObjectID
	ChitID   *primitive.ObjectID
}

func (f ListFilter) toFilter() bson.M {
	filter := bson.M{}
	var and bson.A
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.MemberID != nil {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"member_id": *f.MemberID},
			bson.M{"from_member_id": *f.MemberID},
			bson.M{"to_member_id": *f.MemberID},
		}})
	}
	if f.ChitID != nil {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"chit_id": *f.ChitID},
			bson.M{"from_chit_id": *f.ChitID},
			bson.M{"to_chit_id": *f.ChitID},
		}})
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

// List returns one page, newest first, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Transaction, int64, error) {
	p = p.Normalize()
	filter := f.toFilter()
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	items := []models.Transaction{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
