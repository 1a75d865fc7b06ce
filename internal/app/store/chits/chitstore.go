// internal/app/store/chits/chitstore.go
package chitstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("chit not found")
	// ErrChitFull is returned by Reserve when enrolled_count has reached members_limit.
	ErrChitFull = errors.New("chit has reached its members limit")
	// ErrLimitBelowEnrolled is returned when an update would set members_limit
	// below the number of members already enrolled.
	ErrLimitBelowEnrolled = errors.New("members limit cannot be lower than the number of enrolled members")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chits")}
}

// Create inserts a chit. Status is derived from the start date unless the
// requested status is Closed or Completed.
func (s *Store) Create(ctx context.Context, c models.Chit) (models.Chit, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.EnrolledCount = 0
	c.Status = ledger.ComputeChitStatus(c.StartDate, now, c.Status)
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Chit{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Chit, error) {
	var c models.Chit
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chit{}, ErrNotFound
	}
	if err != nil {
		return models.Chit{}, err
	}
	return c, nil
}

// GetByIDs loads chits keyed by ID. Missing IDs are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Chit, error) {
	out := make(map[primitive.ObjectID]models.Chit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var c models.Chit
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, cur.Err()
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Search string
	Status ledger.ChitStatus
}

// List returns one page of chits ordered by name, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Chit, int64, error) {
	p = p.Normalize()
	filter := bson.M{}
	if f.Search != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Search))}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	chits := []models.Chit{}
	if err := cur.All(ctx, &chits); err != nil {
		return nil, 0, err
	}
	return chits, total, nil
}

// Update holds the mutable fields; nil pointers are left unchanged.
type Update struct {
	Name                 *string
	Location             *string
	Amount               *money.Amount
	MonthlyPayableAmount *money.Amount
	Duration             *int
	MembersLimit         *int
	StartDate            *time.Time
	CycleDay             *int
	Status               *ledger.ChitStatus
}

// Update applies u and recomputes the status. The write is conditional on
// enrolled_count so a concurrent enrollment cannot slip past a lowered limit.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Chit, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Chit{}, err
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if u.Name != nil {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Amount != nil {
		set["amount"] = *u.Amount
	}
	if u.MonthlyPayableAmount != nil {
		set["monthly_payable_amount"] = *u.MonthlyPayableAmount
	}
	if u.Duration != nil {
		set["duration"] = *u.Duration
	}
	if u.CycleDay != nil {
		set["cycle_day"] = *u.CycleDay
	}
	start := cur.StartDate
	if u.StartDate != nil {
		start = *u.StartDate
		set["start_date"] = start
	}
	requested := cur.Status
	if u.Status != nil {
		requested = *u.Status
	}
	set["status"] = ledger.ComputeChitStatus(start, now, requested)

	filter := bson.M{"_id": id}
	if u.MembersLimit != nil {
		if *u.MembersLimit < cur.EnrolledCount {
			return models.Chit{}, ErrLimitBelowEnrolled
		}
		set["members_limit"] = *u.MembersLimit
		filter["enrolled_count"] = bson.M{"$lte": *u.MembersLimit}
	}

	var out models.Chit
	err = s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if u.MembersLimit != nil {
			return models.Chit{}, ErrLimitBelowEnrolled
		}
		return models.Chit{}, ErrNotFound
	}
	if err != nil {
		return models.Chit{}, err
	}
	return out, nil
}

// Delete removes the chit document only; callers cascade to members.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Reserve claims one seat in the chit. The increment only applies while
// enrolled_count < members_limit, so concurrent enrollments cannot overshoot.
func (s *Store) Reserve(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":   id,
			"$expr": bson.M{"$lt": bson.A{"$enrolled_count", "$members_limit"}},
		},
		bson.M{
			"$inc": bson.M{"enrolled_count": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrChitFull
}

// Release gives a seat back. It never takes enrolled_count below zero and
// ignores chits that no longer exist.
func (s *Store) Release(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "enrolled_count": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"enrolled_count": -1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// CountByStatus returns the number of chits per status.
func (s *Store) CountByStatus(ctx context.Context) (map[ledger.ChitStatus]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[ledger.ChitStatus]int64, len(ledger.ChitStatuses))
	for _, st := range ledger.ChitStatuses {
		out[st] = 0
	}
	for cur.Next(ctx) {
		var row struct {
			Status ledger.ChitStatus `bson:"_id"`
			N      int64             `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}
