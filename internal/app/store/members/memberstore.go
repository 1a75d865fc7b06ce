// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("member not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// Create inserts a member. Chit capacity must already be reserved by the caller.
func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.Name = normalize.Name(m.Name)
	m.NameCI = text.Fold(m.Name)
	m.Email = normalize.Email(m.Email)
	m.Phone = normalize.Phone(m.Phone)
	if m.Status == "" {
		m.Status = models.MemberActive
	}
	if m.Chits == nil {
		m.Chits = []models.ChitAssignment{}
	}
	for i := range m.Chits {
		if m.Chits[i].JoinedAt.IsZero() {
			m.Chits[i].JoinedAt = now
		}
		if m.Chits[i].Status == "" {
			m.Chits[i].Status = models.AssignmentActive
		}
		if m.Chits[i].Slots < 1 {
			m.Chits[i].Slots = 1
		}
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// GetByIDs loads members keyed by ID. Missing IDs are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Member, error) {
	out := make(map[primitive.ObjectID]models.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var m models.Member
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, cur.Err()
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Search string // name fragment or phone digits
	Status string
	ChitID *primitive.ObjectID
}

// List returns one page of members ordered by name, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) ([]models.Member, int64, error) {
	p = p.Normalize()
	filter := bson.M{}
	if f.Search != "" {
		or := bson.A{bson.M{"name_ci": bson.M{"$regex": regexp.QuoteMeta(text.Fold(f.Search))}}}
		if digits := normalize.Phone(f.Search); len(digits) >= 3 {
			or = append(or, bson.M{"phone": bson.M{"$regex": regexp.QuoteMeta(digits)}})
		}
		filter["$or"] = or
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ChitID != nil {
		filter["chits.chit_id"] = *f.ChitID
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
	members := []models.Member{}
	if err := cur.All(ctx, &members); err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// ListByChit returns every member assigned to chitID, ordered by name.
func (s *Store) ListByChit(ctx context.Context, chitID primitive.ObjectID) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, bson.M{"chits.chit_id": chitID},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	members := []models.Member{}
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Update holds the mutable fields; nil pointers are left unchanged.
// Chits replaces the whole assignment list.
type Update struct {
	Name              *string
	Phone             *string
	Email             *string
	Address           *string
	Status            *string
	SecurityDocuments *[]string
	Chits             *[]models.ChitAssignment
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Member, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		name := normalize.Name(*u.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if u.Phone != nil {
		set["phone"] = normalize.Phone(*u.Phone)
	}
	if u.Email != nil {
		set["email"] = normalize.Email(*u.Email)
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.SecurityDocuments != nil {
		set["security_documents"] = *u.SecurityDocuments
	}
	if u.Chits != nil {
		chits := *u.Chits
		if chits == nil {
			chits = []models.ChitAssignment{}
		}
		set["chits"] = chits
	}

	var out models.Member
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	return out, nil
}

// Delete removes a member and returns the deleted document so the caller can
// release chit seats. Payments referencing the member are kept.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	var m models.Member
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, ErrNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// DetachChit pulls chitID from every member's assignments and deletes the
// members that were left with no chits at all. It returns how many members
// were detached and how many were deleted.
func (s *Store) DetachChit(ctx context.Context, chitID primitive.ObjectID) (detached, deleted int64, err error) {
	ids, err := s.idsInChit(ctx, chitID)
	if err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$pull": bson.M{"chits": bson.M{"chit_id": chitID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return 0, 0, err
	}
	del, err := s.c.DeleteMany(ctx, bson.M{
		"_id":   bson.M{"$in": ids},
		"chits": bson.M{"$size": 0},
	})
	if err != nil {
		return res.ModifiedCount, 0, err
	}
	return res.ModifiedCount, del.DeletedCount, nil
}

func (s *Store) idsInChit(ctx context.Context, chitID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"chits.chit_id": chitID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// CountByStatus returns the number of members with the given status.
func (s *Store) CountByStatus(ctx context.Context, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": status})
}
