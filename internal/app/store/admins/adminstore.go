// internal/app/store/admins/adminstore.go
package adminstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost for admin passwords.
const BcryptCost = 12

// MinPasswordLength is enforced on bootstrap and reset.
const MinPasswordLength = 8

var (
	ErrNotFound       = errors.New("admin not found")
	ErrWeakPassword   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrBadCredentials = errors.New("invalid email or password")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Admin, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up an admin by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Admin, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Admin, error) {
	var a models.Admin
	err := s.c.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Admin{}, ErrNotFound
	}
	if err != nil {
		return models.Admin{}, err
	}
	return a, nil
}

// Authenticate returns the admin when email and password match.
// Unknown emails and wrong passwords both yield ErrBadCredentials; found
// reports which case it was for audit logging.
func (s *Store) Authenticate(ctx context.Context, email, password string) (a models.Admin, found bool, err error) {
	a, err = s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return models.Admin{}, false, ErrBadCredentials
	}
	if err != nil {
		return models.Admin{}, false, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return models.Admin{}, true, ErrBadCredentials
	}
	return a, true, nil
}

// SetPassword replaces the admin's password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureBootstrap creates the admin account when no admin with email exists.
// An existing account is left untouched so a reset password survives
// restarts. created reports whether a new account was written.
func (s *Store) EnsureBootstrap(ctx context.Context, email, name, password string) (created bool, err error) {
	email = normalize.Email(email)
	if _, err := s.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	_, err = s.c.InsertOne(ctx, models.Admin{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         normalize.Name(name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			// another instance bootstrapped first
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
