// internal/app/store/otp/otpstore.go
package otpstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the reset code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a reset code is valid.
	DefaultExpiry = 10 * time.Minute
	// BcryptCost for hashing codes.
	BcryptCost = 10
	// MaxVerifyAttempts caps wrong guesses per code.
	MaxVerifyAttempts = 5
	// MaxResends caps how many codes one email can request per ResendWindow.
	MaxResends   = 3
	ResendWindow = 10 * time.Minute
)

var (
	ErrNotFound        = errors.New("reset code not found or expired")
	ErrInvalidCode     = errors.New("invalid reset code")
	ErrTooManyAttempts = errors.New("too many attempts; request a new code")
	ErrTooManyResends  = errors.New("too many reset requests; try again later")
)

// Code is a pending password reset. The plain code is never stored.
type Code struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	AdminID     primitive.ObjectID `bson:"admin_id"`
	Email       string             `bson:"email"`
	CodeHash    string             `bson:"code_hash"`
	Token       string             `bson:"token"`      // reset link token
	ExpiresAt   time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt   time.Time          `bson:"created_at"`
	Attempts    int                `bson:"attempts"`
	ResendCount int                `bson:"resend_count"`
	WindowStart time.Time          `bson:"window_start"`
}

type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. A zero or negative expiry uses DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("otp_codes"), expiry: expiry, now: time.Now}
}

func (s *Store) Expiry() time.Duration { return s.expiry }

// Issued is what the caller emails to the admin.
type Issued struct {
	Code        string
	Token       string
	ExpiresAt   time.Time
	ResendCount int
}

// Issue replaces any pending code for email with a fresh one. Requests
// beyond MaxResends inside ResendWindow fail with ErrTooManyResends.
func (s *Store) Issue(ctx context.Context, adminID primitive.ObjectID, email string) (*Issued, error) {
	email = normalize.Email(email)
	now := s.now().UTC()

	var existing Code
	err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	found := err == nil
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	resendCount := 0
	windowStart := now
	if found && now.Before(existing.WindowStart.Add(ResendWindow)) {
		if existing.ResendCount >= MaxResends {
			return nil, ErrTooManyResends
		}
		windowStart = existing.WindowStart
		resendCount = existing.ResendCount + 1
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return nil, err
	}
	c := Code{
		ID:          primitive.NewObjectID(),
		AdminID:     adminID,
		Email:       email,
		CodeHash:    string(hash),
		Token:       uuid.NewString(),
		ExpiresAt:   now.Add(s.expiry),
		CreatedAt:   now,
		ResendCount: resendCount,
		WindowStart: windowStart,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("insert reset code: %w", err)
	}
	return &Issued{Code: code, Token: c.Token, ExpiresAt: c.ExpiresAt, ResendCount: resendCount}, nil
}

// Verify checks code for email and consumes it on success. Every attempt,
// right or wrong, counts toward MaxVerifyAttempts.
func (s *Store) Verify(ctx context.Context, email, code string) (*Code, error) {
	var c Code
	err := s.c.FindOne(ctx, bson.M{
		"email":      normalize.Email(email),
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.Attempts >= MaxVerifyAttempts {
		return nil, ErrTooManyAttempts
	}

	_, _ = s.c.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$inc": bson.M{"attempts": 1}})

	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) != nil {
		return nil, ErrInvalidCode
	}
	_, _ = s.c.DeleteOne(ctx, bson.M{"_id": c.ID})
	return &c, nil
}

// VerifyToken consumes the code identified by a reset link token.
func (s *Store) VerifyToken(ctx context.Context, token string) (*Code, error) {
	var c Code
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token":      token,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
