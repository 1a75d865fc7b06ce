package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures inserts test documents straight into the collections so store
// and handler tests can arrange state without going through the code under
// test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
	n  int
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// ChitOpts overrides CreateChit defaults.
type ChitOpts struct {
	MonthlyPayable string // default "5000"
	Amount         string // default "100000"
	MembersLimit   int    // default 20
	CycleDay       int    // default 10
	StartDate      time.Time
	Status         ledger.ChitStatus
}

// CreateChit inserts a chit. Zero-valued options take defaults.
func (f *Fixtures) CreateChit(ctx context.Context, name string, o ChitOpts) models.Chit {
	f.t.Helper()
	if o.MonthlyPayable == "" {
		o.MonthlyPayable = "5000"
	}
	if o.Amount == "" {
		o.Amount = "100000"
	}
	if o.MembersLimit == 0 {
		o.MembersLimit = 20
	}
	if o.CycleDay == 0 {
		o.CycleDay = 10
	}
	if o.StartDate.IsZero() {
		o.StartDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if o.Status == "" {
		o.Status = ledger.ChitOngoing
	}

	now := time.Now().UTC()
	c := models.Chit{
		ID:                   primitive.NewObjectID(),
		Name:                 name,
		NameCI:               text.Fold(name),
		Amount:               money.MustParse(o.Amount),
		MonthlyPayableAmount: money.MustParse(o.MonthlyPayable),
		Duration:             20,
		MembersLimit:         o.MembersLimit,
		StartDate:            o.StartDate,
		CycleDay:             o.CycleDay,
		Status:               o.Status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := f.db.Collection("chits").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("CreateChit(%q): %v", name, err)
	}
	return c
}

// Enroll is one chit assignment for CreateMember.
type Enroll struct {
	ChitID primitive.ObjectID
	Slots  int
}

// CreateMember inserts an active member enrolled in the given chits and
// bumps each chit's enrolled_count.
func (f *Fixtures) CreateMember(ctx context.Context, name string, enrolls ...Enroll) models.Member {
	f.t.Helper()
	f.n++
	now := time.Now().UTC()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Phone:     fmt.Sprintf("+9190000%05d", f.n),
		Email:     fmt.Sprintf("member%d@test.com", f.n),
		Status:    models.MemberActive,
		Chits:     []models.ChitAssignment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, e := range enrolls {
		m.Chits = append(m.Chits, models.ChitAssignment{
			ChitID: e.ChitID, JoinedAt: now, Status: models.AssignmentActive, Slots: e.Slots,
		})
		if _, err := f.db.Collection("chits").UpdateByID(ctx, e.ChitID, bson.M{"$inc": bson.M{"enrolled_count": 1}}); err != nil {
			f.t.Fatalf("CreateMember: bump chit: %v", err)
		}
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("CreateMember(%q): %v", name, err)
	}
	return m
}

// PaymentOpts describes a ledger entry for CreatePayment.
type PaymentOpts struct {
	Month      string // YYYY-MM, default "2025-03"
	Slot       int    // default 1
	Paid       string
	Penalty    string
	DueDate    time.Time // default: 10th of Month
	CreatedAt  time.Time // default: now
	Mode       string    // default cash
	Confirmed  bool
	RawStatus  string // stored legacy status; never trusted on read
	RawBalance string // stored legacy balance; never trusted on read
}

// CreatePayment inserts a ledger entry.
func (f *Fixtures) CreatePayment(ctx context.Context, chitID, memberID primitive.ObjectID, o PaymentOpts) models.Payment {
	f.t.Helper()
	f.n++
	if o.Month == "" {
		o.Month = "2025-03"
	}
	if o.Slot == 0 {
		o.Slot = 1
	}
	if o.Paid == "" {
		o.Paid = "0"
	}
	if o.Penalty == "" {
		o.Penalty = "0"
	}
	if o.Mode == "" {
		o.Mode = models.PaymentModeCash
	}
	month, err := ledger.ParseMonth(o.Month)
	if err != nil {
		f.t.Fatalf("CreatePayment: %v", err)
	}
	if o.DueDate.IsZero() {
		o.DueDate = ledger.DueDate(month, 10)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	p := models.Payment{
		ID:               primitive.NewObjectID(),
		ChitID:           chitID,
		MemberID:         memberID,
		PaymentMonth:     o.Month,
		PaymentYear:      month.Year(),
		SlotNumber:       o.Slot,
		PaidAmount:       money.MustParse(o.Paid),
		PenaltyAmount:    money.MustParse(o.Penalty),
		PaymentDate:      month,
		DueDate:          o.DueDate,
		PaymentMode:      o.Mode,
		InvoiceNumber:    fmt.Sprintf("INV-T%05d", f.n),
		IsAdminConfirmed: o.Confirmed,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.CreatedAt,
	}
	if _, err := f.db.Collection("payments").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("CreatePayment: %v", err)
	}
	if o.RawStatus != "" || o.RawBalance != "" {
		set := bson.M{}
		if o.RawStatus != "" {
			set["status"] = o.RawStatus
		}
		if o.RawBalance != "" {
			set["balance_amount"] = money.MustParse(o.RawBalance)
		}
		if _, err := f.db.Collection("payments").UpdateByID(ctx, p.ID, bson.M{"$set": set}); err != nil {
			f.t.Fatalf("CreatePayment: legacy fields: %v", err)
		}
	}
	return p
}

// CreateAdmin inserts an admin with a bcrypt hash of password.
func (f *Fixtures) CreateAdmin(ctx context.Context, email, password string) models.Admin {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("CreateAdmin: hash: %v", err)
	}
	now := time.Now().UTC()
	a := models.Admin{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         "Fund Admin",
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("admins").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("CreateAdmin: %v", err)
	}
	return a
}
