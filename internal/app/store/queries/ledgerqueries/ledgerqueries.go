// Package ledgerqueries reads payment entries enriched with their chit,
// member and derived status. Status, balance and totals are always computed
// at read time; values stored on the payment document are ignored.
package ledgerqueries

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/metrics"
	"github.com/dalemusser/chitfund/internal/app/system/paging"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Placeholders shown when a referenced document no longer exists.
const (
	DeletedMember = "(deleted member)"
	DeletedChit   = "(deleted chit)"
)

// MaxExportRows caps an unpaginated export.
const MaxExportRows = 10000

var ErrNotFound = errors.New("payment not found")

// Entry is a payment with everything a list, detail, export or invoice
// needs. The embedded Result is computed in Go and is authoritative.
type Entry struct {
	models.Payment `bson:",inline"`
	ledger.Result  `bson:"-"`

	ChitName       string       `bson:"chit_name" json:"chitName"`
	ChitDeleted    bool         `bson:"chit_deleted" json:"chitDeleted,omitempty"`
	MemberName     string       `bson:"member_name" json:"memberName"`
	MemberPhone    string       `bson:"member_phone" json:"memberPhone,omitempty"`
	MemberDeleted  bool         `bson:"member_deleted" json:"memberDeleted,omitempty"`
	MonthlyPayable money.Amount `bson:"monthly_payable" json:"monthlyPayableAmount"`
	Slots          int          `bson:"slots" json:"slots"`
	PaidSlotsCount int          `bson:"paid_slots_count" json:"paidSlotsCount"`

	// status as derived by the pipeline; used for filtering only
	PipelineStatus ledger.Status `bson:"status" json:"-"`
}

// Filter narrows List, Export and Count. Nil and empty values match all.
type Filter struct {
	ChitID      *primitive.ObjectID
	MemberID    *primitive.ObjectID
	PaymentMode string
	Status      ledger.Status
	Month       string
}

func (f Filter) raw() bson.M {
	m := bson.M{}
	if f.ChitID != nil {
		m["chit_id"] = *f.ChitID
	}
	if f.MemberID != nil {
		m["member_id"] = *f.MemberID
	}
	if f.PaymentMode != "" {
		m["payment_mode"] = f.PaymentMode
	}
	if f.Month != "" {
		m["payment_month"] = f.Month
	}
	return m
}

// Page is one page of entries.
type Page struct {
	Items      []Entry           `json:"items"`
	Pagination paging.Pagination `json:"pagination"`
}

// Service runs the ledger aggregations against the payments collection.
type Service struct {
	payments *mongo.Collection
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{payments: db.Collection("payments"), metrics: m, log: logger}
}

var newestFirst = bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}}

// enrichStages joins chit and member, extracts the member's slot count for
// the entry's chit, counts sibling entries and derives status.
func enrichStages(now time.Time) []bson.D {
	stages := []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "chits"},
			{Key: "localField", Value: "chit_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "_chit"},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "members"},
			{Key: "localField", Value: "member_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "_member"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "_chit", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$_chit", 0}}}},
			{Key: "_member", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$_member", 0}}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "chit_name", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$_chit.name", DeletedChit}}}},
			{Key: "chit_deleted", Value: bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$_chit"}}, "missing"}}}},
			{Key: "member_name", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$_member.name", DeletedMember}}}},
			{Key: "member_phone", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$_member.phone", ""}}}},
			{Key: "member_deleted", Value: bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$_member"}}, "missing"}}}},
			{Key: ledger.FieldMonthlyPayable, Value: "$_chit.monthly_payable_amount"},
			{Key: ledger.FieldSlots, Value: bson.D{{Key: "$let", Value: bson.D{
				{Key: "vars", Value: bson.D{{Key: "a", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{
					bson.D{{Key: "$filter", Value: bson.D{
						{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$_member.chits", bson.A{}}}}},
						{Key: "as", Value: "c"},
						{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$c.chit_id", "$chit_id"}}}},
					}}},
					0,
				}}}}}},
				{Key: "in", Value: bson.D{{Key: "$max", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$$a.slots", 1}}},
					1,
				}}}},
			}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "payments"},
			{Key: "let", Value: bson.D{
				{Key: "m", Value: "$member_id"},
				{Key: "c", Value: "$chit_id"},
				{Key: "mo", Value: "$payment_month"},
			}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$member_id", "$$m"}}},
					bson.D{{Key: "$eq", Value: bson.A{"$chit_id", "$$c"}}},
					bson.D{{Key: "$eq", Value: bson.A{"$payment_month", "$$mo"}}},
				}}}}}}},
				bson.D{{Key: "$count", Value: "n"}},
			}},
			{Key: "as", Value: "_siblings"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "paid_slots_count", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{"$_siblings.n", 0}}},
				0,
			}}}},
		}}},
	}
	stages = append(stages, ledger.StatusStages(now)...)
	stages = append(stages, bson.D{{Key: "$project", Value: bson.D{
		{Key: "_chit", Value: 0},
		{Key: "_member", Value: 0},
		{Key: "_siblings", Value: 0},
	}}})
	return stages
}

func pipeline(stages ...[]bson.D) mongo.Pipeline {
	var p mongo.Pipeline
	for _, group := range stages {
		p = append(p, group...)
	}
	return p
}

func statusMatch(st ledger.Status) []bson.D {
	if st == "" {
		return nil
	}
	return []bson.D{{{Key: "$match", Value: bson.D{{Key: ledger.FieldStatus, Value: string(st)}}}}}
}

func (s *Service) aggregate(ctx context.Context, op string, p mongo.Pipeline) (*mongo.Cursor, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAggregation(op, time.Since(start)) }()
	return s.payments.Aggregate(ctx, p, options.Aggregate().SetMaxTime(timeouts.Aggregate()))
}

// finish applies the authoritative Go computation to a decoded row.
func (s *Service) finish(e *Entry, now time.Time) {
	e.Result = ledger.Compute(ledger.Input{
		PaidAmount:     e.PaidAmount,
		PenaltyAmount:  e.PenaltyAmount,
		MonthlyPayable: e.MonthlyPayable,
		Slots:          e.Slots,
		DueDate:        e.DueDate,
		Now:            now,
	})
	if e.PipelineStatus != "" && e.PipelineStatus != e.Status {
		s.log.Warn("ledger status mismatch between pipeline and engine",
			zap.String("payment_id", e.ID.Hex()),
			zap.String("pipeline", string(e.PipelineStatus)),
			zap.String("engine", string(e.Status)))
	}
}

// List returns one page of enriched entries, newest first. The status filter
// applies to the derived status.
func (s *Service) List(ctx context.Context, f Filter, pg paging.Params, now time.Time) (Page, error) {
	pg = pg.Normalize()
	window := []bson.D{
		newestFirst,
		{{Key: "$skip", Value: pg.Skip()}},
		{{Key: "$limit", Value: int64(pg.Limit)}},
	}
	match := []bson.D{{{Key: "$match", Value: f.raw()}}}

	var p mongo.Pipeline
	if f.Status == "" {
		// without a derived-status filter only the page itself needs enriching
		p = pipeline(match, []bson.D{{{Key: "$facet", Value: bson.D{
			{Key: "items", Value: pipeline(window, enrichStages(now))},
			{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "n"}}}},
		}}}})
	} else {
		p = pipeline(match, enrichStages(now), statusMatch(f.Status), []bson.D{{{Key: "$facet", Value: bson.D{
			{Key: "items", Value: pipeline(window)},
			{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "n"}}}},
		}}}})
	}

	cur, err := s.aggregate(ctx, "list", p)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var out []struct {
		Items []Entry `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return Page{}, err
	}

	page := Page{Items: []Entry{}}
	var total int64
	if len(out) == 1 {
		page.Items = out[0].Items
		if len(out[0].Total) == 1 {
			total = out[0].Total[0].N
		}
	}
	for i := range page.Items {
		s.finish(&page.Items[i], now)
	}
	page.Pagination = paging.Build(pg, total)
	return page, nil
}

// Get returns one enriched entry.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID, now time.Time) (Entry, error) {
	p := pipeline([]bson.D{{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}}}}}, enrichStages(now))
	entries, err := s.run(ctx, "get", p, now)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// GetMany returns enriched entries for ids, newest first.
func (s *Service) GetMany(ctx context.Context, ids []primitive.ObjectID, now time.Time) ([]Entry, error) {
	if len(ids) == 0 {
		return []Entry{}, nil
	}
	p := pipeline(
		[]bson.D{{{Key: "$match", Value: bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}}}},
		enrichStages(now),
		[]bson.D{newestFirst},
	)
	return s.run(ctx, "get", p, now)
}

// Export returns every matching enriched entry, newest first, up to MaxExportRows.
func (s *Service) Export(ctx context.Context, f Filter, now time.Time) ([]Entry, error) {
	p := pipeline(
		[]bson.D{{{Key: "$match", Value: f.raw()}}},
		enrichStages(now),
		statusMatch(f.Status),
		[]bson.D{newestFirst, {{Key: "$limit", Value: MaxExportRows}}},
	)
	return s.run(ctx, "export", p, now)
}

// Count returns how many entries match f, including the derived status.
func (s *Service) Count(ctx context.Context, f Filter, now time.Time) (int64, error) {
	p := pipeline([]bson.D{{{Key: "$match", Value: f.raw()}}})
	if f.Status != "" {
		p = pipeline(p, enrichStages(now), statusMatch(f.Status))
	}
	p = append(p, bson.D{{Key: "$count", Value: "n"}})

	cur, err := s.aggregate(ctx, "count", p)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return 0, cur.Err()
	}
	var row struct {
		N int64 `bson:"n"`
	}
	if err := cur.Decode(&row); err != nil {
		return 0, err
	}
	return row.N, nil
}

func (s *Service) run(ctx context.Context, op string, p mongo.Pipeline, now time.Time) ([]Entry, error) {
	cur, err := s.aggregate(ctx, op, p)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		s.finish(&entries[i], now)
	}
	return entries, nil
}

// MonthSummary rolls up every slot entry of one month. It is computed with
// the same engine as a single entry, using the summed amounts against the
// member's full installment.
type MonthSummary struct {
	Month      string `json:"month"`
	EntryCount int    `json:"entryCount"`
	SlotsPaid  []int  `json:"slotsPaid"`
	ledger.Result
}

// History is a member's full record in one chit.
type History struct {
	MemberID   primitive.ObjectID `json:"memberId"`
	ChitID     primitive.ObjectID `json:"chitId"`
	MemberName string             `json:"memberName"`
	ChitName   string             `json:"chitName"`
	Entries    []Entry            `json:"entries"`
	Months     []MonthSummary     `json:"months"`
}

// History returns all entries of memberID in chitID, oldest month first,
// with per-month totals.
func (s *Service) History(ctx context.Context, memberID, chitID primitive.ObjectID, now time.Time) (History, error) {
	p := pipeline(
		[]bson.D{{{Key: "$match", Value: bson.D{{Key: "member_id", Value: memberID}, {Key: "chit_id", Value: chitID}}}}},
		enrichStages(now),
		[]bson.D{{{Key: "$sort", Value: bson.D{
			{Key: "payment_month", Value: 1},
			{Key: "slot_number", Value: 1},
			{Key: "created_at", Value: 1},
		}}}},
	)
	entries, err := s.run(ctx, "history", p, now)
	if err != nil {
		return History{}, err
	}

	h := History{MemberID: memberID, ChitID: chitID, Entries: entries, Months: summarize(entries, now)}
	if len(entries) > 0 {
		h.MemberName = entries[0].MemberName
		h.ChitName = entries[0].ChitName
	}
	return h, nil
}

func summarize(entries []Entry, now time.Time) []MonthSummary {
	type acc struct {
		paid, penalty money.Amount
		payable       money.Amount
		slots         int
		due           time.Time
		count         int
		slotsPaid     []int
	}
	byMonth := map[string]*acc{}
	var order []string
	for _, e := range entries {
		a, ok := byMonth[e.PaymentMonth]
		if !ok {
			a = &acc{paid: money.Zero, penalty: money.Zero, payable: e.MonthlyPayable, slots: e.Slots, due: e.DueDate}
			byMonth[e.PaymentMonth] = a
			order = append(order, e.PaymentMonth)
		}
		a.paid = a.paid.Add(e.PaidAmount.NonNegative())
		a.penalty = a.penalty.Add(e.PenaltyAmount.NonNegative())
		if e.DueDate.Before(a.due) {
			a.due = e.DueDate
		}
		a.count++
		a.slotsPaid = append(a.slotsPaid, e.SlotNumber)
	}
	sort.Strings(order)

	out := make([]MonthSummary, 0, len(order))
	for _, m := range order {
		a := byMonth[m]
		out = append(out, MonthSummary{
			Month:      m,
			EntryCount: a.count,
			SlotsPaid:  a.slotsPaid,
			Result: ledger.Compute(ledger.Input{
				PaidAmount:     a.paid,
				PenaltyAmount:  a.penalty,
				MonthlyPayable: a.payable,
				Slots:          a.slots,
				DueDate:        a.due,
				Now:            now,
			}),
		})
	}
	return out
}
