package transactions_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/app/features/transactions"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)

func newHandler(db *mongo.Database) *transactions.Handler {
	h := transactions.NewHandler(db, nil, zap.NewNop())
	h.Now = func() time.Time { return now }
	return h
}

func post(t *testing.T, h *transactions.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPost, "/api/transactions", body)))
	return rec
}

func TestHandleCreate_SequentialIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	silver := fx.CreateChit(ctx, "Silver", testutil.ChitOpts{})
	ravi := fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID})
	meena := fx.CreateMember(ctx, "Meena", testutil.Enroll{ChitID: silver.ID})

	rec := post(t, h, map[string]any{
		"type": "transaction", "amount": 5000, "memberId": ravi.ID.Hex(),
		"chitId": gold.ID.Hex(), "paymentMode": "Cash",
	})
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var first models.Transaction
	testutil.DecodeEnvelope(t, rec, &first)
	if first.TransactionID != "TRN001" {
		t.Errorf("first id = %q, want TRN001", first.TransactionID)
	}
	if first.PaymentMode != "cash" || !first.Date.Equal(now) {
		t.Errorf("first = %+v", first)
	}

	rec = post(t, h, map[string]any{
		"type": "transfer", "amount": "2500.50", "date": "2025-03-01",
		"fromMemberId": ravi.ID.Hex(), "toMemberId": meena.ID.Hex(),
		"fromChitId": gold.ID.Hex(), "toChitId": silver.ID.Hex(),
	})
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var second models.Transaction
	testutil.DecodeEnvelope(t, rec, &second)
	if second.TransactionID != "TRN002" || second.MemberID != nil || second.ToChitID == nil {
		t.Errorf("second = %+v", second)
	}
	if second.Amount.Format() != "2500.50" {
		t.Errorf("amount = %s", second.Amount.Format())
	}
}

func TestHandleCreate_FieldSets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	a, b := primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown type", map[string]any{"type": "refund", "amount": 1}, "type"},
		{"zero amount", map[string]any{"type": "transaction", "amount": 0, "memberId": a, "chitId": b, "paymentMode": "cash"}, "amount"},
		{"transaction missing chit", map[string]any{"type": "transaction", "amount": 1, "memberId": a, "paymentMode": "cash"}, "chitId"},
		{"transaction with transfer field", map[string]any{"type": "transaction", "amount": 1, "memberId": a, "chitId": b, "paymentMode": "cash", "toMemberId": b}, "toMemberId"},
		{"transfer with payment mode", map[string]any{"type": "transfer", "amount": 1, "fromMemberId": a, "toMemberId": b, "fromChitId": a, "toChitId": b, "paymentMode": "cash"}, "paymentMode"},
		{"transfer to itself", map[string]any{"type": "transfer", "amount": 1, "fromMemberId": a, "toMemberId": a, "fromChitId": b, "toChitId": b}, "toChitId"},
		{"bad member id", map[string]any{"type": "transaction", "amount": 1, "memberId": "x", "chitId": b, "paymentMode": "cash"}, "memberId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			testutil.AssertStatus(t, rec, http.StatusBadRequest)
			env := testutil.DecodeEnvelope(t, rec, nil)
			if env.Error == nil {
				t.Fatal("missing error")
			}
			if _, ok := env.Error.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", env.Error.Fields, tt.field)
			}
		})
	}
}

func TestHandleCreate_UnknownMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})

	rec := post(t, h, map[string]any{
		"type": "transaction", "amount": 10, "memberId": primitive.NewObjectID().Hex(),
		"chitId": gold.ID.Hex(), "paymentMode": "online",
	})
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeList_MemberMatchesEitherSide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	silver := fx.CreateChit(ctx, "Silver", testutil.ChitOpts{})
	ravi := fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID})
	meena := fx.CreateMember(ctx, "Meena", testutil.Enroll{ChitID: silver.ID})

	post(t, h, map[string]any{"type": "transaction", "amount": 1, "memberId": ravi.ID.Hex(), "chitId": gold.ID.Hex(), "paymentMode": "cash"})
	post(t, h, map[string]any{"type": "transaction", "amount": 1, "memberId": meena.ID.Hex(), "chitId": silver.ID.Hex(), "paymentMode": "cash"})
	post(t, h, map[string]any{"type": "transfer", "amount": 1, "fromMemberId": meena.ID.Hex(), "toMemberId": ravi.ID.Hex(), "fromChitId": silver.ID.Hex(), "toChitId": gold.ID.Hex()})

	var page transactions.Page
	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/transactions?memberId="+ravi.ID.Hex(), nil)))
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeEnvelope(t, rec, &page)
	if page.Pagination.TotalItems != 2 {
		t.Errorf("ravi total = %d, want 2", page.Pagination.TotalItems)
	}

	rec = httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/transactions?type=transfer", nil)))
	testutil.DecodeEnvelope(t, rec, &page)
	if len(page.Items) != 1 || page.Items[0].Type != models.TransactionTypeTransfer {
		t.Errorf("transfers = %+v", page.Items)
	}

	rec = httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/transactions?type=refund", nil)))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	id := page.Items[0].ID.Hex()
	req := testutil.WithChiURLParam(testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/", nil)), "id", id)
	rec = httptest.NewRecorder()
	h.ServeGet(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)
}
