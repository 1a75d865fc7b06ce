package members_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/chitfund/internal/app/features/members"
	chitstore "github.com/dalemusser/chitfund/internal/app/store/chits"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *members.Handler {
	return members.NewHandler(db, nil, nil, zap.NewNop())
}

func enrolled(t *testing.T, db *mongo.Database, id primitive.ObjectID) int {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	c, err := chitstore.New(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID(%s): %v", id.Hex(), err)
	}
	return c.EnrolledCount
}

func enroll(chitID primitive.ObjectID, slots int) map[string]any {
	return map[string]any{"chitId": chitID.Hex(), "slots": slots}
}

func createBody(chits ...map[string]any) map[string]any {
	return map[string]any{
		"name":    "Ravi  Kumar",
		"phone":   "+91 98450 12345",
		"email":   "Ravi@Example.com",
		"address": "12 MG Road",
		"chits":   chits,
	}
}

func post(t *testing.T, h *members.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.WithAdmin(testutil.JSONRequest(t, http.MethodPost, "/api/members", body)))
	return rec
}

func TestHandleCreate_EnrollsAndReservesSeats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold 50K", testutil.ChitOpts{})
	silver := fx.CreateChit(ctx, "Silver 20K", testutil.ChitOpts{})

	rec := post(t, h, createBody(enroll(gold.ID, 2), enroll(silver.ID, 0)))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var m models.Member
	testutil.DecodeEnvelope(t, rec, &m)
	if m.Name != "Ravi Kumar" || m.Phone != "+919845012345" || m.Email != "ravi@example.com" {
		t.Errorf("normalized member = %+v", m)
	}
	if len(m.Chits) != 2 {
		t.Fatalf("chits = %+v, want 2", m.Chits)
	}
	if a, _ := m.Assignment(gold.ID); a.Slots != 2 || a.Status != models.AssignmentActive {
		t.Errorf("gold assignment = %+v", a)
	}
	if a, _ := m.Assignment(silver.ID); a.Slots != 1 {
		t.Errorf("silver slots = %d, want default 1", a.Slots)
	}
	if enrolled(t, db, gold.ID) != 1 || enrolled(t, db, silver.ID) != 1 {
		t.Error("each chit should have one seat taken")
	}
}

func TestHandleCreate_FullChitRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	open := fx.CreateChit(ctx, "Open", testutil.ChitOpts{MembersLimit: 5})
	full := fx.CreateChit(ctx, "Full", testutil.ChitOpts{MembersLimit: 1})
	fx.CreateMember(ctx, "Meena", testutil.Enroll{ChitID: full.ID})

	rec := post(t, h, createBody(enroll(open.ID, 1), enroll(full.ID, 1)))
	testutil.AssertStatus(t, rec, http.StatusConflict)

	if n := enrolled(t, db, open.ID); n != 0 {
		t.Errorf("open chit enrolled = %d, want seat given back", n)
	}
	if n := enrolled(t, db, full.ID); n != 1 {
		t.Errorf("full chit enrolled = %d, want 1", n)
	}
	count, _ := db.Collection("members").CountDocuments(ctx, bson.M{"name": "Ravi Kumar"})
	if count != 0 {
		t.Error("member must not be written when a chit is full")
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	chitID := primitive.NewObjectID()

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"no chits", createBody(), "chits"},
		{"bad chit id", createBody(map[string]any{"chitId": "nope"}), "chits[0].chitId"},
		{"chit twice", createBody(enroll(chitID, 1), enroll(chitID, 1)), "chits[1].chitId"},
		{"bad assignment status", createBody(map[string]any{"chitId": chitID.Hex(), "status": "Gone"}), "chits[0].status"},
		{"short phone", func() map[string]any { b := createBody(enroll(chitID, 1)); b["phone"] = "12"; return b }(), "phone"},
		{"bad email", func() map[string]any { b := createBody(enroll(chitID, 1)); b["email"] = "ravi@"; return b }(), "email"},
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

func TestHandleUpdate_ReplacesChits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	silver := fx.CreateChit(ctx, "Silver", testutil.ChitOpts{})
	m := fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID, Slots: 1})
	joined, _ := m.Assignment(gold.ID)

	body := map[string]any{
		"status": "Inactive",
		"chits":  []map[string]any{enroll(gold.ID, 3), enroll(silver.ID, 1)},
	}
	req := testutil.JSONRequest(t, http.MethodPatch, "/api/members/"+m.ID.Hex(), body)
	req = testutil.WithChiURLParam(testutil.WithAdmin(req), "id", m.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var got models.Member
	testutil.DecodeEnvelope(t, rec, &got)
	if got.Status != models.MemberInactive {
		t.Errorf("status = %q", got.Status)
	}
	a, _ := got.Assignment(gold.ID)
	if a.Slots != 3 || a.JoinedAt.Sub(joined.JoinedAt).Abs() > time.Millisecond {
		t.Errorf("gold assignment = %+v, want 3 slots and original join date", a)
	}
	if enrolled(t, db, silver.ID) != 1 || enrolled(t, db, gold.ID) != 1 {
		t.Error("silver should gain a seat, gold keep its seat")
	}

	// dropping gold frees its seat
	body = map[string]any{"chits": []map[string]any{enroll(silver.ID, 1)}}
	req = testutil.JSONRequest(t, http.MethodPatch, "/api/members/"+m.ID.Hex(), body)
	req = testutil.WithChiURLParam(testutil.WithAdmin(req), "id", m.ID.Hex())
	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)
	if n := enrolled(t, db, gold.ID); n != 0 {
		t.Errorf("gold enrolled = %d, want 0", n)
	}

	body = map[string]any{"chits": []map[string]any{}}
	req = testutil.JSONRequest(t, http.MethodPatch, "/api/members/"+m.ID.Hex(), body)
	req = testutil.WithChiURLParam(testutil.WithAdmin(req), "id", m.ID.Hex())
	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestHandleDelete_ReleasesSeatsKeepsPayments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	m := fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID})
	fx.CreatePayment(ctx, gold.ID, m.ID, testutil.PaymentOpts{Paid: "5000"})

	req := testutil.WithChiURLParam(testutil.WithAdmin(httptest.NewRequest(http.MethodDelete, "/", nil)), "id", m.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)

	if n := enrolled(t, db, gold.ID); n != 0 {
		t.Errorf("enrolled = %d, want 0", n)
	}
	if n, _ := db.Collection("payments").CountDocuments(ctx, bson.M{"member_id": m.ID}); n != 1 {
		t.Errorf("payments = %d, want 1 kept", n)
	}

	rec = httptest.NewRecorder()
	h.HandleDelete(rec, req)
	testutil.AssertStatus(t, rec, http.StatusNotFound)
}

func TestServeList_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID})
	fx.CreateMember(ctx, "Meena")
	fx.CreateMember(ctx, "Ravindra")

	var page members.Page
	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/members?search=ravi", nil)))
	testutil.AssertStatus(t, rec, http.StatusOK)
	testutil.DecodeEnvelope(t, rec, &page)
	if page.Pagination.TotalItems != 2 {
		t.Errorf("search=ravi total = %d, want 2", page.Pagination.TotalItems)
	}

	rec = httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/members?chitId="+gold.ID.Hex(), nil)))
	testutil.DecodeEnvelope(t, rec, &page)
	if len(page.Items) != 1 || page.Items[0].Name != "Ravi" {
		t.Errorf("chitId filter = %+v", page.Items)
	}

	rec = httptest.NewRecorder()
	h.ServeList(rec, testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/api/members?chitId=xyz", nil)))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestServeWelcomeLetter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gold := fx.CreateChit(ctx, "Gold", testutil.ChitOpts{})
	m := fx.CreateMember(ctx, "Ravi", testutil.Enroll{ChitID: gold.ID, Slots: 2})

	req := testutil.WithChiURLParam(testutil.WithAdmin(httptest.NewRequest(http.MethodGet, "/", nil)), "id", m.ID.Hex())
	rec := httptest.NewRecorder()
	h.ServeWelcomeLetter(rec, req)
	testutil.AssertStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}
