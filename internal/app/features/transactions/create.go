// internal/app/features/transactions/create.go
package transactions

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/store/audit"
	transactionstore "github.com/dalemusser/chitfund/internal/app/store/transactions"
	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/auth"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/normalize"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"github.com/dalemusser/chitfund/internal/domain/money"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const txIDAttempts = 3

type createInput struct {
	Type    string       `json:"type" validate:"required,oneof=transaction transfer" label:"Type"`
	Amount  money.Amount `json:"amount" validate:"gt=0" label:"Amount"`
	Date    string       `json:"date" label:"Date"`
	Remarks string       `json:"remarks" validate:"max=500" label:"Remarks"`

	MemberID    string `json:"memberId" validate:"omitempty,objectid" label:"Member"`
	ChitID      string `json:"chitId" validate:"omitempty,objectid" label:"Chit"`
	PaymentMode string `json:"paymentMode" validate:"omitempty,paymentmode" label:"Payment mode"`

	FromMemberID string `json:"fromMemberId" validate:"omitempty,objectid" label:"From member"`
	ToMemberID   string `json:"toMemberId" validate:"omitempty,objectid" label:"To member"`
	FromChitID   string `json:"fromChitId" validate:"omitempty,objectid" label:"From chit"`
	ToChitID     string `json:"toChitId" validate:"omitempty,objectid" label:"To chit"`
}

// shape checks the field set that belongs to the type. The two sets are
// exclusive: a transfer carrying memberId is as wrong as a missing toMemberId.
func (in createInput) shape() error {
	fields := map[string]string{}
	need := func(name, v string) {
		if v == "" {
			fields[name] = "required for type " + in.Type
		}
	}
	forbid := func(name, v string) {
		if v != "" {
			fields[name] = "not allowed for type " + in.Type
		}
	}
	switch in.Type {
	case models.TransactionTypePayment:
		need("memberId", in.MemberID)
		need("chitId", in.ChitID)
		need("paymentMode", in.PaymentMode)
		forbid("fromMemberId", in.FromMemberID)
		forbid("toMemberId", in.ToMemberID)
		forbid("fromChitId", in.FromChitID)
		forbid("toChitId", in.ToChitID)
	case models.TransactionTypeTransfer:
		need("fromMemberId", in.FromMemberID)
		need("toMemberId", in.ToMemberID)
		need("fromChitId", in.FromChitID)
		need("toChitId", in.ToChitID)
		forbid("memberId", in.MemberID)
		forbid("chitId", in.ChitID)
		forbid("paymentMode", in.PaymentMode)
		if len(fields) == 0 && in.FromMemberID == in.ToMemberID && in.FromChitID == in.ToChitID {
			fields["toChitId"] = "must differ from the source"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return apierr.Validation(fmt.Sprintf("Invalid fields for a %s.", in.Type), fields)
}

func oid(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

// HandleCreate records a transaction or a transfer under the next TRN id.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in.Type = normalize.Lower(in.Type)
	in.PaymentMode = normalize.Lower(in.PaymentMode)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := in.shape(); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	date, err := inputval.Date("date", in.Date)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if date.IsZero() {
		date = h.now()
	}

	t := models.Transaction{
		Type:         in.Type,
		Amount:       in.Amount,
		Date:         date,
		Remarks:      htmlsanitize.Text(in.Remarks),
		MemberID:     oid(in.MemberID),
		ChitID:       oid(in.ChitID),
		PaymentMode:  in.PaymentMode,
		FromMemberID: oid(in.FromMemberID),
		ToMemberID:   oid(in.ToMemberID),
		FromChitID:   oid(in.FromChitID),
		ToChitID:     oid(in.ToChitID),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "transactions.create")
	defer cancel()

	if err := h.checkRefs(ctx, t); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	saved, err := h.insert(ctx, t)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, auth.ActorID(r), audit.EventTransactionCreated, audit.EntityTransaction, saved.ID,
		map[string]string{
			"transaction_id": saved.TransactionID,
			"type":           saved.Type,
			"amount":         saved.Amount.Format(),
		})
	respond.Created(w, "Transaction recorded.", saved)
}

// checkRefs makes sure every referenced member and chit exists.
func (h *Handler) checkRefs(ctx context.Context, t models.Transaction) error {
	for _, id := range []*primitive.ObjectID{t.MemberID, t.FromMemberID, t.ToMemberID} {
		if id == nil {
			continue
		}
		if _, err := h.Members.GetByID(ctx, *id); err != nil {
			return err
		}
	}
	for _, id := range []*primitive.ObjectID{t.ChitID, t.FromChitID, t.ToChitID} {
		if id == nil {
			continue
		}
		if _, err := h.Chits.GetByID(ctx, *id); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) insert(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < txIDAttempts; attempt++ {
		id, err := h.Counters.NextTransactionID(ctx)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("allocate transaction id: %w", err)
		}
		t.TransactionID = id
		saved, err := h.Transactions.Create(ctx, t)
		if !errors.Is(err, transactionstore.ErrDuplicateTxID) {
			return saved, err
		}
		h.Log.Warn("transaction id already used; drawing another", zap.String("transaction_id", id))
		lastErr = err
	}
	return models.Transaction{}, lastErr
}
