// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names referenced by stores and tests.
const (
	PaymentSlotUnique    = "uniq_payments_chit_member_month_slot"
	PaymentInvoiceUnique = "uniq_payments_invoice"
	TransactionIDUnique  = "uniq_transactions_trnid"
	AdminEmailUnique     = "uniq_admins_email"
	OTPExpiryTTL         = "ttl_otp_expires_at"
)

/*
EnsureAll is called at startup. Each collection's set is reconciled
independently and errors are aggregated so every problem is visible and
startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"payments", paymentIndexes()},
		{"chits", chitIndexes()},
		{"members", memberIndexes()},
		{"transactions", transactionIndexes()},
		{"admins", adminIndexes()},
		{"otp_codes", otpIndexes()},
		{"audit_events", auditIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

type desired struct {
	name   string
	sig    string
	unique bool
	ttl    int32 // -1 when not a TTL index
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func describe(m mongo.IndexModel) desired {
	d := desired{sig: keySig(m.Keys.(bson.D)), ttl: -1}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		if m.Options.Unique != nil {
			d.unique = *m.Options.Unique
		}
		if m.Options.ExpireAfterSeconds != nil {
			d.ttl = *m.Options.ExpireAfterSeconds
		}
	}
	return d
}

func (d desired) matches(ex existingIndex) bool {
	exUnique := ex.Unique != nil && *ex.Unique
	exTTL := int32(-1)
	if ex.ExpireAfterSeconds != nil {
		exTTL = *ex.ExpireAfterSeconds
	}
	return d.unique == exUnique && d.ttl == exTTL
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes, reuses matching ones, and drops
// and recreates an index whose key pattern matches but whose name or
// options (unique, TTL) differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// a collection that does not exist yet has no indexes to reconcile
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		d := describe(m)
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
		}

		if ex, ok := existing[d.sig]; ok {
			if d.matches(ex) && (d.name == "" || d.name == ex.Name) {
				zap.L().Debug("reusing existing index", fields...)
				continue
			}
			zap.L().Info("replacing index with different name or options",
				append(fields, zap.String("existing_name", ex.Name))...)
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), d.name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if d.unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index, duplicates present on %s",
					coll.Name(), d.name, d.sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			}
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func paymentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// One entry per (chit, member, month, slot). Concurrent duplicate
		// submissions lose here.
		{
			Keys: bson.D{
				{Key: "chit_id", Value: 1},
				{Key: "member_id", Value: 1},
				{Key: "payment_month", Value: 1},
				{Key: "slot_number", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName(PaymentSlotUnique),
		},
		{
			Keys:    bson.D{{Key: "invoice_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(PaymentInvoiceUnique),
		},
		// Default list order.
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_payments_created_id"),
		},
		// History and per-member filters.
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "chit_id", Value: 1}, {Key: "payment_month", Value: 1}},
			Options: options.Index().SetName("idx_payments_member_chit_month"),
		},
		{
			Keys:    bson.D{{Key: "chit_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_payments_chit_created"),
		},
		{
			Keys:    bson.D{{Key: "is_admin_confirmed", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_payments_confirmed_created"),
		},
		{
			Keys:    bson.D{{Key: "payment_month", Value: 1}},
			Options: options.Index().SetName("idx_payments_month"),
		},
	}
}

func chitIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_chits_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_chits_status_nameci"),
		},
	}
}

func memberIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_members_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_members_status_nameci"),
		},
		// Enrollment lookups ($lookup slot extraction, chit member lists).
		{
			Keys:    bson.D{{Key: "chits.chit_id", Value: 1}},
			Options: options.Index().SetName("idx_members_chits_chitid"),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetName("idx_members_phone"),
		},
	}
}

func transactionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(TransactionIDUnique),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_transactions_type_date"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_transactions_member_date"),
		},
		{
			Keys:    bson.D{{Key: "chit_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_transactions_chit_date"),
		},
	}
}

func adminIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(AdminEmailUnique),
		},
	}
}

func otpIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Mongo's TTL monitor removes codes once expires_at passes.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName(OTPExpiryTTL),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_otp_email_created"),
		},
	}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_entity_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	}
}
