// Package validators creates the collections and attaches $jsonSchema
// validators to the ones that hold ledger data.
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/chitfund/internal/domain/ledger"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collections lists every collection in creation order. A nil schema means
// the collection is only created, so multi-document transactions can write
// to it on first use.
var collections = []struct {
	name   string
	schema func() bson.M
}{
	{"chits", chitsSchema},
	{"members", membersSchema},
	{"payments", paymentsSchema},
	{"transactions", transactionsSchema},
	{"admins", adminsSchema},
	{"counters", nil},
	{"otp_codes", nil},
	{"audit_events", nil},
}

// EnsureAll is idempotent. Servers that refuse collMod validators (some
// hosted tiers and emulators) get the collections without them.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing := map[string]bool{}
	if names, err := db.ListCollectionNames(ctx, bson.M{}); err == nil {
		for _, n := range names {
			existing[n] = true
		}
	}

	var problems []string
	for _, c := range collections {
		if !existing[c.name] {
			if err := db.CreateCollection(ctx, c.name); err != nil && !hasCode(err, []int32{48}, "already exists", "namespace exists") {
				problems = append(problems, c.name+": "+err.Error())
				continue
			}
			zap.L().Info("created collection", zap.String("collection", c.name))
		}
		if c.schema == nil {
			continue
		}

		cmd := bson.D{
			{Key: "collMod", Value: c.name},
			{Key: "validator", Value: c.schema()},
			{Key: "validationLevel", Value: "moderate"},
			{Key: "validationAction", Value: "error"},
		}
		err := db.RunCommand(ctx, cmd).Err()
		switch {
		case err == nil:
			zap.L().Debug("validator ensured", zap.String("collection", c.name))
		case hasCode(err, []int32{59, 115}, "no such command", "not implemented", "not supported"):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// hasCode matches a server error by code or, for proxies that rewrite codes,
// by message fragment.
func hasCode(err error, codes []int32, fragments ...string) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

var (
	nonBlank  = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	amount    = bson.M{"bsonType": bson.A{"decimal", "double", "int", "long"}, "minimum": 0}
	objectID  = bson.M{"bsonType": "objectId"}
	optObjID  = bson.M{"bsonType": bson.A{"objectId", "null"}}
	timestamp = bson.M{"bsonType": "date"}
)

func chitStatuses() bson.A {
	out := bson.A{}
	for _, s := range ledger.ChitStatuses {
		out = append(out, string(s))
	}
	return out
}

func chitsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "amount", "monthly_payable_amount", "members_limit", "start_date", "cycle_day", "status"},
			"properties": bson.M{
				"name":                   nonBlank,
				"name_ci":                nonBlank,
				"amount":                 amount,
				"monthly_payable_amount": amount,
				"duration":               bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"members_limit":          bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"enrolled_count":         bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"start_date":             timestamp,
				"cycle_day":              bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 31},
				"status":                 bson.M{"enum": chitStatuses()},
			},
		},
	}
}

func membersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "phone", "status", "chits"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
				"phone":   nonBlank,
				"status":  bson.M{"enum": bson.A{models.MemberActive, models.MemberInactive}},
				"chits": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"chit_id", "status"},
						"properties": bson.M{
							"chit_id": objectID,
							"status":  bson.M{"enum": bson.A{models.AssignmentActive, models.AssignmentCompleted, models.AssignmentLeft}},
							"slots":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
						},
					},
				},
			},
		},
	}
}

func paymentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"chit_id", "member_id", "payment_month", "slot_number", "paid_amount", "payment_mode", "invoice_number"},
			"properties": bson.M{
				"chit_id":            objectID,
				"member_id":          objectID,
				"payment_month":      bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-(0[1-9]|1[0-2])$"},
				"slot_number":        bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"paid_amount":        amount,
				"penalty_amount":     amount,
				"payment_mode":       bson.M{"enum": bson.A{models.PaymentModeCash, models.PaymentModeOnline}},
				"invoice_number":     nonBlank,
				"is_admin_confirmed": bson.M{"bsonType": "bool"},
			},
		},
	}
}

// transactionsSchema keeps the two field sets apart: a "transaction" may not
// carry transfer fields and a "transfer" may not carry member/chit fields.
func transactionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"transaction_id", "type", "amount", "date"},
			"properties": bson.M{
				"transaction_id": bson.M{"bsonType": "string", "pattern": "^TRN[0-9]{3,}$"},
				"type":           bson.M{"enum": bson.A{models.TransactionTypePayment, models.TransactionTypeTransfer}},
				"amount":         amount,
				"date":           timestamp,
				"member_id":      optObjID,
				"chit_id":        optObjID,
				"from_member_id": optObjID,
				"to_member_id":   optObjID,
				"from_chit_id":   optObjID,
				"to_chit_id":     optObjID,
			},
			"oneOf": bson.A{
				bson.M{
					"properties": bson.M{"type": bson.M{"enum": bson.A{models.TransactionTypePayment}}},
					"required":   bson.A{"member_id", "chit_id"},
					"not": bson.M{"anyOf": bson.A{
						bson.M{"required": bson.A{"from_member_id"}},
						bson.M{"required": bson.A{"to_member_id"}},
					}},
				},
				bson.M{
					"properties": bson.M{"type": bson.M{"enum": bson.A{models.TransactionTypeTransfer}}},
					"required":   bson.A{"from_member_id", "to_member_id"},
					"not": bson.M{"anyOf": bson.A{
						bson.M{"required": bson.A{"member_id"}},
						bson.M{"required": bson.A{"chit_id"}},
					}},
				},
			},
		},
	}
}

func adminsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash"},
			"properties": bson.M{
				"email":         nonBlank,
				"password_hash": nonBlank,
			},
		},
	}
}
