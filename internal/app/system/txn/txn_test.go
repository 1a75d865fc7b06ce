package txn_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/chitfund/internal/app/system/txn"
	"github.com/dalemusser/chitfund/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain failure", errors.New("chit not found"), false},
		{"standalone server", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"no such transaction", mongo.CommandError{Code: 51}, true},
		{"op not allowed in txn", mongo.CommandError{Code: 263}, true},
		{"wrapped command error", fmt.Errorf("detach chit: %w", mongo.CommandError{Code: 20}), true},
		{"duplicate key command error", mongo.CommandError{Code: 11000, Message: "transaction replica set"}, false},
		{"message with two markers", errors.New("transaction not supported on this deployment"), true},
		{"message with one marker", errors.New("session expired"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_WritesCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("txn_probe")
	err := txn.Run(ctx, db.Client(), zap.NewNop(), func(ctx context.Context) error {
		if _, err := coll.InsertOne(ctx, bson.M{"step": 1}); err != nil {
			return err
		}
		_, err := coll.InsertOne(ctx, bson.M{"step": 2})
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("documents = %d, want 2", n)
	}
}

func TestRun_ReturnsBodyError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	errStop := errors.New("stop")
	err := txn.Run(ctx, db.Client(), zap.NewNop(), func(ctx context.Context) error {
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Run error = %v, want %v", err, errStop)
	}
}
