package adminstore_test

import (
	"errors"
	"testing"

	adminstore "github.com/dalemusser/chitfund/internal/app/store/admins"
	"github.com/dalemusser/chitfund/internal/testutil"
)

func TestEnsureBootstrap_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := adminstore.New(db)

	created, err := s.EnsureBootstrap(ctx, "Admin@Example.com", "Fund Admin", "first-password")
	if err != nil {
		t.Fatalf("EnsureBootstrap: %v", err)
	}
	if !created {
		t.Error("first bootstrap should create the admin")
	}

	created, err = s.EnsureBootstrap(ctx, "admin@example.com", "Fund Admin", "second-password")
	if err != nil {
		t.Fatalf("EnsureBootstrap: %v", err)
	}
	if created {
		t.Error("second bootstrap should not create another admin")
	}

	// the original password still works
	if _, _, err := s.Authenticate(ctx, "admin@example.com", "first-password"); err != nil {
		t.Errorf("Authenticate with original password: %v", err)
	}
}

func TestEnsureBootstrap_WeakPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := adminstore.New(db).EnsureBootstrap(ctx, "a@b.com", "A", "short")
	if !errors.Is(err, adminstore.ErrWeakPassword) {
		t.Errorf("err = %v, want ErrWeakPassword", err)
	}
}

func TestAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := adminstore.New(db)

	admin := fx.CreateAdmin(ctx, "admin@example.com", "correct-horse")

	tests := []struct {
		name      string
		email     string
		password  string
		wantErr   error
		wantFound bool
	}{
		{"valid", "ADMIN@example.com", "correct-horse", nil, true},
		{"wrong password", "admin@example.com", "nope-nope", adminstore.ErrBadCredentials, true},
		{"unknown email", "who@example.com", "correct-horse", adminstore.ErrBadCredentials, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := s.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if found != tt.wantFound {
				t.Errorf("found = %v, want %v", found, tt.wantFound)
			}
			if tt.wantErr == nil && got.ID != admin.ID {
				t.Errorf("ID = %v, want %v", got.ID, admin.ID)
			}
		})
	}
}

func TestSetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := adminstore.New(db)

	admin := fx.CreateAdmin(ctx, "admin@example.com", "old-password")
	if err := s.SetPassword(ctx, admin.ID, "new-password"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if _, _, err := s.Authenticate(ctx, "admin@example.com", "old-password"); !errors.Is(err, adminstore.ErrBadCredentials) {
		t.Errorf("old password should fail, err = %v", err)
	}
	if _, _, err := s.Authenticate(ctx, "admin@example.com", "new-password"); err != nil {
		t.Errorf("new password: %v", err)
	}
}
