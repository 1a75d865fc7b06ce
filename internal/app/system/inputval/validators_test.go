package inputval

import (
	"errors"
	"testing"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/domain/money"
)

type chitInput struct {
	Name         string       `json:"name" validate:"required,max=20" label:"Chit name"`
	Amount       money.Amount `json:"chitAmount" validate:"gt=0" label:"Chit amount"`
	MembersLimit int          `json:"membersLimit" validate:"min=2,max=100" label:"Members limit"`
	Status       string       `json:"status" validate:"omitempty,chitstatus" label:"Status"`
	Organiser    string       `json:"organiserEmail" validate:"omitempty,emailaddr" label:"Organiser email"`
}

func validChit() chitInput {
	return chitInput{Name: "Gold 1L", Amount: money.FromInt(100000), MembersLimit: 20, Status: "Upcoming"}
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*chitInput)
		wantField string
		wantFirst string
	}{
		{"valid", func(*chitInput) {}, "", ""},
		{"missing name", func(c *chitInput) { c.Name = "" }, "name", "Chit name is required."},
		{"long name", func(c *chitInput) { c.Name = "Gold scheme for the whole street" }, "name", "Chit name must be at most 20 characters."},
		{"zero amount", func(c *chitInput) { c.Amount = money.FromInt(0) }, "chitAmount", "Chit amount must be greater than 0."},
		{"too few members", func(c *chitInput) { c.MembersLimit = 1 }, "membersLimit", "Members limit must be at least 2."},
		{"unknown status", func(c *chitInput) { c.Status = "Paused" }, "status", "Status must be Upcoming, Ongoing, Active, Closed or Completed."},
		{"bad email", func(c *chitInput) { c.Organiser = "organiser at example" }, "organiserEmail", "A valid email address is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validChit()
			tt.mutate(&in)
			res := Validate(in)

			if tt.wantFirst == "" {
				if res.HasErrors() {
					t.Fatalf("unexpected errors: %v", res.Errors)
				}
				if res.Err() != nil {
					t.Fatalf("Err() = %v, want nil", res.Err())
				}
				return
			}
			if res.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", res.First(), tt.wantFirst)
			}
			if _, ok := res.Fields()[tt.wantField]; !ok {
				t.Errorf("Fields() = %v, want key %q", res.Fields(), tt.wantField)
			}

			var ae *apierr.Error
			if !errors.As(res.Err(), &ae) {
				t.Fatalf("Err() = %T, want *apierr.Error", res.Err())
			}
		})
	}
}

func TestResult_AllJoinsInOrder(t *testing.T) {
	in := validChit()
	in.Name, in.MembersLimit = "", 0

	res := Validate(in)
	want := "Chit name is required.; Members limit must be at least 2."
	if res.All() != want {
		t.Errorf("All() = %q, want %q", res.All(), want)
	}

	var empty *Result
	if empty.HasErrors() || empty.First() != "" || empty.All() != "" || empty.Fields() != nil {
		t.Error("nil Result should report nothing")
	}
}

func TestValidate_MemberStatus(t *testing.T) {
	type statusInput struct {
		Status string `json:"status" validate:"required,memberstatus" label:"Member status"`
	}
	if Validate(statusInput{Status: "Active"}).HasErrors() {
		t.Error("Active rejected")
	}
	if got := Validate(statusInput{Status: "Suspended"}).First(); got != "Member status must be Active or Inactive." {
		t.Errorf("First() = %q", got)
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type PaymentInput struct {
		ChitID string `json:"chitId" validate:"required,objectid" label:"Chit"`
		Month  string `json:"paymentMonth" validate:"required,yyyymm" label:"Payment month"`
		Mode   string `json:"paymentMode" validate:"required,paymentmode" label:"Payment mode"`
	}

	valid := PaymentInput{ChitID: "507f1f77bcf86cd799439011", Month: "2026-04", Mode: "Cash"}

	t.Run("valid", func(t *testing.T) {
		result := Validate(valid)
		if result.HasErrors() {
			t.Errorf("Validate(valid) has errors: %v", result.Errors)
		}
	})

	t.Run("invalid ObjectID", func(t *testing.T) {
		in := valid
		in.ChitID = "invalid-id"
		result := Validate(in)
		if result.First() != "Chit must be a valid ID." {
			t.Errorf("First() = %q", result.First())
		}
		if result.Fields()["chitId"] == "" {
			t.Errorf("expected error keyed by json name, got %v", result.Fields())
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		in := valid
		in.Month = "04-2026"
		result := Validate(in)
		if result.First() != "Payment month must be in YYYY-MM format." {
			t.Errorf("First() = %q", result.First())
		}
	})

	t.Run("invalid payment mode", func(t *testing.T) {
		in := valid
		in.Mode = "cheque"
		result := Validate(in)
		if result.First() != "Payment mode must be cash or online." {
			t.Errorf("First() = %q", result.First())
		}
	})
}

func TestValidate_NestedSlice(t *testing.T) {
	type slot struct {
		SlotNumber int `json:"slotNumber" validate:"min=1" label:"Slot number"`
	}
	type batch struct {
		Slots []slot `json:"slots" validate:"required,min=1,dive" label:"Slots"`
	}

	result := Validate(batch{Slots: []slot{{SlotNumber: 1}, {SlotNumber: 0}}})
	if !result.HasErrors() {
		t.Fatal("expected an error for slot 0")
	}
	if result.First() != "Slot number must be at least 1." {
		t.Errorf("First() = %q", result.First())
	}
	if _, ok := result.Fields()["slots[1].slotNumber"]; !ok {
		t.Errorf("expected field key slots[1].slotNumber, got %v", result.Fields())
	}
}

func TestValidate_AmountPrecision(t *testing.T) {
	type slotIn struct {
		Paid money.Amount `json:"paidAmount" validate:"gte=0" label:"Paid amount"`
	}
	type batchIn struct {
		Fee   money.Amount `json:"fee" label:"Fee"`
		Slots []slotIn     `json:"slots" validate:"dive"`
	}

	ok := Validate(batchIn{Fee: money.MustParse("10.50"), Slots: []slotIn{{Paid: money.MustParse("5000")}}})
	if ok.HasErrors() {
		t.Fatalf("unexpected errors: %v", ok.Errors)
	}

	res := Validate(batchIn{
		Fee: money.MustParse("1234567890123456789012345678901234567"),
		Slots: []slotIn{
			{Paid: money.MustParse("5000")},
			{Paid: money.MustParse("5000.0000000000000000000000000000000001")},
		},
	})
	fields := res.Fields()
	if fields["slots[1].paidAmount"] != "Paid amount must have at most 2 decimal places." {
		t.Errorf("slot field error = %q", fields["slots[1].paidAmount"])
	}
	if fields["fee"] != "Fee is too large." {
		t.Errorf("fee field error = %q", fields["fee"])
	}
	if _, bad := fields["slots[0].paidAmount"]; bad {
		t.Error("valid slot flagged")
	}
}
