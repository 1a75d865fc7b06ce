package inputval

import (
	"strings"
	"time"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the plain calendar date format accepted alongside RFC 3339.
const DateLayout = "2006-01-02"

// Err converts the failures into a validation error, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apierr.Validation(r.First(), r.Fields())
}

// ObjectID parses a required id (path parameter or body field). field names
// the parameter in the error.
func ObjectID(field, s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, apierr.Validation("Invalid "+field+".", map[string]string{field: "must be a 24 character hex id"})
	}
	return oid, nil
}

// OptionalObjectID parses a filter id. Blank yields nil; anything else must
// be a valid id.
func OptionalObjectID(field, s string) (*primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	oid, err := ObjectID(field, s)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// Date parses "YYYY-MM-DD" (midnight UTC) or an RFC 3339 timestamp.
// Blank yields the zero time.
func Date(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apierr.Validation("Invalid "+field+".", map[string]string{field: "must be YYYY-MM-DD or an RFC 3339 timestamp"})
}
