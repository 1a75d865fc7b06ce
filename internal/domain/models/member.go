// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member statuses.
const (
	MemberActive   = "Active"
	MemberInactive = "Inactive"
)

// Chit assignment statuses.
const (
	AssignmentActive    = "Active"
	AssignmentCompleted = "Completed"
	AssignmentLeft      = "Left"
)

// Member is a person enrolled in one or more chits.
type Member struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	NameCI            string             `bson:"name_ci" json:"-"`
	Phone             string             `bson:"phone" json:"phone"`
	Email             string             `bson:"email,omitempty" json:"email,omitempty"`
	Address           string             `bson:"address,omitempty" json:"address,omitempty"`
	Status            string             `bson:"status" json:"status"` // Active | Inactive
	SecurityDocuments []string           `bson:"security_documents,omitempty" json:"securityDocuments,omitempty"`
	Chits             []ChitAssignment   `bson:"chits" json:"chits"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ChitAssignment is a member's enrollment in one chit.
// Slots is the number of shares held; zero in old documents means one.
type ChitAssignment struct {
	ChitID   primitive.ObjectID `bson:"chit_id" json:"chitId"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
	Status   string             `bson:"status" json:"status"` // Active | Completed | Left
	Slots    int                `bson:"slots" json:"slots"`
}

// Assignment returns the member's assignment for chitID, if any.
func (m Member) Assignment(chitID primitive.ObjectID) (ChitAssignment, bool) {
	for _, a := range m.Chits {
		if a.ChitID == chitID {
			return a, true
		}
	}
	return ChitAssignment{}, false
}
