package entity

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Role string

const (
	RolePending   Role = "pending"
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
	RoleBlocked   Role = "blocked"
)

func (r Role) Valid() bool {
	switch r {
	case RolePending, RoleUser, RoleOrganizer, RoleAdmin, RoleBlocked:
		return true
	}
	return false
}

// CanParticipate reports whether the role may join events, car groups and chats.
func (r Role) CanParticipate() bool {
	return r == RoleUser || r == RoleOrganizer || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is owned by the identity collaborator. Only the fields used for notifications are read.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
	Role      Role               `bson:"role" json:"role"`
}

// DisplayName title-cases the first name, which the identity store keeps lowercase.
func (u *User) DisplayName() string {
	return cases.Title(language.Und).String(u.FirstName)
}

// Actor is the verified caller of an operation.
type Actor struct {
	UserID primitive.ObjectID
	Role   Role
}
