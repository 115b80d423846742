package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Attendance string

const (
	AttendancePending Attendance = "pending"
	AttendanceShow    Attendance = "show"
	AttendanceNoShow  Attendance = "no-show"
	AttendanceExcused Attendance = "excused"
)

func (a Attendance) Valid() bool {
	switch a {
	case AttendancePending, AttendanceShow, AttendanceNoShow, AttendanceExcused:
		return true
	}
	return false
}

// Attendee links a user to an event. There is at most one per (user, event).
type Attendee struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user" json:"user"`
	EventID primitive.ObjectID `bson:"event" json:"event"`

	Attendance        Attendance `bson:"attendance" json:"attendance"`
	Task              string     `bson:"task,omitempty" json:"task,omitempty"`
	WillArriveOnMyOwn bool       `bson:"willArriveOnMyOwn" json:"willArriveOnMyOwn"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
