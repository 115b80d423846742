package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CarGroup struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID primitive.ObjectID `bson:"event" json:"event"`
	OwnerID primitive.ObjectID `bson:"owner" json:"owner"`

	PickupLocation    string     `bson:"pickupLocation" json:"pickupLocation"`
	PickupCoordinates []float64  `bson:"pickupCoordinates,omitempty" json:"pickupCoordinates,omitempty"`
	PickupTime        *time.Time `bson:"pickupTime,omitempty" json:"pickupTime,omitempty"`

	RoomAvailable int                  `bson:"roomAvailable" json:"roomAvailable"`
	Passengers    []primitive.ObjectID `bson:"passengers" json:"passengers"`
	IsCancelled   bool                 `bson:"isCancelled" json:"isCancelled"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (g *CarGroup) IsFull() bool {
	return len(g.Passengers) >= g.RoomAvailable
}

func (g *CarGroup) IsOwner(userID primitive.ObjectID) bool {
	return g.OwnerID == userID
}

func (g *CarGroup) IsPassenger(userID primitive.ObjectID) bool {
	for _, passenger := range g.Passengers {
		if passenger == userID {
			return true
		}
	}
	return false
}

// HasMember reports whether the user is the owner or one of the passengers.
func (g *CarGroup) HasMember(userID primitive.ObjectID) bool {
	return g.IsOwner(userID) || g.IsPassenger(userID)
}

// Members returns the owner followed by the passengers.
func (g *CarGroup) Members() []primitive.ObjectID {
	members := make([]primitive.ObjectID, 0, len(g.Passengers)+1)
	members = append(members, g.OwnerID)
	return append(members, g.Passengers...)
}

// CarGroupDetails are the owner editable fields of a car group.
type CarGroupDetails struct {
	PickupLocation    string     `json:"pickupLocation" binding:"required,max=200"`
	PickupCoordinates []float64  `json:"pickupCoordinates" binding:"omitempty,len=2"`
	PickupTime        *time.Time `json:"pickupTime"`
	RoomAvailable     int        `json:"roomAvailable" binding:"required,min=1"`
}
