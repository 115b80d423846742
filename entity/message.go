package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RelatedType string

const (
	RelatedTypeEvent    RelatedType = "event"
	RelatedTypeCarGroup RelatedType = "car-group"
)

func (t RelatedType) Valid() bool {
	return t == RelatedTypeEvent || t == RelatedTypeCarGroup
}

const DeletedMessageText = "This message was deleted"

// Message is append-only. Deletion only flips IsDeleted and replaces the text.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text        string             `bson:"text" json:"text"`
	SenderID    primitive.ObjectID `bson:"sender" json:"sender"`
	RelatedType RelatedType        `bson:"relatedType" json:"relatedType"`
	RelatedID   primitive.ObjectID `bson:"relatedId" json:"relatedId"`
	EventID     primitive.ObjectID `bson:"eventId" json:"eventId"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
