package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushSubscription is one device registration of a user. The endpoint is unique.
type PushSubscription struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user" json:"user"`
	Endpoint string             `bson:"endpoint" json:"endpoint" binding:"required,url"`
	Keys     PushKeys           `bson:"keys" json:"keys" binding:"required"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type PushKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh" binding:"required"`
	Auth   string `bson:"auth" json:"auth" binding:"required"`
}

// Notification is the payload delivered through the push gateway.
type Notification struct {
	Title       string      `json:"title"`
	Text        string      `json:"text"`
	RelatedType RelatedType `json:"relatedType,omitempty"`
	RelatedID   string      `json:"relatedId,omitempty"`
}
