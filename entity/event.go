package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStatus string

const (
	EventStatusOpen      EventStatus = "open"
	EventStatusClosed    EventStatus = "closed"
	EventStatusCancelled EventStatus = "cancelled"
)

var EventStatuses = []EventStatus{EventStatusOpen, EventStatusClosed, EventStatusCancelled}

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusOpen, EventStatusClosed, EventStatusCancelled:
		return true
	}
	return false
}

type EventCategory string

const (
	EventCategoryCollection EventCategory = "collection"
	EventCategoryShelter    EventCategory = "shelter"
	EventCategoryMarket     EventCategory = "market"
	EventCategoryOther      EventCategory = "other"
)

func (c EventCategory) Valid() bool {
	switch c {
	case EventCategoryCollection, EventCategoryShelter, EventCategoryMarket, EventCategoryOther:
		return true
	}
	return false
}

type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Category    EventCategory      `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Location    string             `bson:"location" json:"location"`
	Date        time.Time          `bson:"date" json:"date"`

	HasCarOrganization bool `bson:"hasCarOrganization" json:"hasCarOrganization"`
	HasTaskAssignments bool `bson:"hasTaskAssignments" json:"hasTaskAssignments"`

	Status  EventStatus        `bson:"status" json:"status"`
	OwnerID primitive.ObjectID `bson:"owner,omitempty" json:"owner"`

	// Filled by lookups only, never stored.
	CarGroups []*CarGroup `bson:"carGroups,omitempty" json:"carGroups,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (e *Event) IsOpen() bool {
	return e.Status == EventStatusOpen
}

func (e *Event) IsCancelled() bool {
	return e.Status == EventStatusCancelled
}

// HasPassed reports whether the event date lies before now. Events without a date never pass.
func (e *Event) HasPassed(now time.Time) bool {
	return !e.Date.IsZero() && e.Date.Before(now)
}

func (e *Event) AllowsCarGroups() bool {
	return e.HasCarOrganization && e.IsOpen()
}

// EventDraft carries the organizer supplied fields of a new event.
type EventDraft struct {
	Title              string        `json:"title" binding:"required,max=50"`
	Category           EventCategory `json:"category"`
	Description        string        `json:"description"`
	Location           string        `json:"location" binding:"required,max=50"`
	Date               time.Time     `json:"date" binding:"required"`
	HasCarOrganization bool          `json:"hasCarOrganization"`
	HasTaskAssignments bool          `json:"hasTaskAssignments"`
}
