package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventStore struct {
	db *DB
}

func (s *EventStore) Insert(_ context.Context, event *entity.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if _, exists := s.db.events[event.ID]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.CarGroups = nil

	s.db.events[event.ID] = cloneEvent(event)
	return nil
}

func (s *EventStore) FindOneByID(_ context.Context, ID primitive.ObjectID) (*entity.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	event, ok := s.db.events[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEvent(event), nil
}

func (s *EventStore) FindOneWithCarGroupsByID(_ context.Context, ID primitive.ObjectID) (*entity.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	event, ok := s.db.events[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	result := cloneEvent(event)
	result.CarGroups = s.db.carGroupsOfEvent(ID)
	return result, nil
}

func (s *EventStore) FindManyFromDate(_ context.Context, fromUTC time.Time) ([]*entity.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	events := []*entity.Event{}
	for _, event := range s.db.events {
		if !event.Date.Before(fromUTC) {
			events = append(events, cloneEvent(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (s *EventStore) FindAllIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	IDs := make([]primitive.ObjectID, 0, len(s.db.events))
	for ID := range s.db.events {
		IDs = append(IDs, ID)
	}
	return IDs, nil
}

func (s *EventStore) UpdateStatus(_ context.Context, ID primitive.ObjectID, from, to entity.EventStatus) (*entity.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	event, ok := s.db.events[ID]
	if !ok || event.Status != from {
		return nil, repository.ErrConditionFailed
	}
	event.Status = to
	event.UpdatedAt = time.Now().UTC()
	return cloneEvent(event), nil
}

func (s *EventStore) DeleteOneByID(_ context.Context, ID primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.events[ID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.events, ID)
	return nil
}

// PutEvent stores the event as given, keeping its timestamps.
func (db *DB) PutEvent(event *entity.Event) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	db.events[event.ID] = cloneEvent(event)
}
