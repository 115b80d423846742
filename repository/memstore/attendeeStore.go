package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttendeeStore struct {
	db *DB
}

// Insert enforces the (user, event) unique key.
func (s *AttendeeStore) Insert(_ context.Context, attendee *entity.Attendee) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.findAttendee(attendee.EventID, attendee.UserID) != nil {
		return repository.ErrDuplicate
	}

	if attendee.ID.IsZero() {
		attendee.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	attendee.CreatedAt = now
	attendee.UpdatedAt = now

	s.db.attendees[attendee.ID] = cloneAttendee(attendee)
	return nil
}

func (s *AttendeeStore) FindOneByID(_ context.Context, ID primitive.ObjectID) (*entity.Attendee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	attendee, ok := s.db.attendees[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttendee(attendee), nil
}

func (s *AttendeeStore) FindOneByEventIDAndUserID(_ context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	attendee := s.db.findAttendee(eventID, userID)
	if attendee == nil {
		return nil, repository.ErrNotFound
	}
	return cloneAttendee(attendee), nil
}

func (s *AttendeeStore) FindManyByEventID(_ context.Context, eventID primitive.ObjectID) ([]*entity.Attendee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	attendees := []*entity.Attendee{}
	for _, attendee := range s.db.attendees {
		if attendee.EventID == eventID {
			attendees = append(attendees, cloneAttendee(attendee))
		}
	}
	sort.Slice(attendees, func(i, j int) bool {
		return attendees[i].CreatedAt.Before(attendees[j].CreatedAt)
	})
	return attendees, nil
}

func (s *AttendeeStore) FindUserIDsByEventID(_ context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	userIDs := []primitive.ObjectID{}
	for _, attendee := range s.db.attendees {
		if attendee.EventID == eventID && !containsID(userIDs, attendee.UserID) {
			userIDs = append(userIDs, attendee.UserID)
		}
	}
	return userIDs, nil
}

func (s *AttendeeStore) SetAttendance(_ context.Context, ID primitive.ObjectID, attendance entity.Attendance) (*entity.Attendee, error) {
	return s.update(ID, func(a *entity.Attendee) { a.Attendance = attendance })
}

func (s *AttendeeStore) SetTask(_ context.Context, ID primitive.ObjectID, task string) (*entity.Attendee, error) {
	return s.update(ID, func(a *entity.Attendee) { a.Task = task })
}

func (s *AttendeeStore) SetArrivalPreference(_ context.Context, eventID, userID primitive.ObjectID, onMyOwn bool) (*entity.Attendee, error) {
	s.db.mu.Lock()
	attendee := s.db.findAttendee(eventID, userID)
	s.db.mu.Unlock()

	if attendee == nil {
		return nil, repository.ErrNotFound
	}
	return s.update(attendee.ID, func(a *entity.Attendee) { a.WillArriveOnMyOwn = onMyOwn })
}

func (s *AttendeeStore) update(ID primitive.ObjectID, apply func(*entity.Attendee)) (*entity.Attendee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	attendee, ok := s.db.attendees[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	apply(attendee)
	attendee.UpdatedAt = time.Now().UTC()
	return cloneAttendee(attendee), nil
}

func (s *AttendeeStore) DeleteOneByEventIDAndUserID(_ context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	attendee := s.db.findAttendee(eventID, userID)
	if attendee == nil {
		return nil, repository.ErrNotFound
	}
	delete(s.db.attendees, attendee.ID)
	return cloneAttendee(attendee), nil
}

func (s *AttendeeStore) DeleteManyByEventID(_ context.Context, eventID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int64
	for ID, attendee := range s.db.attendees {
		if attendee.EventID == eventID {
			delete(s.db.attendees, ID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *AttendeeStore) FindDistinctEventIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	eventIDs := []primitive.ObjectID{}
	for _, attendee := range s.db.attendees {
		if !containsID(eventIDs, attendee.EventID) {
			eventIDs = append(eventIDs, attendee.EventID)
		}
	}
	return eventIDs, nil
}

// findAttendee expects db.mu to be held.
func (db *DB) findAttendee(eventID, userID primitive.ObjectID) *entity.Attendee {
	for _, attendee := range db.attendees {
		if attendee.EventID == eventID && attendee.UserID == userID {
			return attendee
		}
	}
	return nil
}
