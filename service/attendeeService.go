package service

import (
	"context"
	"errors"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttendeeService struct {
	stores Stores
	now    func() time.Time
}

func NewAttendeeService(stores Stores) *AttendeeService {
	return &AttendeeService{
		stores: stores,
		now:    time.Now,
	}
}

// JoinEvent creates the attendee link. The (user, event) unique key turns a concurrent
// second join into ErrAlreadyJoined.
func (s *AttendeeService) JoinEvent(ctx context.Context, eventID, userID primitive.ObjectID) (*entity.Attendee, error) {
	event, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return nil, err
	}

	switch {
	case event.IsCancelled():
		return nil, ErrEventCancelled
	case event.Status == entity.EventStatusClosed:
		return nil, ErrEventClosed
	case event.HasPassed(s.now()):
		return nil, ErrEventPassed
	}

	attendee := &entity.Attendee{
		UserID:     userID,
		EventID:    eventID,
		Attendance: entity.AttendancePending,
	}

	err = s.stores.Attendees.Insert(ctx, attendee)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadyJoined
	}
	if err != nil {
		return nil, err
	}

	return attendee, nil
}

// LeaveEvent deletes the attendee link and then always releases the user's car groups in the
// event, so that repeating it heals a previously interrupted leave. ErrNotAttendee is returned
// when there was no link to delete.
func (s *AttendeeService) LeaveEvent(ctx context.Context, eventID, userID primitive.ObjectID) error {
	event, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return err
	}

	switch {
	case event.IsCancelled():
		return ErrEventCancelled
	case event.Status == entity.EventStatusClosed:
		return ErrEventClosed
	}

	_, err = s.stores.Attendees.DeleteOneByEventIDAndUserID(ctx, eventID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	linkMissing := errors.Is(err, repository.ErrNotFound)

	releaseCarGroups(ctx, s.stores, eventID, userID)

	if linkMissing {
		return ErrNotAttendee
	}
	return nil
}

func (s *AttendeeService) ListAttendees(ctx context.Context, eventID primitive.ObjectID) ([]*entity.Attendee, error) {
	_, err := findEvent(ctx, s.stores.Events, eventID)
	if err != nil {
		return nil, err
	}
	return s.stores.Attendees.FindManyByEventID(ctx, eventID)
}

func (s *AttendeeService) SetAttendance(ctx context.Context, attendeeID primitive.ObjectID, attendance entity.Attendance) (*entity.Attendee, error) {
	if !attendance.Valid() {
		return nil, ErrInvalidAttendance
	}

	attendee, err := s.stores.Attendees.SetAttendance(ctx, attendeeID, attendance)
	if err != nil {
		return nil, notFound(err, ErrAttendeeNotFound)
	}
	return attendee, nil
}

// SetTask assigns a task. An empty task clears it.
func (s *AttendeeService) SetTask(ctx context.Context, attendeeID primitive.ObjectID, task string) (*entity.Attendee, error) {
	task = helpers.CleanText(task)
	if helpers.RuneLen(task) > helpers.TaskMaxLength {
		return nil, ErrInvalidTask
	}

	attendee, err := s.stores.Attendees.FindOneByID(ctx, attendeeID)
	if err != nil {
		return nil, notFound(err, ErrAttendeeNotFound)
	}

	event, err := findEvent(ctx, s.stores.Events, attendee.EventID)
	if err != nil {
		return nil, err
	}
	if !event.HasTaskAssignments {
		return nil, ErrTasksDisabled
	}

	attendee, err = s.stores.Attendees.SetTask(ctx, attendeeID, task)
	if err != nil {
		return nil, notFound(err, ErrAttendeeNotFound)
	}
	return attendee, nil
}

func (s *AttendeeService) SetArrivalPreference(ctx context.Context, eventID, userID primitive.ObjectID, onMyOwn bool) (*entity.Attendee, error) {
	attendee, err := s.stores.Attendees.SetArrivalPreference(ctx, eventID, userID, onMyOwn)
	if err != nil {
		return nil, notFound(err, ErrNotAttendee)
	}
	return attendee, nil
}
