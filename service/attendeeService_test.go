package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/push"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJoinEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		modify  func(*entity.Event)
		wantErr error
	}{
		{name: "open event", modify: func(*entity.Event) {}},
		{name: "closed event", modify: func(e *entity.Event) { e.Status = entity.EventStatusClosed }, wantErr: ErrEventClosed},
		{name: "cancelled event", modify: func(e *entity.Event) { e.Status = entity.EventStatusCancelled }, wantErr: ErrEventCancelled},
		{name: "past event", modify: func(e *entity.Event) { e.Date = time.Now().Add(-time.Hour) }, wantErr: ErrEventPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t, push.Discard{})
			event := f.openEvent(t, tt.modify)
			userID := f.user(t, "lucía")

			attendee, err := f.attendees.JoinEvent(ctx, event.ID, userID)

			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(entity.AttendancePending, attendee.Attendance)
		})
	}
}

func TestJoinEvent_UnknownEvent(t *testing.T) {
	f := newFixture(t, push.Discard{})

	_, err := f.attendees.JoinEvent(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())

	require.ErrorIs(t, err, ErrEventNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestJoinEvent_SecondJoinIsConflict(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})
	event := f.openEvent(t)
	userID := f.user(t, "lucía")

	_, err := f.attendees.JoinEvent(ctx, event.ID, userID)
	req.NoError(err)

	_, err = f.attendees.JoinEvent(ctx, event.ID, userID)
	req.ErrorIs(err, ErrAlreadyJoined)
	req.Equal(KindConflict, KindOf(err))
}

func TestJoinEvent_ConcurrentJoinsCreateOneLink(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})
	event := f.openEvent(t)
	userID := f.user(t, "lucía")

	var (
		wg        sync.WaitGroup
		succeeded int32
		conflicts int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.attendees.JoinEvent(ctx, event.ID, userID)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case KindOf(err) == KindConflict:
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	attendees, err := f.attendees.ListAttendees(ctx, event.ID)
	req.NoError(err)
	req.Len(attendees, 1)
	req.EqualValues(1, succeeded)
	req.EqualValues(19, conflicts)
}

func TestLeaveEvent_DeletesOwnedCarGroup(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	// Given U1 joined E1 and created G1
	event := f.openEvent(t)
	u1 := f.user(t, "ana")
	f.join(t, event.ID, u1)
	g1 := f.carGroup(t, event.ID, u1, 3)

	_, err := f.messages.CreateMessage(ctx, u1, entity.RelatedTypeCarGroup, g1.ID, "salgo a las 9")
	req.NoError(err)
	f.nextJob(t)

	// When U1 leaves E1
	err = f.attendees.LeaveEvent(ctx, event.ID, u1)
	req.NoError(err)

	// Then G1 and its history are gone
	_, err = f.carGroups.GetCarGroup(ctx, g1.ID)
	req.ErrorIs(err, ErrCarGroupNotFound)

	history, err := f.stores.Messages.FindManyByRelatedID(ctx, g1.ID, time.Time{}, 10)
	req.NoError(err)
	req.Empty(history)
}

func TestLeaveEvent_RemovesSeatAndIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner := f.user(t, "ana")
	passenger := f.user(t, "bruno")
	f.join(t, event.ID, owner, passenger)
	group := f.carGroup(t, event.ID, owner, 3, passenger)

	req.NoError(f.attendees.LeaveEvent(ctx, event.ID, passenger))

	stored, err := f.carGroups.GetCarGroup(ctx, group.ID)
	req.NoError(err)
	req.NotContains(stored.Passengers, passenger)

	// Leaving again reports the missing link but keeps the user out of every group.
	err = f.attendees.LeaveEvent(ctx, event.ID, passenger)
	req.ErrorIs(err, ErrNotAttendee)

	member, err := f.stores.CarGroups.ExistsByEventIDAndMember(ctx, event.ID, passenger, primitive.NilObjectID)
	req.NoError(err)
	req.False(member)
}

func TestLeaveEvent_HealsSeatLeftBehind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner := f.user(t, "ana")
	passenger := f.user(t, "bruno")
	f.join(t, event.ID, owner, passenger)
	group := f.carGroup(t, event.ID, owner, 3, passenger)

	// Given an earlier leave that removed the link but not the seat
	_, err := f.stores.Attendees.DeleteOneByEventIDAndUserID(ctx, event.ID, passenger)
	req.NoError(err)

	// When the user leaves again
	err = f.attendees.LeaveEvent(ctx, event.ID, passenger)

	// Then the seat is released
	req.ErrorIs(err, ErrNotAttendee)
	stored, err := f.carGroups.GetCarGroup(ctx, group.ID)
	req.NoError(err)
	req.Empty(stored.Passengers)
}

func TestLeaveEvent_RejectedOnClosedOrCancelledEvent(t *testing.T) {
	ctx := context.Background()

	for status, wantErr := range map[entity.EventStatus]error{
		entity.EventStatusClosed:    ErrEventClosed,
		entity.EventStatusCancelled: ErrEventCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t, push.Discard{})
			event := f.openEvent(t)
			userID := f.user(t, "ana")
			f.join(t, event.ID, userID)

			_, err := f.events.TransitionEventStatus(ctx, event.ID, status)
			req.NoError(err)

			err = f.attendees.LeaveEvent(ctx, event.ID, userID)
			req.ErrorIs(err, wantErr)
			req.Equal(KindInvalidState, KindOf(err))
		})
	}
}

func TestSetTask(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	withTasks := f.openEvent(t)
	withoutTasks := f.openEvent(t, func(e *entity.Event) { e.HasTaskAssignments = false })
	userID := f.user(t, "ana")
	f.join(t, withTasks.ID, userID)
	f.join(t, withoutTasks.ID, userID)

	attendee, err := f.stores.Attendees.FindOneByEventIDAndUserID(ctx, withTasks.ID, userID)
	req.NoError(err)

	updated, err := f.attendees.SetTask(ctx, attendee.ID, "  llevar   correas ")
	req.NoError(err)
	req.Equal("llevar correas", updated.Task)

	_, err = f.attendees.SetTask(ctx, attendee.ID, strings.Repeat("x", 51))
	req.ErrorIs(err, ErrInvalidTask)

	other, err := f.stores.Attendees.FindOneByEventIDAndUserID(ctx, withoutTasks.ID, userID)
	req.NoError(err)
	_, err = f.attendees.SetTask(ctx, other.ID, "llevar correas")
	req.ErrorIs(err, ErrTasksDisabled)

	_, err = f.attendees.SetTask(ctx, primitive.NewObjectID(), "x")
	req.ErrorIs(err, ErrAttendeeNotFound)
}

func TestSetAttendance(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	userID := f.user(t, "ana")
	f.join(t, event.ID, userID)
	attendee, err := f.stores.Attendees.FindOneByEventIDAndUserID(ctx, event.ID, userID)
	req.NoError(err)

	updated, err := f.attendees.SetAttendance(ctx, attendee.ID, entity.AttendanceNoShow)
	req.NoError(err)
	req.Equal(entity.AttendanceNoShow, updated.Attendance)

	_, err = f.attendees.SetAttendance(ctx, attendee.ID, "maybe")
	req.ErrorIs(err, ErrInvalidAttendance)
	req.Equal(KindValidationFailure, KindOf(err))
}

func TestSetArrivalPreference(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	userID := f.user(t, "ana")
	f.join(t, event.ID, userID)

	attendee, err := f.attendees.SetArrivalPreference(ctx, event.ID, userID, true)
	req.NoError(err)
	req.True(attendee.WillArriveOnMyOwn)

	_, err = f.attendees.SetArrivalPreference(ctx, event.ID, primitive.NewObjectID(), true)
	req.ErrorIs(err, ErrNotAttendee)
}
