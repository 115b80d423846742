package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/push"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateCarGroup_Preconditions(t *testing.T) {
	ctx := context.Background()
	details := entity.CarGroupDetails{PickupLocation: "Estación del Norte", RoomAvailable: 2}

	t.Run("event without car organization", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t, func(e *entity.Event) { e.HasCarOrganization = false })
		userID := f.user(t, "ana")
		f.join(t, event.ID, userID)

		_, err := f.carGroups.CreateCarGroup(ctx, event.ID, userID, details)
		require.ErrorIs(t, err, ErrCarOrganizationUnavailable)
	})

	t.Run("closed event", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		userID := f.user(t, "ana")
		f.join(t, event.ID, userID)
		_, err := f.events.TransitionEventStatus(ctx, event.ID, entity.EventStatusClosed)
		require.NoError(t, err)

		_, err = f.carGroups.CreateCarGroup(ctx, event.ID, userID, details)
		require.Equal(t, KindInvalidState, KindOf(err))
	})

	t.Run("not an attendee", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)

		_, err := f.carGroups.CreateCarGroup(ctx, event.ID, f.user(t, "ana"), details)
		require.ErrorIs(t, err, ErrNotAttendee)
	})

	t.Run("already owns a group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		userID := f.user(t, "ana")
		f.join(t, event.ID, userID)
		f.carGroup(t, event.ID, userID, 2)

		_, err := f.carGroups.CreateCarGroup(ctx, event.ID, userID, details)
		require.ErrorIs(t, err, ErrAlreadyInGroup)
	})

	t.Run("passenger elsewhere", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner := f.user(t, "ana")
		passenger := f.user(t, "bruno")
		f.join(t, event.ID, owner, passenger)
		f.carGroup(t, event.ID, owner, 2, passenger)

		_, err := f.carGroups.CreateCarGroup(ctx, event.ID, passenger, details)
		require.ErrorIs(t, err, ErrAlreadyInGroup)
	})

	t.Run("invalid details", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		userID := f.user(t, "ana")
		f.join(t, event.ID, userID)

		_, err := f.carGroups.CreateCarGroup(ctx, event.ID, userID, entity.CarGroupDetails{PickupLocation: "Sitio", RoomAvailable: 0})
		require.ErrorIs(t, err, ErrInvalidCapacity)

		_, err = f.carGroups.CreateCarGroup(ctx, event.ID, userID, entity.CarGroupDetails{PickupLocation: "   ", RoomAvailable: 2})
		require.ErrorIs(t, err, ErrInvalidPickup)
	})
}

func TestJoinCarGroup_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		_, err := f.carGroups.JoinCarGroup(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		require.ErrorIs(t, err, ErrCarGroupNotFound)
	})

	t.Run("cancelled group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner, userID := f.user(t, "ana"), f.user(t, "bruno")
		f.join(t, event.ID, owner, userID)
		group := f.carGroup(t, event.ID, owner, 2)
		_, err := f.stores.CarGroups.SetCancelledByEventID(ctx, event.ID, true)
		require.NoError(t, err)

		_, err = f.carGroups.JoinCarGroup(ctx, group.ID, userID)
		require.ErrorIs(t, err, ErrCarGroupCancelled)
	})

	t.Run("full group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner, first, second := f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla")
		f.join(t, event.ID, owner, first, second)
		group := f.carGroup(t, event.ID, owner, 1, first)

		_, err := f.carGroups.JoinCarGroup(ctx, group.ID, second)
		require.ErrorIs(t, err, ErrCarGroupFull)
		require.Equal(t, KindCapacityExceeded, KindOf(err))
	})

	t.Run("owner joins own group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner := f.user(t, "ana")
		f.join(t, event.ID, owner)
		group := f.carGroup(t, event.ID, owner, 2)

		_, err := f.carGroups.JoinCarGroup(ctx, group.ID, owner)
		require.ErrorIs(t, err, ErrSelfOwnership)
	})

	t.Run("already a passenger", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner, userID := f.user(t, "ana"), f.user(t, "bruno")
		f.join(t, event.ID, owner, userID)
		group := f.carGroup(t, event.ID, owner, 2, userID)

		_, err := f.carGroups.JoinCarGroup(ctx, group.ID, userID)
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("event cancelled", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner, userID := f.user(t, "ana"), f.user(t, "bruno")
		f.join(t, event.ID, owner, userID)
		group := f.carGroup(t, event.ID, owner, 2)

		// Status written directly so the groups stay uncancelled.
		_, err := f.stores.Events.UpdateStatus(ctx, event.ID, entity.EventStatusOpen, entity.EventStatusCancelled)
		require.NoError(t, err)

		_, err = f.carGroups.JoinCarGroup(ctx, group.ID, userID)
		require.ErrorIs(t, err, ErrEventUnavailable)
	})

	t.Run("not an attendee", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		owner := f.user(t, "ana")
		f.join(t, event.ID, owner)
		group := f.carGroup(t, event.ID, owner, 2)

		_, err := f.carGroups.JoinCarGroup(ctx, group.ID, f.user(t, "bruno"))
		require.ErrorIs(t, err, ErrNotAttendee)
	})

	t.Run("owner of another group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		first, second := f.user(t, "ana"), f.user(t, "bruno")
		f.join(t, event.ID, first, second)
		group := f.carGroup(t, event.ID, first, 2)
		f.carGroup(t, event.ID, second, 2)

		_, err := f.carGroups.JoinCarGroup(ctx, group.ID, second)
		require.ErrorIs(t, err, ErrAlreadyInGroup)
	})

	t.Run("passenger of another group", func(t *testing.T) {
		f := newFixture(t, push.Discard{})
		event := f.openEvent(t)
		first, second, userID := f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla")
		f.join(t, event.ID, first, second, userID)
		f.carGroup(t, event.ID, first, 2, userID)
		other := f.carGroup(t, event.ID, second, 2)

		_, err := f.carGroups.JoinCarGroup(ctx, other.ID, userID)
		require.ErrorIs(t, err, ErrAlreadyInGroup)
	})
}

func TestJoinCarGroup_TwoUsersRaceForLastSeat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	// Given G1 with capacity 2 and one seat taken
	event := f.openEvent(t)
	u1, u2, u3, u4 := f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla"), f.user(t, "dani")
	f.join(t, event.ID, u1, u2, u3, u4)
	g1 := f.carGroup(t, event.ID, u1, 2, u4)

	// When U2 and U3 join at the same time
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, userID := range []primitive.ObjectID{u2, u3} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.carGroups.JoinCarGroup(ctx, g1.ID, userID)
		}()
	}
	wg.Wait()

	// Then exactly one of them gets the seat
	var succeeded, full int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == ErrCarGroupFull:
			full++
		}
	}
	req.Equal(1, succeeded)
	req.Equal(1, full)

	stored, err := f.carGroups.GetCarGroup(ctx, g1.ID)
	req.NoError(err)
	req.Len(stored.Passengers, 2)
}

func TestJoinCarGroup_ManyJoinersNeverExceedCapacity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner := f.user(t, "ana")
	f.join(t, event.ID, owner)
	group := f.carGroup(t, event.ID, owner, 5)

	joiners := make([]primitive.ObjectID, 40)
	for i := range joiners {
		joiners[i] = f.user(t, "joiner")
		f.join(t, event.ID, joiners[i])
	}

	var succeeded, full int32
	var wg sync.WaitGroup
	for _, userID := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carGroups.JoinCarGroup(ctx, group.ID, userID)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case err == ErrCarGroupFull:
				atomic.AddInt32(&full, 1)
			}
		}()
	}
	wg.Wait()

	stored, err := f.carGroups.GetCarGroup(ctx, group.ID)
	req.NoError(err)
	req.Len(stored.Passengers, 5)
	req.EqualValues(5, succeeded)
	req.EqualValues(35, full)
}

func TestOwnershipAndMembershipAreExclusive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	users := []primitive.ObjectID{f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla")}
	f.join(t, event.ID, users...)
	groups := []*entity.CarGroup{
		f.carGroup(t, event.ID, users[0], 3),
		f.carGroup(t, event.ID, users[1], 3),
	}

	// Every user tries every group, concurrently.
	var wg sync.WaitGroup
	for _, userID := range users {
		for _, group := range groups {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.carGroups.JoinCarGroup(ctx, group.ID, userID)
			}()
		}
	}
	wg.Wait()

	stored, err := f.carGroups.ListCarGroups(ctx, event.ID)
	req.NoError(err)
	for _, group := range stored {
		req.NotContains(group.Passengers, users[0])
		req.NotContains(group.Passengers, users[1])
	}
}

func TestUpdateCarGroupCapacity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner, p1, p2 := f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla")
	f.join(t, event.ID, owner, p1, p2)
	group := f.carGroup(t, event.ID, owner, 4, p1, p2)

	_, err := f.carGroups.UpdateCarGroupCapacity(ctx, group.ID, owner, 1)
	req.ErrorIs(err, ErrCapacityBelowOccupancy)

	_, err = f.carGroups.UpdateCarGroupCapacity(ctx, group.ID, p1, 3)
	req.ErrorIs(err, ErrNotCarGroupOwner)
	req.Equal(KindUnauthorized, KindOf(err))

	_, err = f.carGroups.UpdateCarGroupCapacity(ctx, group.ID, owner, 0)
	req.ErrorIs(err, ErrInvalidCapacity)

	updated, err := f.carGroups.UpdateCarGroupCapacity(ctx, group.ID, owner, 2)
	req.NoError(err)
	req.Equal(2, updated.RoomAvailable)
	req.ElementsMatch([]primitive.ObjectID{p1, p2}, updated.Passengers)

	_, err = f.carGroups.UpdateCarGroupCapacity(ctx, primitive.NewObjectID(), owner, 2)
	req.ErrorIs(err, ErrCarGroupNotFound)
}

func TestUpdateCarGroup_KeepsPassengers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner, p1 := f.user(t, "ana"), f.user(t, "bruno")
	f.join(t, event.ID, owner, p1)
	group := f.carGroup(t, event.ID, owner, 2, p1)

	updated, err := f.carGroups.UpdateCarGroup(ctx, group.ID, owner, entity.CarGroupDetails{
		PickupLocation:    " Metro  Colón ",
		PickupCoordinates: []float64{-0.37, 39.47},
		RoomAvailable:     3,
	})
	req.NoError(err)
	req.Equal("Metro Colón", updated.PickupLocation)
	req.Equal(3, updated.RoomAvailable)
	req.Equal([]primitive.ObjectID{p1}, updated.Passengers)
}

func TestLeaveCarGroup_IsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner, p1 := f.user(t, "ana"), f.user(t, "bruno")
	f.join(t, event.ID, owner, p1)
	group := f.carGroup(t, event.ID, owner, 2, p1)

	for i := 0; i < 2; i++ {
		updated, err := f.carGroups.LeaveCarGroup(ctx, group.ID, p1)
		req.NoError(err)
		req.Empty(updated.Passengers)
	}

	_, err := f.carGroups.LeaveCarGroup(ctx, primitive.NewObjectID(), p1)
	req.ErrorIs(err, ErrCarGroupNotFound)
}

func TestDeleteCarGroup(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	owner, p1 := f.user(t, "ana"), f.user(t, "bruno")
	f.join(t, event.ID, owner, p1)
	group := f.carGroup(t, event.ID, owner, 2, p1)

	err := f.carGroups.DeleteCarGroup(ctx, group.ID, p1)
	req.ErrorIs(err, ErrNotCarGroupOwner)

	req.NoError(f.carGroups.DeleteCarGroup(ctx, group.ID, owner))

	_, err = f.carGroups.GetCarGroup(ctx, group.ID)
	req.ErrorIs(err, ErrCarGroupNotFound)

	// The former passenger is free to own a group now.
	_, err = f.carGroups.CreateCarGroup(ctx, event.ID, p1, entity.CarGroupDetails{PickupLocation: "Ruzafa", RoomAvailable: 1})
	req.NoError(err)
}
