package service

import (
	"context"
	"testing"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/push"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReconcile(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})
	maintenance := NewMaintenanceService(f.stores)

	event := f.openEvent(t)
	owner, leaver, stray, double := f.user(t, "ana"), f.user(t, "bruno"), f.user(t, "carla"), f.user(t, "dani")
	abandoner, driver := f.user(t, "eva"), f.user(t, "fede")
	f.join(t, event.ID, owner, leaver, stray, double, abandoner, driver)

	kept := f.carGroup(t, event.ID, owner, 4, leaver, double)
	abandoned := f.carGroup(t, event.ID, abandoner, 2, stray)
	other := f.carGroup(t, event.ID, driver, 2)

	// Simulate interrupted cascades and the cross-group race by writing the stores directly.
	_, err := f.stores.Attendees.DeleteOneByEventIDAndUserID(ctx, event.ID, leaver)
	req.NoError(err)
	_, err = f.stores.Attendees.DeleteOneByEventIDAndUserID(ctx, event.ID, abandoner)
	req.NoError(err)
	_, err = f.stores.CarGroups.AddPassenger(ctx, other.ID, double)
	req.NoError(err)

	// An attendee and a message left behind by a deleted event.
	gone := primitive.NewObjectID()
	req.NoError(f.stores.Attendees.Insert(ctx, &entity.Attendee{EventID: gone, UserID: owner, Attendance: entity.AttendancePending}))
	req.NoError(f.stores.Messages.Insert(ctx, &entity.Message{Text: "x", SenderID: owner, RelatedType: entity.RelatedTypeEvent, RelatedID: gone, EventID: gone}))

	report, err := maintenance.Reconcile(ctx)
	req.NoError(err)
	req.Equal(1, report.Events)
	req.EqualValues(1, report.OrphanAttendees)
	req.EqualValues(1, report.OrphanMessages)
	req.Equal(1, report.AbandonedCarGroups)
	req.Equal(2, report.RemovedPassengers)

	_, err = f.carGroups.GetCarGroup(ctx, abandoned.ID)
	req.ErrorIs(err, ErrCarGroupNotFound)

	stored, err := f.carGroups.GetCarGroup(ctx, kept.ID)
	req.NoError(err)
	req.Equal([]primitive.ObjectID{double}, stored.Passengers)

	stored, err = f.carGroups.GetCarGroup(ctx, other.ID)
	req.NoError(err)
	req.Empty(stored.Passengers)

	// A second pass finds nothing left to repair.
	report, err = maintenance.Reconcile(ctx)
	req.NoError(err)
	req.Equal(&ReconcileReport{Events: 1}, report)
}

// eventsCreatedAfterSnapshot runs afterSnapshot once the event ids have been read.
type eventsCreatedAfterSnapshot struct {
	EventStore
	afterSnapshot func()
}

func (s eventsCreatedAfterSnapshot) FindAllIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	IDs, err := s.EventStore.FindAllIDs(ctx)
	s.afterSnapshot()
	return IDs, err
}

// attendeesChangingAfterRead runs afterRead once the attendee list has been read.
type attendeesChangingAfterRead struct {
	AttendeeStore
	afterRead func()
}

func (s attendeesChangingAfterRead) FindUserIDsByEventID(ctx context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error) {
	userIDs, err := s.AttendeeStore.FindUserIDsByEventID(ctx, eventID)
	s.afterRead()
	return userIDs, err
}

func TestReconcile_KeepsEventCreatedDuringPass(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})
	ana, bruno := f.user(t, "ana"), f.user(t, "bruno")

	var (
		late     *entity.Event
		carGroup *entity.CarGroup
		message  *entity.Message
	)

	stores := f.stores
	stores.Events = eventsCreatedAfterSnapshot{
		EventStore: f.stores.Events,
		afterSnapshot: func() {
			late = f.openEvent(t)
			f.join(t, late.ID, ana, bruno)
			carGroup = f.carGroup(t, late.ID, ana, 3, bruno)

			var err error
			message, err = f.messages.CreateMessage(ctx, ana, entity.RelatedTypeEvent, late.ID, "Salimos a las 9")
			req.NoError(err)
		},
	}

	report, err := NewMaintenanceService(stores).Reconcile(ctx)
	req.NoError(err)
	req.Equal(&ReconcileReport{}, report)

	_, err = f.stores.Attendees.FindOneByEventIDAndUserID(ctx, late.ID, ana)
	req.NoError(err)
	stored, err := f.stores.CarGroups.FindOneByID(ctx, carGroup.ID)
	req.NoError(err)
	req.Equal([]primitive.ObjectID{bruno}, stored.Passengers)
	_, err = f.stores.Messages.FindOneByID(ctx, message.ID)
	req.NoError(err)
}

func TestReconcile_KeepsCarGroupCreatedAfterAttendeesWereRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, push.Discard{})

	event := f.openEvent(t)
	ana, bruno := f.user(t, "ana"), f.user(t, "bruno")
	f.join(t, event.ID, ana)

	var carGroup *entity.CarGroup
	stores := f.stores
	stores.Attendees = attendeesChangingAfterRead{
		AttendeeStore: f.stores.Attendees,
		afterRead: func() {
			if carGroup != nil {
				return
			}
			f.join(t, event.ID, bruno)
			carGroup = f.carGroup(t, event.ID, bruno, 2, ana)
		},
	}

	report, err := NewMaintenanceService(stores).Reconcile(ctx)
	req.NoError(err)
	req.Zero(report.AbandonedCarGroups)
	req.Zero(report.RemovedPassengers)

	stored, err := f.stores.CarGroups.FindOneByID(ctx, carGroup.ID)
	req.NoError(err)
	req.Equal(bruno, stored.OwnerID)
	req.Equal([]primitive.ObjectID{ana}, stored.Passengers)
}
