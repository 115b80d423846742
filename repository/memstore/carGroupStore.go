package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

type CarGroupStore struct {
	db *DB
}

// Insert enforces the (event, owner) unique key.
func (s *CarGroupStore) Insert(_ context.Context, carGroup *entity.CarGroup) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.carGroups {
		if existing.EventID == carGroup.EventID && existing.OwnerID == carGroup.OwnerID {
			return repository.ErrDuplicate
		}
	}

	if carGroup.ID.IsZero() {
		carGroup.ID = primitive.NewObjectID()
	}
	if carGroup.Passengers == nil {
		carGroup.Passengers = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	carGroup.CreatedAt = now
	carGroup.UpdatedAt = now

	s.db.carGroups[carGroup.ID] = cloneCarGroup(carGroup)
	return nil
}

func (s *CarGroupStore) FindOneByID(_ context.Context, ID primitive.ObjectID) (*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	carGroup, ok := s.db.carGroups[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCarGroup(carGroup), nil
}

func (s *CarGroupStore) FindManyByEventID(_ context.Context, eventID primitive.ObjectID) ([]*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.db.carGroupsOfEvent(eventID), nil
}

func (s *CarGroupStore) ExistsByEventIDAndMember(_ context.Context, eventID, userID, excludeID primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for ID, carGroup := range s.db.carGroups {
		if ID == excludeID || carGroup.EventID != eventID {
			continue
		}
		if carGroup.HasMember(userID) {
			return true, nil
		}
	}
	return false, nil
}

// AddPassenger checks the same preconditions as the Mongo join filter inside one critical section.
func (s *CarGroupStore) AddPassenger(_ context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	carGroup, ok := s.db.carGroups[ID]
	if !ok || carGroup.IsCancelled || carGroup.HasMember(userID) || carGroup.IsFull() {
		return nil, repository.ErrConditionFailed
	}
	carGroup.Passengers = append(carGroup.Passengers, userID)
	carGroup.UpdatedAt = time.Now().UTC()
	return cloneCarGroup(carGroup), nil
}

func (s *CarGroupStore) RemovePassenger(_ context.Context, ID, userID primitive.ObjectID) (*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	carGroup, ok := s.db.carGroups[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	carGroup.Passengers = pull(carGroup.Passengers, userID)
	carGroup.UpdatedAt = time.Now().UTC()
	return cloneCarGroup(carGroup), nil
}

func (s *CarGroupStore) RemovePassengerByEventID(_ context.Context, eventID, userID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var modified int64
	for _, carGroup := range s.db.carGroups {
		if carGroup.EventID == eventID && carGroup.IsPassenger(userID) {
			carGroup.Passengers = pull(carGroup.Passengers, userID)
			carGroup.UpdatedAt = time.Now().UTC()
			modified++
		}
	}
	return modified, nil
}

func (s *CarGroupStore) UpdateCapacity(_ context.Context, ID primitive.ObjectID, capacity int) (*entity.CarGroup, error) {
	return s.updateWithinCapacity(ID, capacity, func(g *entity.CarGroup) {
		g.RoomAvailable = capacity
	})
}

func (s *CarGroupStore) UpdateDetails(_ context.Context, ID primitive.ObjectID, details entity.CarGroupDetails) (*entity.CarGroup, error) {
	return s.updateWithinCapacity(ID, details.RoomAvailable, func(g *entity.CarGroup) {
		g.PickupLocation = details.PickupLocation
		g.PickupCoordinates = slices.Clone(details.PickupCoordinates)
		g.PickupTime = details.PickupTime
		g.RoomAvailable = details.RoomAvailable
	})
}

func (s *CarGroupStore) updateWithinCapacity(ID primitive.ObjectID, capacity int, apply func(*entity.CarGroup)) (*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	carGroup, ok := s.db.carGroups[ID]
	if !ok || len(carGroup.Passengers) > capacity {
		return nil, repository.ErrConditionFailed
	}
	apply(carGroup)
	carGroup.UpdatedAt = time.Now().UTC()
	return cloneCarGroup(carGroup), nil
}

func (s *CarGroupStore) SetCancelledByEventID(_ context.Context, eventID primitive.ObjectID, cancelled bool) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var modified int64
	for _, carGroup := range s.db.carGroups {
		if carGroup.EventID == eventID && carGroup.IsCancelled != cancelled {
			carGroup.IsCancelled = cancelled
			carGroup.UpdatedAt = time.Now().UTC()
			modified++
		}
	}
	return modified, nil
}

func (s *CarGroupStore) DeleteOneByID(_ context.Context, ID primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.carGroups[ID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.carGroups, ID)
	return nil
}

func (s *CarGroupStore) DeleteOneByEventIDAndOwnerID(_ context.Context, eventID, ownerID primitive.ObjectID) (*entity.CarGroup, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for ID, carGroup := range s.db.carGroups {
		if carGroup.EventID == eventID && carGroup.OwnerID == ownerID {
			delete(s.db.carGroups, ID)
			return cloneCarGroup(carGroup), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *CarGroupStore) DeleteManyByEventID(_ context.Context, eventID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int64
	for ID, carGroup := range s.db.carGroups {
		if carGroup.EventID == eventID {
			delete(s.db.carGroups, ID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *CarGroupStore) FindDistinctEventIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	eventIDs := []primitive.ObjectID{}
	for _, carGroup := range s.db.carGroups {
		if !containsID(eventIDs, carGroup.EventID) {
			eventIDs = append(eventIDs, carGroup.EventID)
		}
	}
	return eventIDs, nil
}

// carGroupsOfEvent expects db.mu to be held.
func (db *DB) carGroupsOfEvent(eventID primitive.ObjectID) []*entity.CarGroup {
	carGroups := []*entity.CarGroup{}
	for _, carGroup := range db.carGroups {
		if carGroup.EventID == eventID {
			carGroups = append(carGroups, cloneCarGroup(carGroup))
		}
	}
	sort.Slice(carGroups, func(i, j int) bool {
		return carGroups[i].CreatedAt.Before(carGroups[j].CreatedAt)
	})
	return carGroups
}

func pull(IDs []primitive.ObjectID, ID primitive.ObjectID) []primitive.ObjectID {
	return slices.DeleteFunc(IDs, func(candidate primitive.ObjectID) bool {
		return candidate == ID
	})
}
