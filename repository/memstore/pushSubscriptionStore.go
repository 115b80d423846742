package memstore

import (
	"context"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PushSubscriptionStore struct {
	db *DB
}

func (s *PushSubscriptionStore) Upsert(_ context.Context, subscription entity.PushSubscription) (*entity.PushSubscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range s.db.pushSubscriptions {
		if existing.Endpoint == subscription.Endpoint {
			existing.UserID = subscription.UserID
			existing.Keys = subscription.Keys
			existing.UpdatedAt = now
			return cloneSubscription(existing), nil
		}
	}

	subscription.ID = primitive.NewObjectID()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now
	s.db.pushSubscriptions[subscription.ID] = cloneSubscription(&subscription)
	return cloneSubscription(&subscription), nil
}

func (s *PushSubscriptionStore) FindManyByUserIDs(_ context.Context, userIDs []primitive.ObjectID) ([]*entity.PushSubscription, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	subscriptions := []*entity.PushSubscription{}
	for _, subscription := range s.db.pushSubscriptions {
		if containsID(userIDs, subscription.UserID) {
			subscriptions = append(subscriptions, cloneSubscription(subscription))
		}
	}
	return subscriptions, nil
}

func (s *PushSubscriptionStore) DeleteOneByEndpoint(_ context.Context, endpoint string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for ID, subscription := range s.db.pushSubscriptions {
		if subscription.Endpoint == endpoint {
			delete(s.db.pushSubscriptions, ID)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *PushSubscriptionStore) DeleteManyByUserID(_ context.Context, userID primitive.ObjectID, endpoint string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int64
	for ID, subscription := range s.db.pushSubscriptions {
		if subscription.UserID != userID {
			continue
		}
		if endpoint != "" && subscription.Endpoint != endpoint {
			continue
		}
		delete(s.db.pushSubscriptions, ID)
		deleted++
	}
	return deleted, nil
}
