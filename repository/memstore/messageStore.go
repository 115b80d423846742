package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStore struct {
	db *DB
}

func (s *MessageStore) Insert(_ context.Context, message *entity.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now

	s.db.messages[message.ID] = cloneMessage(message)
	return nil
}

func (s *MessageStore) FindOneByID(_ context.Context, ID primitive.ObjectID) (*entity.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	message, ok := s.db.messages[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMessage(message), nil
}

func (s *MessageStore) FindManyByRelatedID(_ context.Context, relatedID primitive.ObjectID, beforeUTC time.Time, limit int) ([]*entity.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	messages := []*entity.Message{}
	for _, message := range s.db.messages {
		if message.RelatedID != relatedID {
			continue
		}
		if !beforeUTC.IsZero() && !message.CreatedAt.Before(beforeUTC) {
			continue
		}
		messages = append(messages, cloneMessage(message))
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID.Hex() > messages[j].ID.Hex()
		}
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})

	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (s *MessageStore) SoftDeleteOneByID(_ context.Context, ID primitive.ObjectID, text string) (*entity.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	message, ok := s.db.messages[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	message.Text = text
	message.IsDeleted = true
	message.UpdatedAt = time.Now().UTC()
	return cloneMessage(message), nil
}

func (s *MessageStore) DeleteManyByRelatedIDs(_ context.Context, relatedIDs []primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int64
	for ID, message := range s.db.messages {
		if containsID(relatedIDs, message.RelatedID) {
			delete(s.db.messages, ID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MessageStore) DeleteManyByEventID(_ context.Context, eventID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int64
	for ID, message := range s.db.messages {
		if message.EventID == eventID {
			delete(s.db.messages, ID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MessageStore) FindDistinctEventIDs(_ context.Context) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	eventIDs := []primitive.ObjectID{}
	for _, message := range s.db.messages {
		if !containsID(eventIDs, message.EventID) {
			eventIDs = append(eventIDs, message.EventID)
		}
	}
	return eventIDs, nil
}
