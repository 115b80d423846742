package memstore

import (
	"context"

	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore struct {
	db *DB
}

func (s *UserStore) FindOneByID(_ context.Context, ID primitive.ObjectID) (*entity.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	user, ok := s.db.users[ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *user
	return &c, nil
}

// PutUser stands in for the identity service, which owns the users collection.
func (db *DB) PutUser(user *entity.User) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	c := *user
	db.users[user.ID] = &c
}
