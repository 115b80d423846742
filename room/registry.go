//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_sink.go -package=mocks

// Package room keeps the in-memory map of live connections to the chat rooms they joined.
// A room is identified by an event id or a car group id. Nothing here is persisted: clients
// re-announce their rooms after reconnecting.
package room

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrConnectionOwner     = errors.New("connection belongs to another user")
)

// Frame is one message of the duplex contract.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Sink delivers frames to one live connection. Send must not block on a slow client.
type Sink interface {
	Send(ctx context.Context, frame Frame) error
}

// Member is a connection inside a room.
type Member struct {
	ConnID string
	UserID primitive.ObjectID
	Sink   Sink
}

type connection struct {
	userID primitive.ObjectID
	sink   Sink
	rooms  map[primitive.ObjectID]struct{}
}

type shard struct {
	mu    sync.RWMutex
	rooms map[primitive.ObjectID]map[string]Member
}

// Registry is the only writer of room membership.
// Lock order is Registry.mu before any shard.mu.
type Registry struct {
	mu          sync.Mutex
	connections map[string]*connection

	shards []*shard
}

func NewRegistry(shardCount int) *Registry {
	if shardCount < 1 {
		shardCount = 1
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{rooms: make(map[primitive.ObjectID]map[string]Member)}
	}

	return &Registry{
		connections: make(map[string]*connection),
		shards:      shards,
	}
}

func (r *Registry) shardFor(roomID primitive.ObjectID) *shard {
	h := fnv.New32a()
	_, _ = h.Write(roomID[:])
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Connect registers a live connection of an authenticated user.
func (r *Registry) Connect(connID string, userID primitive.ObjectID, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[connID]; exists {
		return ErrDuplicateConnection
	}

	r.connections[connID] = &connection{
		userID: userID,
		sink:   sink,
		rooms:  make(map[primitive.ObjectID]struct{}),
	}
	return nil
}

// JoinRoom is idempotent. Authorization for the room is checked by the caller.
func (r *Registry) JoinRoom(connID string, userID, roomID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if conn.userID != userID {
		return ErrConnectionOwner
	}

	conn.rooms[roomID] = struct{}{}

	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[string]Member)
		s.rooms[roomID] = members
	}
	members[connID] = Member{ConnID: connID, UserID: conn.userID, Sink: conn.sink}

	return nil
}

func (r *Registry) LeaveRoom(connID string, roomID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return ErrUnknownConnection
	}

	delete(conn.rooms, roomID)
	r.removeMember(connID, roomID)
	return nil
}

// Disconnect removes the connection from every room it joined. Unknown ids are ignored.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return
	}
	delete(r.connections, connID)

	for roomID := range conn.rooms {
		r.removeMember(connID, roomID)
	}
}

// removeMember expects r.mu to be held.
func (r *Registry) removeMember(connID string, roomID primitive.ObjectID) {
	s := r.shardFor(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
	}
}

// Members returns a snapshot of the connections in the room.
func (r *Registry) Members(roomID primitive.ObjectID) []Member {
	s := r.shardFor(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]Member, 0, len(s.rooms[roomID]))
	for _, member := range s.rooms[roomID] {
		members = append(members, member)
	}
	return members
}

// UsersInRoom returns the distinct users connected to the room.
func (r *Registry) UsersInRoom(roomID primitive.ObjectID) []primitive.ObjectID {
	return userIDs(r.Members(roomID))
}

// Broadcast sends the frame to every connection of the room snapshot and returns the users
// of that same snapshot. A failing sink is logged and skipped.
func (r *Registry) Broadcast(ctx context.Context, roomID primitive.ObjectID, frame Frame) []primitive.ObjectID {
	members := r.Members(roomID)

	for _, member := range members {
		err := member.Sink.Send(ctx, frame)
		if err != nil {
			log.Warn().Err(err).
				Str("conn", member.ConnID).
				Str("room", roomID.Hex()).
				Str("type", frame.Type).
				Msg("Failed to deliver frame")
		}
	}

	return userIDs(members)
}

func userIDs(members []Member) []primitive.ObjectID {
	return lo.Uniq(lo.Map(members, func(member Member, _ int) primitive.ObjectID {
		return member.UserID
	}))
}
