package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (s *recordingSink) Send(_ context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) received() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames...)
}

func TestJoinRoom_RequiresRegisteredConnectionOfSameUser(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)

	userID := primitive.NewObjectID()
	roomID := primitive.NewObjectID()

	req.ErrorIs(registry.JoinRoom("c1", userID, roomID), ErrUnknownConnection)

	req.NoError(registry.Connect("c1", userID, &recordingSink{}))
	req.ErrorIs(registry.Connect("c1", userID, &recordingSink{}), ErrDuplicateConnection)
	req.ErrorIs(registry.JoinRoom("c1", primitive.NewObjectID(), roomID), ErrConnectionOwner)

	req.NoError(registry.JoinRoom("c1", userID, roomID))
	req.NoError(registry.JoinRoom("c1", userID, roomID), "joining twice is idempotent")
	req.Equal([]primitive.ObjectID{userID}, registry.UsersInRoom(roomID))
}

func TestUsersInRoom_IsASetAcrossConnections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)

	userID := primitive.NewObjectID()
	roomID := primitive.NewObjectID()

	// Given the same user connected from two devices
	req.NoError(registry.Connect("phone", userID, &recordingSink{}))
	req.NoError(registry.Connect("laptop", userID, &recordingSink{}))
	req.NoError(registry.JoinRoom("phone", userID, roomID))
	req.NoError(registry.JoinRoom("laptop", userID, roomID))

	// Then the user is listed once but both connections are members
	req.Len(registry.UsersInRoom(roomID), 1)
	req.Len(registry.Members(roomID), 2)
}

func TestDisconnect_RemovesConnectionFromEveryRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(2)

	userID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()
	eventRoom := primitive.NewObjectID()
	groupRoom := primitive.NewObjectID()

	req.NoError(registry.Connect("c1", userID, &recordingSink{}))
	req.NoError(registry.Connect("c2", otherID, &recordingSink{}))
	req.NoError(registry.JoinRoom("c1", userID, eventRoom))
	req.NoError(registry.JoinRoom("c1", userID, groupRoom))
	req.NoError(registry.JoinRoom("c2", otherID, eventRoom))

	registry.Disconnect("c1")
	registry.Disconnect("c1")

	req.Equal([]primitive.ObjectID{otherID}, registry.UsersInRoom(eventRoom))
	req.Empty(registry.UsersInRoom(groupRoom))
	req.ErrorIs(registry.JoinRoom("c1", userID, eventRoom), ErrUnknownConnection)
}

func TestLeaveRoom_KeepsOtherRooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8)

	userID := primitive.NewObjectID()
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	req.NoError(registry.Connect("c1", userID, &recordingSink{}))
	req.NoError(registry.JoinRoom("c1", userID, first))
	req.NoError(registry.JoinRoom("c1", userID, second))

	req.NoError(registry.LeaveRoom("c1", first))

	req.Empty(registry.UsersInRoom(first))
	req.Equal([]primitive.ObjectID{userID}, registry.UsersInRoom(second))
	req.ErrorIs(registry.LeaveRoom("missing", first), ErrUnknownConnection)
}

func TestBroadcast_DeliversToExactlyTheRoomSnapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)

	roomID := primitive.NewObjectID()
	inside := &recordingSink{}
	outside := &recordingSink{}
	broken := &recordingSink{err: errors.New("closed")}

	insideUser := primitive.NewObjectID()
	brokenUser := primitive.NewObjectID()

	req.NoError(registry.Connect("inside", insideUser, inside))
	req.NoError(registry.Connect("outside", primitive.NewObjectID(), outside))
	req.NoError(registry.Connect("broken", brokenUser, broken))
	req.NoError(registry.JoinRoom("inside", insideUser, roomID))
	req.NoError(registry.JoinRoom("broken", brokenUser, roomID))

	connected := registry.Broadcast(context.Background(), roomID, Frame{Type: "chat message", Data: "hi"})

	req.ElementsMatch([]primitive.ObjectID{insideUser, brokenUser}, connected)
	req.Equal([]Frame{{Type: "chat message", Data: "hi"}}, inside.received())
	req.Empty(outside.received())
}

func TestRegistry_ConcurrentJoinAndDisconnect(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(16)

	rooms := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			userID := primitive.NewObjectID()
			_ = registry.Connect(connID, userID, &recordingSink{})
			for _, roomID := range rooms {
				_ = registry.JoinRoom(connID, userID, roomID)
				registry.Broadcast(context.Background(), roomID, Frame{Type: "ping"})
			}
			if i%2 == 0 {
				registry.Disconnect(connID)
			}
		}(i)
	}
	wg.Wait()

	for _, roomID := range rooms {
		req.Len(registry.UsersInRoom(roomID), 50)
	}
}
