package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/room"
	"github.com/joeyave/patas-arriba/service"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const socketReadLimit = 16 << 10

var (
	errSlowConsumer = errors.New("connection send buffer is full")
	errSinkClosed   = errors.New("connection closed")
)

var validate = validator.New()

type inboundFrame struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

type joinRoomData struct {
	Room        string             `json:"room" validate:"required,len=24,hexadecimal"`
	RelatedType entity.RelatedType `json:"relatedType" validate:"omitempty,oneof=event car-group"`
}

type leaveRoomData struct {
	Room string `json:"room" validate:"required,len=24,hexadecimal"`
}

type chatMessageData struct {
	RelatedType entity.RelatedType `json:"relatedType" validate:"required,oneof=event car-group"`
	RelatedID   string             `json:"relatedId" validate:"required,len=24,hexadecimal"`
	Text        string             `json:"text" validate:"required"`
}

type messageDeleteData struct {
	MessageID string `json:"messageId" validate:"required,len=24,hexadecimal"`
}

// SocketController serves the duplex connection. Every connection gets its own id, so one
// user may be connected from several devices at once.
type SocketController struct {
	Registry       *room.Registry
	MessageService *service.MessageService

	upgrader    websocket.Upgrader
	bufferSize  int
	sendTimeout time.Duration
}

func NewSocketController(registry *room.Registry, messageService *service.MessageService, allowedOrigins []string, bufferSize int, sendTimeout time.Duration) *SocketController {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &SocketController{
		Registry:       registry,
		MessageService: messageService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || lo.Contains(allowedOrigins, "*") || lo.Contains(allowedOrigins, origin)
			},
		},
		bufferSize:  bufferSize,
		sendTimeout: sendTimeout,
	}
}

func (h *SocketController) Connect(ctx *gin.Context) {
	actor := actorFrom(ctx)

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("user", actor.UserID.Hex()).Msg("Socket upgrade failed")
		return
	}

	connID := uuid.NewString()
	sink := newSocketSink(conn, h.bufferSize, h.sendTimeout)

	err = h.Registry.Connect(connID, actor.UserID, sink)
	if err != nil {
		log.Error().Err(err).Str("conn", connID).Msg("Failed to register connection")
		_ = conn.Close()
		return
	}
	log.Debug().Str("conn", connID).Str("user", actor.UserID.Hex()).Msg("Socket connected")

	go sink.writeLoop()
	defer func() {
		h.Registry.Disconnect(connID)
		sink.close()
		log.Debug().Str("conn", connID).Str("user", actor.UserID.Hex()).Msg("Socket disconnected")
	}()

	conn.SetReadLimit(socketReadLimit)
	reqCtx := ctx.Request.Context()

	for {
		var frame inboundFrame
		err := conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", connID).Msg("Socket read failed")
			}
			return
		}

		err = h.handle(reqCtx, connID, actor, frame)
		if err != nil {
			h.sendError(reqCtx, sink, err)
		}
	}
}

func (h *SocketController) handle(ctx context.Context, connID string, actor entity.Actor, frame inboundFrame) error {
	switch frame.Type {
	case room.FrameJoinRoom:
		var data joinRoomData
		err := decodeFrameData(frame, &data)
		if err != nil {
			return err
		}
		roomID, _ := helpers.ParseObjectID(data.Room)

		chatRoom, err := h.authorize(ctx, actor.UserID, data.RelatedType, roomID)
		if err != nil {
			return err
		}
		return h.Registry.JoinRoom(connID, actor.UserID, chatRoom.ID)

	case room.FrameLeaveRoom:
		var data leaveRoomData
		err := decodeFrameData(frame, &data)
		if err != nil {
			return err
		}
		roomID, _ := helpers.ParseObjectID(data.Room)
		return h.Registry.LeaveRoom(connID, roomID)

	case room.FrameChatMessage:
		err := requireParticipant(actor)
		if err != nil {
			return err
		}
		var data chatMessageData
		err = decodeFrameData(frame, &data)
		if err != nil {
			return err
		}
		relatedID, _ := helpers.ParseObjectID(data.RelatedID)
		_, err = h.MessageService.CreateMessage(ctx, actor.UserID, data.RelatedType, relatedID, data.Text)
		return err

	case room.FrameMessageDelete:
		err := requireParticipant(actor)
		if err != nil {
			return err
		}
		var data messageDeleteData
		err = decodeFrameData(frame, &data)
		if err != nil {
			return err
		}
		messageID, _ := helpers.ParseObjectID(data.MessageID)
		_, err = h.MessageService.DeleteMessage(ctx, actor, messageID)
		return err
	}

	return frameError{code: "UnknownFrame", message: "unknown frame type " + frame.Type}
}

// authorize resolves rooms announced without a type as events first, then as car groups.
func (h *SocketController) authorize(ctx context.Context, userID primitive.ObjectID, relatedType entity.RelatedType, roomID primitive.ObjectID) (*service.Room, error) {
	if relatedType != "" {
		return h.MessageService.AuthorizeRoom(ctx, userID, relatedType, roomID)
	}

	chatRoom, err := h.MessageService.AuthorizeRoom(ctx, userID, entity.RelatedTypeEvent, roomID)
	if errors.Is(err, service.ErrEventNotFound) {
		return h.MessageService.AuthorizeRoom(ctx, userID, entity.RelatedTypeCarGroup, roomID)
	}
	return chatRoom, err
}

func (h *SocketController) sendError(ctx context.Context, sink *socketSink, err error) {
	data := room.ErrorData{Code: "Internal", Message: "internal error"}

	var serviceErr *service.Error
	var badFrame frameError
	switch {
	case errors.As(err, &serviceErr):
		data = room.ErrorData{Code: serviceErr.Code, Message: serviceErr.Message}
	case errors.As(err, &badFrame):
		data = room.ErrorData{Code: badFrame.code, Message: badFrame.message}
	case errors.Is(err, room.ErrUnknownConnection), errors.Is(err, room.ErrConnectionOwner):
		data = room.ErrorData{Code: "BadRequest", Message: err.Error()}
	default:
		log.Error().Err(err).Msg("Error:")
	}

	_ = sink.Send(ctx, room.Frame{Type: room.FrameError, Data: data})
}

type frameError struct {
	code    string
	message string
}

func (e frameError) Error() string {
	return e.message
}

// requireParticipant applies the REST role rule to frames that write: pending users may only listen.
func requireParticipant(actor entity.Actor) error {
	if !lo.Contains(participantRoles, actor.Role) {
		return frameError{code: "Forbidden", message: "role not allowed"}
	}
	return nil
}

func decodeFrameData(frame inboundFrame, v any) error {
	if len(frame.Data) == 0 {
		return frameError{code: "BadRequest", message: "frame data is required"}
	}
	err := json.Unmarshal(frame.Data, v)
	if err != nil {
		return frameError{code: "BadRequest", message: err.Error()}
	}
	err = validate.Struct(v)
	if err != nil {
		return frameError{code: "BadRequest", message: err.Error()}
	}
	return nil
}

// socketSink queues frames for one connection. Send never blocks: a client that does not
// keep up loses frames instead of stalling the broadcast.
type socketSink struct {
	conn        *websocket.Conn
	sendTimeout time.Duration

	mu     sync.RWMutex
	out    chan room.Frame
	closed bool
}

func newSocketSink(conn *websocket.Conn, bufferSize int, sendTimeout time.Duration) *socketSink {
	return &socketSink{
		conn:        conn,
		sendTimeout: sendTimeout,
		out:         make(chan room.Frame, bufferSize),
	}
}

func (s *socketSink) Send(_ context.Context, frame room.Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errSinkClosed
	}
	select {
	case s.out <- frame:
		return nil
	default:
		return errSlowConsumer
	}
}

func (s *socketSink) writeLoop() {
	defer s.conn.Close()

	for frame := range s.out {
		if s.sendTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.sendTimeout))
		}
		err := s.conn.WriteJSON(frame)
		if err != nil {
			log.Warn().Err(err).Str("type", frame.Type).Msg("Socket write failed")
			return
		}
	}

	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *socketSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
