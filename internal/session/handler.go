package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pixil98/catroom/internal/game"
	"github.com/pixil98/catroom/internal/roomlist"
	"github.com/pixil98/catroom/internal/storage"
)

// JoinFunc binds the session's connection to a room's broadcast group so
// every subsequent room-scoped event reaches it.
type JoinFunc func(roomId string) error

// Manager builds a Handler per accepted connection, sharing the process
// wide collaborators between them.
type Manager struct {
	registry *game.Registry
	mover    *game.Mover
	avatars  storage.Storer[*game.Avatar]
	fallback *game.Avatar
	rooms    *roomlist.Service
	pub      game.Publisher
	gridSize int
}

func NewManager(
	registry *game.Registry,
	mover *game.Mover,
	avatars storage.Storer[*game.Avatar],
	fallback *game.Avatar,
	rooms *roomlist.Service,
	pub game.Publisher,
	gridSize int,
) *Manager {
	return &Manager{
		registry: registry,
		mover:    mover,
		avatars:  avatars,
		fallback: fallback,
		rooms:    rooms,
		pub:      pub,
		gridSize: gridSize,
	}
}

// NewHandler creates the event handler for one connection. The generated
// id identifies the user for the connection's lifetime.
func (m *Manager) NewHandler(join JoinFunc) *Handler {
	h := &Handler{
		id:   uuid.NewString(),
		m:    m,
		join: join,
	}

	// Registration order is fixed and observable through EventNames.
	h.events = []eventHandler{
		{EventUserCreation, h.userCreation},
		{EventUpdatePlayerPosition, h.updatePlayerPosition},
		{EventMessage, h.message},
		{EventGetRoomList, h.getRoomList},
		{EventDisconnect, h.disconnect},
	}

	return h
}

type eventHandler struct {
	name string
	fn   func(ctx context.Context, data json.RawMessage)
}

// Handler dispatches one connection's inbound events. All events for a
// connection arrive on a single goroutine (the transport read loop), so
// session state needs no lock; shared state lives behind the registry.
type Handler struct {
	id     string
	m      *Manager
	join   JoinFunc
	events []eventHandler

	user *game.User // nil until userCreation
}

// Id returns the connection-scoped user identifier.
func (h *Handler) Id() string {
	return h.id
}

// EventNames returns the handled event names in registration order.
func (h *Handler) EventNames() []string {
	names := make([]string, len(h.events))
	for i, e := range h.events {
		names[i] = e.name
	}
	return names
}

// Dispatch routes an inbound event to its handler. Unknown events and
// malformed payloads are logged and dropped; no error or panic escapes
// the handler boundary.
func (h *Handler) Dispatch(ctx context.Context, event string, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event handler panic", "event", event, "user", h.id, "panic", r)
		}
	}()

	for _, e := range h.events {
		if e.name == event {
			e.fn(ctx, data)
			return
		}
	}

	slog.WarnContext(ctx, "unknown event", "event", event, "user", h.id)
}

func (h *Handler) userCreation(ctx context.Context, data json.RawMessage) {
	if h.user != nil {
		slog.WarnContext(ctx, "duplicate userCreation", "user", h.id)
		return
	}

	var p userCreationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		slog.WarnContext(ctx, "malformed userCreation payload", "user", h.id, "error", err)
		return
	}
	if p.RoomName == "" || p.UserName == "" {
		slog.WarnContext(ctx, "userCreation missing fields", "user", h.id)
		return
	}

	avatar := h.m.avatars.Get(p.AvatarId)
	if avatar == nil {
		slog.WarnContext(ctx, "unknown avatar, using fallback", "user", h.id, "avatar", p.AvatarId)
		avatar = h.m.fallback
	}

	user := &game.User{
		UserId:      h.id,
		RoomId:      p.RoomName,
		UserName:    p.UserName,
		Avatar:      avatar,
		Position:    game.RandomPosition(h.m.gridSize),
		AvatarXAxis: game.XAxisRight,
	}

	if err := h.m.registry.Join(p.RoomName, user); err != nil {
		slog.WarnContext(ctx, "joining room", "user", h.id, "room", p.RoomName, "error", err)
		return
	}
	h.user = user

	if err := h.join(p.RoomName); err != nil {
		slog.WarnContext(ctx, "binding to room group", "user", h.id, "room", p.RoomName, "error", err)
	}

	h.publish(ctx, EventInitMap, initMapPayload{GridSize: h.m.gridSize})
	h.publish(ctx, EventUserCreated, userCreatedPayload{
		NewUser: *user,
		Players: h.m.registry.MembersOf(p.RoomName),
	})
}

func (h *Handler) updatePlayerPosition(ctx context.Context, data json.RawMessage) {
	if h.user == nil {
		slog.WarnContext(ctx, "updatePlayerPosition before userCreation", "user", h.id)
		return
	}

	var dest game.Position
	if err := json.Unmarshal(data, &dest); err != nil {
		slog.WarnContext(ctx, "malformed updatePlayerPosition payload", "user", h.id, "error", err)
		return
	}

	// Walk clamps and schedules; it never blocks the event stream.
	h.m.mover.Walk(h.user.RoomId, h.user.UserId, dest)
}

func (h *Handler) message(ctx context.Context, data json.RawMessage) {
	if h.user == nil {
		slog.WarnContext(ctx, "message before userCreation", "user", h.id)
		return
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		slog.WarnContext(ctx, "malformed message payload", "user", h.id, "error", err)
		return
	}

	h.publish(ctx, EventMessage, messagePayload{Message: text, UserId: h.user.UserId})
}

func (h *Handler) getRoomList(ctx context.Context, _ json.RawMessage) {
	if h.user == nil {
		slog.WarnContext(ctx, "getRoomList before userCreation", "user", h.id)
		return
	}

	h.publish(ctx, EventUpdateRoomList, roomListPayload{Rooms: h.m.rooms.List()})
}

// disconnect is dispatched by the transport when the connection closes
// (clients don't send it). Safe to dispatch more than once.
func (h *Handler) disconnect(ctx context.Context, _ json.RawMessage) {
	if h.user == nil {
		return
	}
	roomId := h.user.RoomId

	h.m.mover.Stop(h.user.UserId)
	h.m.registry.Leave(roomId, h.user.UserId)
	h.user = nil

	// Room scoped: only the departed user's former room cares.
	if err := h.m.pub.PublishToRoom(roomId, EventUserDisconnected, userDisconnectedPayload{
		UserId: h.id,
		RoomId: roomId,
	}); err != nil {
		slog.WarnContext(ctx, "broadcasting userDisconnected", "user", h.id, "room", roomId, "error", err)
	}
}

func (h *Handler) publish(ctx context.Context, event string, payload any) {
	if err := h.m.pub.PublishToRoom(h.user.RoomId, event, payload); err != nil {
		slog.WarnContext(ctx, "broadcasting event", "event", event, "user", h.id, "error", err)
	}
}
