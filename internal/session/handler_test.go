package session

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/catroom/internal/game"
	"github.com/pixil98/catroom/internal/roomlist"
	"github.com/pixil98/go-testutil"
)

type recordedEvent struct {
	roomId  string
	event   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishToRoom(roomId string, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, recordedEvent{roomId: roomId, event: event, payload: payload})
	return nil
}

func (p *recordingPublisher) snapshot() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]recordedEvent(nil), p.events...)
}

func (p *recordingPublisher) named(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range p.snapshot() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// mapStorer is an in-memory storage.Storer for tests.
type mapStorer struct {
	avatars map[string]*game.Avatar
}

func (s *mapStorer) Get(id string) *game.Avatar {
	return s.avatars[id]
}

func (s *mapStorer) GetAll() map[string]*game.Avatar {
	return s.avatars
}

var (
	tabby  = &game.Avatar{Name: "Tabby", Sprite: "tabby.png"}
	stray  = &game.Avatar{Name: "Stray", Sprite: "stray.png"}
	noJoin = func(string) error { return nil }
)

type fixture struct {
	registry *game.Registry
	pub      *recordingPublisher
	manager  *Manager
}

func newFixture(t *testing.T, interval time.Duration, gridSize int) *fixture {
	t.Helper()

	registry := game.NewRegistry()
	pub := &recordingPublisher{}
	mover := game.NewMover(registry, pub, interval, gridSize)
	avatars := &mapStorer{avatars: map[string]*game.Avatar{"tabby": tabby}}
	rooms := roomlist.NewService(registry)

	return &fixture{
		registry: registry,
		pub:      pub,
		manager:  NewManager(registry, mover, avatars, stray, rooms, pub, gridSize),
	}
}

func dispatch(t *testing.T, h *Handler, event string, payload any) {
	t.Helper()

	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshalling payload: %v", err)
		}
	}
	h.Dispatch(context.Background(), event, data)
}

func createUser(t *testing.T, h *Handler, room, name string) {
	t.Helper()

	dispatch(t, h, EventUserCreation, userCreationPayload{
		RoomName: room,
		UserName: name,
		AvatarId: "tabby",
	})
}

func TestHandler_EventRegistrationOrder(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	exp := []string{
		"userCreation",
		"updatePlayerPosition",
		"message",
		"getRoomList",
		"disconnect",
	}
	if !reflect.DeepEqual(h.EventNames(), exp) {
		t.Errorf("event order %v, expected %v", h.EventNames(), exp)
	}
}

func TestHandler_UserCreation(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)

	var joined []string
	h := f.manager.NewHandler(func(roomId string) error {
		joined = append(joined, roomId)
		return nil
	})

	createUser(t, h, "lobby", "whiskers")

	testutil.AssertEqual(t, "rooms joined", len(joined), 1)
	testutil.AssertEqual(t, "joined room", joined[0], "lobby")

	events := f.pub.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(events))
	}

	// initMap first, then userCreated, both to the new user's room.
	testutil.AssertEqual(t, "first event", events[0].event, EventInitMap)
	testutil.AssertEqual(t, "first event room", events[0].roomId, "lobby")
	testutil.AssertEqual(t, "grid size", events[0].payload.(initMapPayload).GridSize, 8)

	testutil.AssertEqual(t, "second event", events[1].event, EventUserCreated)
	created := events[1].payload.(userCreatedPayload)
	testutil.AssertEqual(t, "new user name", created.NewUser.UserName, "whiskers")
	testutil.AssertEqual(t, "new user id", created.NewUser.UserId, h.Id())
	testutil.AssertEqual(t, "new user room", created.NewUser.RoomId, "lobby")
	testutil.AssertEqual(t, "avatar", created.NewUser.Avatar, tabby)
	testutil.AssertEqual(t, "facing", created.NewUser.AvatarXAxis, game.XAxisRight)

	if p := created.NewUser.Position; p.Row < 0 || p.Row >= 8 || p.Col < 0 || p.Col >= 8 {
		t.Errorf("initial position %v out of bounds", p)
	}

	occurrences := 0
	for _, u := range created.Players {
		if u.UserId == h.Id() {
			occurrences++
		}
	}
	testutil.AssertEqual(t, "new user in _players", occurrences, 1)
}

func TestHandler_UserCreationSnapshotIncludesEarlierMembers(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)

	first := f.manager.NewHandler(noJoin)
	createUser(t, first, "lobby", "whiskers")

	second := f.manager.NewHandler(noJoin)
	createUser(t, second, "lobby", "mittens")

	created := f.pub.named(EventUserCreated)
	if len(created) != 2 {
		t.Fatalf("expected 2 userCreated broadcasts, got %d", len(created))
	}

	players := created[1].payload.(userCreatedPayload).Players
	testutil.AssertEqual(t, "player count", len(players), 2)
	testutil.AssertEqual(t, "join order first", players[0].UserId, first.Id())
	testutil.AssertEqual(t, "join order second", players[1].UserId, second.Id())
}

func TestHandler_UserCreationUnknownAvatarFallsBack(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	dispatch(t, h, EventUserCreation, userCreationPayload{
		RoomName: "lobby",
		UserName: "whiskers",
		AvatarId: "no-such-avatar",
	})

	created := f.pub.named(EventUserCreated)
	if len(created) != 1 {
		t.Fatalf("expected 1 userCreated broadcast, got %d", len(created))
	}
	testutil.AssertEqual(t, "avatar", created[0].payload.(userCreatedPayload).NewUser.Avatar, stray)
}

func TestHandler_UserCreationDropsBadPayloads(t *testing.T) {
	tests := map[string]struct {
		raw string
	}{
		"not json":          {raw: `{nope`},
		"missing room name": {raw: `{"userName":"whiskers","avatarId":"tabby"}`},
		"missing user name": {raw: `{"roomName":"lobby","avatarId":"tabby"}`},
		"wrong types":       {raw: `{"roomName":7,"userName":true}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, time.Millisecond, 8)
			h := f.manager.NewHandler(noJoin)

			h.Dispatch(context.Background(), EventUserCreation, json.RawMessage(tt.raw))

			testutil.AssertEqual(t, "broadcast count", len(f.pub.snapshot()), 0)
			testutil.AssertEqual(t, "room count", len(f.registry.AllRooms()), 0)
		})
	}
}

func TestHandler_DuplicateUserCreationDropped(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	createUser(t, h, "lobby", "whiskers")
	createUser(t, h, "attic", "whiskers")

	testutil.AssertEqual(t, "broadcast count", len(f.pub.snapshot()), 2)
	counts := f.registry.AllRooms()
	testutil.AssertEqual(t, "room count", len(counts), 1)
	testutil.AssertEqual(t, "lobby members", counts["lobby"], 1)
}

func TestHandler_UpdatePlayerPosition(t *testing.T) {
	const interval = 10 * time.Millisecond

	f := newFixture(t, interval, 8)
	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	start, _ := f.registry.Get("lobby", h.Id())
	dest := game.Position{Row: 0, Col: 3}
	distance := start.Position.ManhattanDistance(dest)

	dispatch(t, h, EventUpdatePlayerPosition, dest)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.pub.named(EventUpdatePlayerPosition)) >= distance {
			break
		}
		time.Sleep(interval / 2)
	}
	time.Sleep(3 * interval)

	testutil.AssertEqual(t, "tick count", len(f.pub.named(EventUpdatePlayerPosition)), distance)

	final, _ := f.registry.Get("lobby", h.Id())
	testutil.AssertEqual(t, "final position", final.Position, dest)
}

func TestHandler_UpdatePlayerPositionBeforeCreation(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	dispatch(t, h, EventUpdatePlayerPosition, game.Position{Row: 1, Col: 1})

	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, "broadcast count", len(f.pub.snapshot()), 0)
}

func TestHandler_Message(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	dispatch(t, h, EventMessage, "hello world")

	msgs := f.pub.named(EventMessage)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message broadcast, got %d", len(msgs))
	}
	testutil.AssertEqual(t, "room", msgs[0].roomId, "lobby")
	testutil.AssertEqual(t, "text", msgs[0].payload.(messagePayload).Message, "hello world")
	testutil.AssertEqual(t, "sender", msgs[0].payload.(messagePayload).UserId, h.Id())
}

func TestHandler_MessageBeforeCreation(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	dispatch(t, h, EventMessage, "hello?")

	testutil.AssertEqual(t, "broadcast count", len(f.pub.snapshot()), 0)
}

func TestHandler_GetRoomList(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)

	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	other := f.manager.NewHandler(noJoin)
	createUser(t, other, "attic", "mittens")

	dispatch(t, h, EventGetRoomList, nil)

	lists := f.pub.named(EventUpdateRoomList)
	if len(lists) != 1 {
		t.Fatalf("expected 1 updateRoomList broadcast, got %d", len(lists))
	}
	testutil.AssertEqual(t, "room", lists[0].roomId, "lobby")

	exp := []roomlist.Summary{
		{Title: "attic", NumCats: 1},
		{Title: "lobby", NumCats: 1},
	}
	if !reflect.DeepEqual(lists[0].payload.(roomListPayload).Rooms, exp) {
		t.Errorf("rooms %v, expected %v", lists[0].payload.(roomListPayload).Rooms, exp)
	}
}

func TestHandler_Disconnect(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	dispatch(t, h, EventDisconnect, nil)

	gone := f.pub.named(EventUserDisconnected)
	if len(gone) != 1 {
		t.Fatalf("expected 1 userDisconnected broadcast, got %d", len(gone))
	}
	testutil.AssertEqual(t, "room", gone[0].roomId, "lobby")
	testutil.AssertEqual(t, "user id", gone[0].payload.(userDisconnectedPayload).UserId, h.Id())
	testutil.AssertEqual(t, "room id", gone[0].payload.(userDisconnectedPayload).RoomId, "lobby")

	testutil.AssertEqual(t, "room count", len(f.registry.AllRooms()), 0)
}

func TestHandler_DisconnectIsIdempotent(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	dispatch(t, h, EventDisconnect, nil)
	dispatch(t, h, EventDisconnect, nil)

	testutil.AssertEqual(t, "userDisconnected count", len(f.pub.named(EventUserDisconnected)), 1)
}

func TestHandler_DisconnectCancelsWalk(t *testing.T) {
	const interval = 20 * time.Millisecond

	f := newFixture(t, interval, 10)
	h := f.manager.NewHandler(noJoin)
	createUser(t, h, "lobby", "whiskers")

	dispatch(t, h, EventUpdatePlayerPosition, game.Position{Row: 9, Col: 9})
	dispatch(t, h, EventDisconnect, nil)

	time.Sleep(4 * interval)
	testutil.AssertEqual(t, "ticks after disconnect", len(f.pub.named(EventUpdatePlayerPosition)), 0)
}

func TestHandler_UnknownEventDropped(t *testing.T) {
	f := newFixture(t, time.Millisecond, 8)
	h := f.manager.NewHandler(noJoin)

	h.Dispatch(context.Background(), "teleport", json.RawMessage(`{}`))

	testutil.AssertEqual(t, "broadcast count", len(f.pub.snapshot()), 0)
}
