package game

import (
	"log/slog"
	"sync"
	"time"
)

// The per-tick position broadcast mirrors the inbound event name so clients
// reuse one handler for both directions.
const eventPlayerStepped = "updatePlayerPosition"

type stepBroadcast struct {
	UserId      string   `json:"userId"`
	Position    Position `json:"position"`
	AvatarXAxis XAxis    `json:"avatarXAxis"`
}

// Mover animates user movement: one grid cell per tick, scheduled on a
// timer rather than a dedicated goroutine per user, until the destination
// is reached. Each user has at most one stepper in flight; a new walk
// supersedes the previous one before its next tick can fire.
type Mover struct {
	registry *Registry
	pub      Publisher
	interval time.Duration
	gridSize int

	mu     sync.Mutex
	active map[string]*stepper
}

type stepper struct {
	userId    string
	roomId    string
	dest      Position
	timer     *time.Timer
	cancelled bool
}

func NewMover(registry *Registry, pub Publisher, interval time.Duration, gridSize int) *Mover {
	return &Mover{
		registry: registry,
		pub:      pub,
		interval: interval,
		gridSize: gridSize,
		active:   make(map[string]*stepper),
	}
}

// Walk starts stepping a user toward dest, cancelling any walk already in
// flight for that user. Destinations outside the grid are clamped to the
// nearest valid cell. Walk returns immediately; once it has returned, no
// further tick from a superseded walk is observable.
func (m *Mover) Walk(roomId string, userId string, dest Position) {
	dest = dest.Clamp(m.gridSize)

	user, ok := m.registry.Get(roomId, userId)
	if !ok {
		slog.Warn("walk for unknown user", "room", roomId, "user", userId)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked(userId)

	// Already there: a zero-distance walk produces zero ticks.
	if user.Position == dest {
		return
	}

	s := &stepper{
		userId: userId,
		roomId: roomId,
		dest:   dest,
	}
	s.timer = time.AfterFunc(m.interval, func() { m.tick(s) })
	m.active[userId] = s
}

// Stop cancels any in-flight walk for the user. Used on disconnect.
func (m *Mover) Stop(userId string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked(userId)
}

func (m *Mover) cancelLocked(userId string) {
	if s, ok := m.active[userId]; ok {
		s.cancelled = true
		s.timer.Stop()
		delete(m.active, userId)
	}
}

// tick performs one movement step. The broadcast happens under the mover
// lock so a Walk or Stop that has returned can never be followed by a tick
// from the stepper it cancelled.
func (m *Mover) tick(s *stepper) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.cancelled {
		return
	}

	user, ok := m.registry.StepToward(s.roomId, s.userId, s.dest)
	if !ok {
		// User left mid-walk, nothing more to animate.
		delete(m.active, s.userId)
		return
	}

	err := m.pub.PublishToRoom(s.roomId, eventPlayerStepped, stepBroadcast{
		UserId:      user.UserId,
		Position:    user.Position,
		AvatarXAxis: user.AvatarXAxis,
	})
	if err != nil {
		slog.Warn("broadcasting movement step", "room", s.roomId, "user", s.userId, "error", err)
	}

	if user.Position == s.dest {
		delete(m.active, s.userId)
		return
	}

	s.timer = time.AfterFunc(m.interval, func() { m.tick(s) })
}
