package game

import (
	"fmt"
	"math/rand/v2"
)

// XAxis is the horizontal orientation of a user's avatar, derived from the
// direction of the most recent horizontal movement step.
type XAxis string

const (
	XAxisLeft  XAxis = "left"
	XAxisRight XAxis = "right"
)

// Position is a cell on the room grid. Valid coordinates satisfy
// 0 <= Row,Col < gridSize.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Clamp returns the position bounded to a size x size grid.
func (p Position) Clamp(size int) Position {
	return Position{
		Row: min(max(p.Row, 0), size-1),
		Col: min(max(p.Col, 0), size-1),
	}
}

// ManhattanDistance returns the step count between two cells when movement
// advances one cell per step along a single axis.
func (p Position) ManhattanDistance(o Position) int {
	return abs(p.Row-o.Row) + abs(p.Col-o.Col)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// RandomPosition returns a uniformly random cell on a size x size grid.
func RandomPosition(size int) Position {
	return Position{
		Row: rand.IntN(size),
		Col: rand.IntN(size),
	}
}

// User is a connected user's presence in a room. A user belongs to exactly
// one room for its whole lifetime; it is created when the client announces
// itself and destroyed on disconnect. The wire shape matches what clients
// render, so the JSON tags are part of the protocol.
type User struct {
	UserId      string   `json:"userId"`
	RoomId      string   `json:"roomId"`
	UserName    string   `json:"userName"`
	Avatar      *Avatar  `json:"avatar"`
	Position    Position `json:"position"`
	AvatarXAxis XAxis    `json:"avatarXAxis"`
}

func (u *User) String() string {
	return fmt.Sprintf("%s (%s) in %s at %d,%d", u.UserName, u.UserId, u.RoomId, u.Position.Row, u.Position.Col)
}
