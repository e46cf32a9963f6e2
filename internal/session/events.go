package session

import (
	"github.com/pixil98/catroom/internal/game"
	"github.com/pixil98/catroom/internal/roomlist"
)

// Inbound event names, in registration order. The order is part of the
// observable contract: clients and tests rely on it staying fixed.
const (
	EventUserCreation         = "userCreation"
	EventUpdatePlayerPosition = "updatePlayerPosition"
	EventMessage              = "message"
	EventGetRoomList          = "getRoomList"
	EventDisconnect           = "disconnect"
)

// Outbound event names.
const (
	EventInitMap          = "initMap"
	EventUserCreated      = "userCreated"
	EventUpdateRoomList   = "updateRoomList"
	EventUserDisconnected = "userDisconnected"
)

type userCreationPayload struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
	AvatarId string `json:"avatarId"`
}

type initMapPayload struct {
	GridSize int `json:"gridSize"`
}

type userCreatedPayload struct {
	NewUser game.User   `json:"newUser"`
	Players []game.User `json:"_players"`
}

type messagePayload struct {
	Message string `json:"message"`
	UserId  string `json:"userId"`
}

type roomListPayload struct {
	Rooms []roomlist.Summary `json:"rooms"`
}

type userDisconnectedPayload struct {
	UserId string `json:"userId"`
	RoomId string `json:"roomId"`
}
