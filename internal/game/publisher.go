package game

// Publisher delivers an outbound event to every connection currently bound
// to a room's broadcast group.
type Publisher interface {
	PublishToRoom(roomId string, event string, payload any) error
}
