package listener

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/pixil98/catroom/internal/messaging"
	"github.com/pixil98/catroom/internal/session"
)

// Subscriber is the subscribe side of the broadcast transport.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// outboundBuffer bounds the per-connection write queue. A client that
// cannot drain its broadcasts loses frames rather than stalling the bus.
const outboundBuffer = 64

type ConnectionManager struct {
	sessions *session.Manager
	bus      Subscriber
}

func NewConnectionManager(sessions *session.Manager, bus Subscriber) *ConnectionManager {
	return &ConnectionManager{
		sessions: sessions,
		bus:      bus,
	}
}

// AcceptConnection runs one websocket connection to completion: a write
// pump drains room broadcasts to the client while the read loop feeds
// inbound events to the session handler. When the read loop ends, for any
// reason, a disconnect event is dispatched on the handler's behalf.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn *websocket.Conn) {
	msgs := make(chan []byte, outboundBuffer)

	var unsub func()
	join := func(roomId string) error {
		if unsub != nil {
			// One room per connection; a second join keeps the first binding.
			return nil
		}
		u, err := m.bus.Subscribe(messaging.RoomSubject(roomId), func(data []byte) {
			select {
			case msgs <- data:
			default:
				slog.Warn("dropping broadcast for slow client", "room", roomId)
			}
		})
		if err != nil {
			return err
		}
		unsub = u
		return nil
	}

	h := m.sessions.NewHandler(join)

	writeCtx, stopWriter := context.WithCancel(ctx)
	defer stopWriter()
	go writePump(writeCtx, conn, msgs)

	m.readLoop(ctx, conn, h)

	h.Dispatch(ctx, session.EventDisconnect, nil)
	if unsub != nil {
		unsub()
	}
}

func (m *ConnectionManager) readLoop(ctx context.Context, conn *websocket.Conn, h *session.Handler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.WarnContext(ctx, "reading client frame", "user", h.Id(), "error", err)
			}
			return
		}

		var env messaging.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.WarnContext(ctx, "malformed client frame", "user", h.Id(), "error", err)
			continue
		}

		h.Dispatch(ctx, env.Event, env.Data)
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-msgs:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("writing client frame", "error", err)
				return
			}
		}
	}
}
