package chat

import (
	"encoding/json"
	"log/slog"
)

// Hub ties websocket sessions to the presence tracker and tells connected
// users who else is online whenever that changes.
type Hub struct {
	Presence *Presence
	logger   *slog.Logger
}

func NewHub(presence *Presence, logger *slog.Logger) *Hub {
	return &Hub{
		Presence: presence,
		logger:   logger.With("component", "hub"),
	}
}

func (h *Hub) Attach(userID string, conn Conn) {
	h.Presence.Register(userID, conn)
	h.logger.Info("user online", "user_id", userID)
	h.BroadcastOnline()
}

func (h *Hub) Detach(userID string, conn Conn) {
	if !h.Presence.Unregister(conn) {
		// Superseded by a newer connection; routing already points there.
		return
	}
	h.logger.Info("user offline", "user_id", userID)
	h.BroadcastOnline()
}

// BroadcastOnline sends the current online-user list to every live
// connection. Failures are ignored; the next change sends a fresh list.
func (h *Hub) BroadcastOnline() {
	payload, err := json.Marshal(WireMessage{Type: EventOnlineUsers, Users: h.Presence.Online()})
	if err != nil {
		h.logger.Error("encoding online users", "error", err)
		return
	}
	for _, conn := range h.Presence.conns() {
		if err := conn.Send(payload); err != nil {
			h.logger.Debug("online users not delivered", "error", err)
		}
	}
}
