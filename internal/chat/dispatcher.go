package chat

import (
	"encoding/json"
	"log/slog"

	"github.com/ageniuscoder/mmsocial/backend/internal/messages"
)

// Dispatcher pushes stored messages to receivers that are online right now.
// Delivery is at most once: nothing is queued, retried or acknowledged.
type Dispatcher struct {
	presence *Presence
	logger   *slog.Logger
}

func NewDispatcher(presence *Presence, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		presence: presence,
		logger:   logger.With("component", "dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(msg messages.Message) {
	conn, ok := d.presence.Lookup(msg.ReceiverID)
	if !ok {
		d.logger.Debug("receiver offline, push skipped",
			"message_id", msg.ID,
			"receiver", msg.ReceiverID)
		return
	}

	payload, err := json.Marshal(WireMessage{Type: EventNewMessage, Message: &msg})
	if err != nil {
		d.logger.Error("encoding push event", "message_id", msg.ID, "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		d.logger.Warn("push failed",
			"message_id", msg.ID,
			"receiver", msg.ReceiverID,
			"error", err)
	}
}
