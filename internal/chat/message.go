package chat

import "github.com/ageniuscoder/mmsocial/backend/internal/messages"

const (
	EventNewMessage  = "newMessage"
	EventOnlineUsers = "onlineUsers"
)

// WireMessage is the envelope of every server-to-client websocket frame.
type WireMessage struct {
	Type    string            `json:"type"`
	Message *messages.Message `json:"message,omitempty"`
	Users   []string          `json:"users,omitempty"`
}
