package messages

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ageniuscoder/mmsocial/backend/internal/apperr"
	"github.com/ageniuscoder/mmsocial/backend/internal/conversations"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/google/uuid"
)

// MaxBodyLength caps a message body, counted in runes.
const MaxBodyLength = 4096

// Message is immutable once appended to the log.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Page bounds a Fetch. The zero value returns every message; an Offset
// without a Limit skips that many and returns the rest.
type Page struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Log is the append-only message store. It is the only place message bodies
// are kept; conversations reference messages by ID.
type Log struct {
	conn storage.Conn
	Now  func() time.Time
}

func NewLog(conn storage.Conn) *Log {
	return &Log{conn: conn, Now: time.Now}
}

// ValidateBody checks a text body before it is appended.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return apperr.Validation("message body must not be empty")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return apperr.Validation("message body must be at most %d characters", MaxBodyLength)
	}
	return nil
}

// Append persists a new message. It is not yet reachable from any
// conversation until LinkToConversation succeeds.
func (l *Log) Append(ctx context.Context, senderID, receiverID, body string) (Message, error) {
	if err := ValidateBody(body); err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  l.Now().UTC(),
	}
	_, err := l.conn.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Body, storage.FormatTime(msg.CreatedAt))
	if err != nil {
		return Message{}, apperr.Storage("inserting message", err)
	}
	return msg, nil
}

// LinkToConversation appends messageID to the conversation's ordered list and
// refreshes its last-modified time. conv is updated to match what was stored.
// The conversation row is written first so that concurrent links to the same
// conversation take their sequence numbers in commit order.
func (l *Log) LinkToConversation(ctx context.Context, conv *conversations.Conversation, messageID string) error {
	now := l.Now().UTC()
	if _, err := l.conn.Exec(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?`,
		storage.FormatTime(now), conv.ID); err != nil {
		return apperr.Storage("touching conversation", err)
	}
	if _, err := l.conn.Exec(ctx, `
		INSERT INTO conversation_messages (conversation_id, message_id) VALUES (?, ?)`,
		conv.ID, messageID); err != nil {
		return apperr.Storage("linking message", err)
	}
	conv.MessageIDs = append(conv.MessageIDs, messageID)
	conv.UpdatedAt = now
	return nil
}

// Fetch materialises the messages of a conversation in list order. An
// unknown conversation yields an empty slice.
func (l *Log) Fetch(ctx context.Context, conversationID string, page Page) ([]Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.body, m.created_at
		FROM conversation_messages cm
		JOIN messages m ON m.id = cm.message_id
		WHERE cm.conversation_id = ?
		ORDER BY cm.seq`
	args := []any{conversationID}
	switch {
	case page.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, max(page.Offset, 0))
	case page.Offset > 0 && l.conn.Dialect() == storage.SQLite:
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, page.Offset)
	case page.Offset > 0:
		query += ` OFFSET ?`
		args = append(args, page.Offset)
	}
	return l.query(ctx, "fetching messages", query, args...)
}

// Orphans lists messages that are not linked to any conversation. The send
// path writes both records in one transaction, so this should stay empty.
func (l *Log) Orphans(ctx context.Context) ([]Message, error) {
	return l.query(ctx, "listing orphan messages", `
		SELECT m.id, m.sender_id, m.receiver_id, m.body, m.created_at
		FROM messages m
		LEFT JOIN conversation_messages cm ON cm.message_id = m.id
		WHERE cm.message_id IS NULL
		ORDER BY m.created_at`)
}

func (l *Log) query(ctx context.Context, op, query string, args ...any) ([]Message, error) {
	rows, err := l.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	list := make([]Message, 0)
	for rows.Next() {
		var (
			m       Message
			created string
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &created); err != nil {
			return nil, apperr.Storage(op, err)
		}
		if m.CreatedAt, err = storage.ParseTime(created); err != nil {
			return nil, apperr.Storage(op, err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return list, nil
}
