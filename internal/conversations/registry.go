package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/apperr"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Find when no conversation exists for a pair.
var ErrNotFound = errors.New("conversation not found")

// Conversation pairs exactly two participants with the ordered IDs of the
// messages exchanged between them. Bodies live in the message log only.
type Conversation struct {
	ID           string
	Participants [2]string
	MessageIDs   []string
	UpdatedAt    time.Time
}

// Summary is the list projection of a Conversation.
type Summary struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Registry resolves the single conversation of an unordered participant pair.
type Registry struct {
	conn storage.Conn
	Now  func() time.Time
}

func NewRegistry(conn storage.Conn) *Registry {
	return &Registry{conn: conn, Now: time.Now}
}

// PairKey is the canonical, order-independent key of a participant pair.
// The length prefix keeps keys unambiguous for identifiers containing ':'.
func PairKey(a, b string) string {
	lo, hi := sortPair(a, b)
	return fmt.Sprintf("%d:%s:%s", len(lo), lo, hi)
}

func sortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// GetOrCreate returns the conversation between userA and userB, creating an
// empty one if none exists. Concurrent first contacts converge on one row
// through the unique pair key.
func (r *Registry) GetOrCreate(ctx context.Context, userA, userB string) (*Conversation, error) {
	if userA == "" || userB == "" {
		return nil, apperr.Validation("both participants are required")
	}
	if userA == userB {
		return nil, apperr.Validation("cannot start a conversation with yourself")
	}

	lo, hi := sortPair(userA, userB)
	now := storage.FormatTime(r.Now())
	_, err := r.conn.Exec(ctx, `
		INSERT INTO conversations (id, user_a, user_b, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (pair_key) DO NOTHING`,
		uuid.NewString(), lo, hi, PairKey(lo, hi), now, now)
	if err != nil {
		return nil, apperr.Storage("inserting conversation", err)
	}

	conv, err := r.Find(ctx, lo, hi)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.Storage("reading created conversation", err)
	}
	return conv, err
}

// Find looks a conversation up without creating it.
func (r *Registry) Find(ctx context.Context, userA, userB string) (*Conversation, error) {
	var (
		conv    Conversation
		updated string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT id, user_a, user_b, updated_at FROM conversations WHERE pair_key = ?`,
		PairKey(userA, userB)).Scan(&conv.ID, &conv.Participants[0], &conv.Participants[1], &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("querying conversation", err)
	}
	if conv.UpdatedAt, err = storage.ParseTime(updated); err != nil {
		return nil, apperr.Storage("decoding conversation", err)
	}
	if conv.MessageIDs, err = r.messageIDs(ctx, conv.ID); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *Registry) messageIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT message_id FROM conversation_messages WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, apperr.Storage("querying conversation messages", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scanning message id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterating message ids", err)
	}
	return ids, nil
}

// ListForUser returns every conversation userID takes part in, most recently
// active first.
func (r *Registry) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_a, user_b, updated_at
		FROM conversations
		WHERE user_a = ? OR user_b = ?
		ORDER BY updated_at DESC, id DESC`, userID, userID)
	if err != nil {
		return nil, apperr.Storage("listing conversations", err)
	}
	defer rows.Close()

	list := make([]Summary, 0)
	for rows.Next() {
		var (
			s       Summary
			updated string
		)
		if err := rows.Scan(&s.ID, &s.Participants[0], &s.Participants[1], &updated); err != nil {
			return nil, apperr.Storage("scanning conversation", err)
		}
		if s.UpdatedAt, err = storage.ParseTime(updated); err != nil {
			return nil, apperr.Storage("decoding conversation", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterating conversations", err)
	}
	return list, nil
}
