package messages

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/apperr"
	"github.com/ageniuscoder/mmsocial/backend/internal/conversations"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
)

// Dispatcher pushes a persisted message to its receiver, if reachable. It
// must not block and never reports failure back to the sender.
type Dispatcher interface {
	Dispatch(msg Message)
}

type Service struct {
	DB         *storage.DB
	Dispatcher Dispatcher
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewService(db *storage.DB, dispatcher Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		DB:         db,
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "messages"),
		Now:        time.Now,
	}
}

// Send resolves the sender/receiver conversation, appends the message and
// links it in one transaction, then hands the message to the dispatcher.
// Success depends on persistence only.
func (s *Service) Send(ctx context.Context, senderID, receiverID, body string) (Message, error) {
	if err := ValidateBody(body); err != nil {
		return Message{}, err
	}

	var msg Message
	err := s.DB.WithTx(ctx, func(tx storage.Conn) error {
		reg := conversations.NewRegistry(tx)
		reg.Now = s.Now
		conv, err := reg.GetOrCreate(ctx, senderID, receiverID)
		if err != nil {
			return err
		}

		log := NewLog(tx)
		log.Now = s.Now
		if msg, err = log.Append(ctx, senderID, receiverID, body); err != nil {
			return err
		}
		return log.LinkToConversation(ctx, conv, msg.ID)
	})
	if err != nil {
		if apperr.IsValidation(err) {
			return Message{}, err
		}
		return Message{}, apperr.Storage("sending message", err)
	}

	s.Logger.Debug("message stored", "message_id", msg.ID, "sender", senderID, "receiver", receiverID)
	if s.Dispatcher != nil {
		s.Dispatcher.Dispatch(msg)
	}
	return msg, nil
}

// Conversation returns the messages exchanged between me and other in link
// order, or an empty slice when they have never talked.
func (s *Service) Conversation(ctx context.Context, me, other string, page Page) ([]Message, error) {
	conv, err := conversations.NewRegistry(s.DB.Conn()).Find(ctx, me, other)
	if errors.Is(err, conversations.ErrNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return NewLog(s.DB.Conn()).Fetch(ctx, conv.ID, page)
}
