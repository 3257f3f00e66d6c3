package repo

import (
	"Lumen/internal/model"
	"Lumen/internal/realtime"
	"Lumen/internal/service"
	"context"

	"go.uber.org/zap"
)

// Store joins the persistence repositories and the realtime broker into the
// single collaborator the direct-message core consumes.
type Store struct {
	messages      MessageRepository
	conversations ConversationRepository
	broker        realtime.Broker
	logger        *zap.Logger
}

var _ service.MessageStore = (*Store)(nil)

func NewStore(messages MessageRepository, conversations ConversationRepository, broker realtime.Broker, logger *zap.Logger) *Store {
	return &Store{
		messages:      messages,
		conversations: conversations,
		broker:        broker,
		logger:        logger,
	}
}

func (s *Store) GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error) {
	return s.conversations.GetConversationsRaw(ctx, userID)
}

func (s *Store) GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error) {
	return s.messages.GetMessages(ctx, userID, otherUserID)
}

// SendMessage persists the message and then pushes the confirmed row. A push
// failure is logged only: the row is already durable and readers catch up on
// their next load.
func (s *Store) SendMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	msg, err := s.messages.InsertMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return model.Message{}, err
	}

	if err := s.broker.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish message",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
	return msg, nil
}

func (s *Store) MarkRead(ctx context.Context, receiverID string, ids []string) error {
	return s.messages.MarkRead(ctx, receiverID, ids)
}

func (s *Store) Subscribe(userID, otherUserID string, onInsert func(model.Message)) (service.Subscription, error) {
	return s.broker.Subscribe(userID, otherUserID, onInsert)
}
