package service

import (
	"Lumen/internal/model"
	"context"
	"strings"

	"go.uber.org/zap"
)

type ConversationService interface {
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	GetMessages(ctx context.Context, userID, partnerID string) ([]model.Message, error)
	Send(ctx context.Context, senderID, receiverID, content string) (model.Message, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
	// NewLiveMerge returns a controller bound to userID over the same store.
	NewLiveMerge(userID string) *LiveMerge
}

type conversationService struct {
	store  MessageStore
	logger *zap.Logger
}

func NewConversationService(store MessageStore, logger *zap.Logger) ConversationService {
	return &conversationService{
		store:  store,
		logger: logger,
	}
}

func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	raw, err := s.store.GetConversationsRaw(ctx, userID)
	if err != nil {
		return nil, storeErr("get conversations", err)
	}

	conversations := Aggregate(raw, userID)
	s.logger.Debug("conversations aggregated",
		zap.String("user_id", userID),
		zap.Int("rows", len(raw)),
		zap.Int("conversations", len(conversations)),
	)
	return conversations, nil
}

func (s *conversationService) GetMessages(ctx context.Context, userID, partnerID string) ([]model.Message, error) {
	if err := validatePair(userID, partnerID); err != nil {
		return nil, err
	}

	msgs, err := s.store.GetMessages(ctx, userID, partnerID)
	if err != nil {
		return nil, storeErr("get messages", err)
	}
	return Filter(msgs, func(m model.Message) bool {
		return m.BelongsToPair(userID, partnerID)
	}), nil
}

func (s *conversationService) Send(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	if err := validatePair(senderID, receiverID); err != nil {
		return model.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.Message{}, ErrEmptyContent
	}

	msg, err := s.store.SendMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return model.Message{}, storeErr("send message", err)
	}
	return msg, nil
}

func (s *conversationService) MarkRead(ctx context.Context, userID string, ids []string) error {
	if userID == "" {
		return ErrMissingUser
	}
	ids = Filter(ids, func(id string) bool { return id != "" })
	if len(ids) == 0 {
		return nil
	}
	return storeErr("mark read", s.store.MarkRead(ctx, userID, ids))
}

func (s *conversationService) NewLiveMerge(userID string) *LiveMerge {
	return NewLiveMerge(s.store, userID, s.logger)
}

func validatePair(userID, partnerID string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if partnerID == "" || partnerID == userID {
		return ErrInvalidPartner
	}
	return nil
}
