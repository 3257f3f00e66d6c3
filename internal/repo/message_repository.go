package repo

import (
	"Lumen/internal/db"
	"Lumen/internal/model"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	clock     *clock
	logger    *zap.Logger
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error)
	GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error)
	MarkRead(ctx context.Context, receiverID string, ids []string) error
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		// BSON datetimes carry milliseconds
		clock:  newClock(time.Millisecond),
		logger: logger,
	}
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	msg, err := newMessage(m.clock, senderID, receiverID, content)
	if err != nil {
		return model.Message{}, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err = withRetry(ctx, m.logger, "insert message", func(ctx context.Context) error {
		_, err := m.mongoRepo.Create(ctx, msg)
		// The id is fixed before the first attempt, so a duplicate key here
		// means an earlier attempt landed.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert message",
			zap.String("sender_id", senderID),
			zap.String("receiver_id", receiverID),
			zap.Error(err),
		)
		return model.Message{}, fmt.Errorf("insert message failed: %w", err)
	}

	m.logger.Info("message inserted successfully",
		zap.String("message_id", msg.ID),
		zap.String("sender_id", senderID),
		zap.String("receiver_id", receiverID),
	)
	return msg, nil
}

// -----------------------------------------------------------------------------
// GetMessages
// -----------------------------------------------------------------------------

func (m *messageRepository) GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.Pair(userID, otherUserID)

	var result []model.Message
	err := withRetry(ctx, m.logger, "get messages", func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.Find(ctx, filter, db.FindParams{
			SortBy:   []string{"created_at"},
			SortDesc: false,
		})
		return err
	})
	if err != nil {
		m.logger.Error("read failed",
			zap.String("user_id", userID),
			zap.String("other_user_id", otherUserID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get messages failed: %w", translateReadError(err))
	}

	m.logger.Debug("messages retrieved",
		zap.String("user_id", userID),
		zap.String("other_user_id", otherUserID),
		zap.Int("count", len(result)),
	)
	return result, nil
}

// -----------------------------------------------------------------------------
// MarkRead
// -----------------------------------------------------------------------------

func (m *messageRepository) MarkRead(ctx context.Context, receiverID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().In("_id", ids).Eq("receiver_id", receiverID).Build()

	var modified int64
	err := withRetry(ctx, m.logger, "mark read", func(ctx context.Context) error {
		res, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"is_read": true})
		if err != nil {
			return err
		}
		modified = res.ModifiedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark read failed: %w", err)
	}

	m.logger.Debug("messages marked read",
		zap.String("receiver_id", receiverID),
		zap.Int("requested", len(ids)),
		zap.Int64("modified", modified),
	)
	return nil
}
