package repo

import (
	"Lumen/internal/db"
	"Lumen/internal/model"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type conversationRepository struct {
	messages           *db.Repository[model.Message]
	profilesCollection string
	logger             *zap.Logger
}

type ConversationRepository interface {
	// GetConversationsRaw returns every message involving userID, newest
	// first, with sender and receiver profiles joined.
	GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error)
}

func NewConversationRepository(messages *db.Repository[model.Message], profilesCollection string, logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		messages:           messages,
		profilesCollection: profilesCollection,
		logger:             logger,
	}
}

func (r *conversationRepository) GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	// Ensure timeout
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: db.Participant(userID)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		r.lookupProfile("sender_id", "sender"),
		r.lookupProfile("receiver_id", "receiver"),
		unwind("$sender"),
		unwind("$receiver"),
	}

	var rows []model.Message
	err := withRetry(ctx, r.logger, "get conversations", func(ctx context.Context) error {
		var err error
		rows, err = r.messages.Aggregate(ctx, pipeline)
		return err
	})
	if err != nil {
		r.logger.Error("failed to fetch conversations",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversations: %w", translateReadError(err))
	}

	r.logger.Debug("conversation rows retrieved",
		zap.String("user_id", userID),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func (r *conversationRepository) lookupProfile(localField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: r.profilesCollection},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: as},
	}}}
}

func unwind(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}
