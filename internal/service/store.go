package service

import (
	"Lumen/internal/model"
	"context"
)

// Subscription is a live push channel for one filter. Unsubscribe must be
// called explicitly; no callback runs once it has returned.
type Subscription interface {
	Unsubscribe() error
}

// MessageStore is everything the direct-message core needs from the backing
// store. Durability, querying and push delivery all live behind it.
type MessageStore interface {
	// GetConversationsRaw returns every message involving userID, newest first.
	GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error)
	// GetMessages returns the messages exchanged by the two users, oldest first.
	GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error)
	// SendMessage persists a message; the store assigns ID and CreatedAt.
	SendMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error)
	// MarkRead flips is_read on the given ids that were received by receiverID.
	MarkRead(ctx context.Context, receiverID string, ids []string) error
	// Subscribe delivers every message inserted between the two users.
	Subscribe(userID, otherUserID string, onInsert func(model.Message)) (Subscription, error)
}

// ProfileStore persists account profiles. SearchProfiles is a
// case-insensitive substring match on username and display name.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	CreateProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error)
}
