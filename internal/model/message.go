package model

import (
	"time"
)

// Message is a direct message between two users. The store owns the persisted
// row; everything the client holds is a transient copy.
type Message struct {
	ID         string    `json:"id" bson:"_id"`
	SenderID   string    `json:"senderId" bson:"sender_id"`
	ReceiverID string    `json:"receiverId" bson:"receiver_id"`
	Content    string    `json:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	IsRead     bool      `json:"isRead" bson:"is_read"`

	// Joined profile summaries, only present when the store resolved them
	Sender   *ProfileSummary `json:"sender,omitempty" bson:"sender,omitempty"`
	Receiver *ProfileSummary `json:"receiver,omitempty" bson:"receiver,omitempty"`
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.ReceiverID == userID)
}

// PartnerOf returns the other participant relative to userID.
// It returns "" when the message does not involve userID.
func (m Message) PartnerOf(userID string) string {
	switch userID {
	case "":
		return ""
	case m.SenderID:
		return m.ReceiverID
	case m.ReceiverID:
		return m.SenderID
	}
	return ""
}

// BelongsToPair reports whether the message was exchanged between a and b, in
// either direction.
func (m Message) BelongsToPair(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
