package model

// -----------------------------------------------------------------
// WebSocket Event Payloads - Client to Server
// -----------------------------------------------------------------

// OpenConversationPayload selects the conversation shown by the connection
type OpenConversationPayload struct {
	PartnerID string `json:"partnerId"`
}

// SendMessagePayload is sent to post into the open conversation
type SendMessagePayload struct {
	Content string `json:"content"`
}

// -----------------------------------------------------------------
// WebSocket Event Payloads - Server to Client
// -----------------------------------------------------------------

// ConversationOpenedEvent carries the freshly loaded history
type ConversationOpenedEvent struct {
	PartnerID string    `json:"partnerId"`
	Messages  []Message `json:"messages"`
}

// MessageEvent carries a single message, pushed or confirmed
type MessageEvent struct {
	Message Message `json:"message"`
}

// MessagesReadEvent reports how many received messages were marked read
type MessagesReadEvent struct {
	PartnerID string `json:"partnerId"`
	Count     int    `json:"count"`
}

// ConversationsEvent carries a refreshed conversation list
type ConversationsEvent struct {
	Conversations []Conversation `json:"conversations"`
}
