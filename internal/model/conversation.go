package model

// Conversation is a derived per-partner summary over the current user's
// messages. It is never persisted.
type Conversation struct {
	Partner     ProfileSummary `json:"partner"`
	LastMessage Message        `json:"lastMessage"`
	UnreadCount int            `json:"unreadCount"`
}
