package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status        string            `json:"status"`        // "healthy", "idle"
	Connections   ConnectionStats   `json:"connections"`   // Client connection stats
	Conversations ConversationStats `json:"conversations"` // Open conversation stats
	Clients       []ClientInfo      `json:"clients"`       // List of connected clients
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // Connections currently registered
	DistinctUsers  int `json:"distinctUsers"`  // Users with at least one connection
}

// ConversationStats holds statistics about conversations open on connections
type ConversationStats struct {
	TotalOpen int `json:"totalOpen"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID      string `json:"clientId"`
	UserID        string `json:"userId"`
	OpenPartnerID string `json:"openPartnerId,omitempty"`
}
