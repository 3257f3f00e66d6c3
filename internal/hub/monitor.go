package hub

import (
	"Lumen/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	clients := ms.hub.clients()

	users := make(map[string]struct{}, len(clients))
	infos := make([]model.ClientInfo, 0, len(clients))
	open := 0
	for _, c := range clients {
		users[c.userID] = struct{}{}
		partner := c.OpenPartnerID()
		if partner != "" {
			open++
		}
		infos = append(infos, model.ClientInfo{
			ClientID:      c.ID,
			UserID:        c.userID,
			OpenPartnerID: partner,
		})
	}

	// Determine overall health status
	status := "healthy"
	if len(clients) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status: status,
		Connections: model.ConnectionStats{
			TotalConnected: len(clients),
			DistinctUsers:  len(users),
		},
		Conversations: model.ConversationStats{TotalOpen: open},
		Clients:       infos,
	}
}
