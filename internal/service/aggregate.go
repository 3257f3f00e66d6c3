package service

import (
	"Lumen/internal/model"
	"sort"
)

// Aggregate groups the messages of currentUserID by conversation partner.
//
// Each partner appears exactly once. LastMessage is the message with the
// greatest CreatedAt; among equal timestamps the one met first in the input
// wins, which matches the newest-first order the store returns rows in.
// UnreadCount only counts unread messages received by currentUserID.
// Messages that do not involve currentUserID, or that are addressed to
// oneself, are skipped. The result is ordered by LastMessage.CreatedAt,
// newest first.
func Aggregate(messages []model.Message, currentUserID string) []model.Conversation {
	byPartner := make(map[string]int, len(messages))
	conversations := make([]model.Conversation, 0)

	for _, msg := range messages {
		partnerID := msg.PartnerOf(currentUserID)
		if partnerID == "" || partnerID == currentUserID {
			continue
		}

		idx, seen := byPartner[partnerID]
		if !seen {
			idx = len(conversations)
			byPartner[partnerID] = idx
			conversations = append(conversations, model.Conversation{
				Partner:     model.ProfileSummary{ID: partnerID},
				LastMessage: msg,
			})
		} else if msg.CreatedAt.After(conversations[idx].LastMessage.CreatedAt) {
			conversations[idx].LastMessage = msg
		}

		conv := &conversations[idx]
		if conv.Partner.Username == "" {
			if summary := partnerSummary(msg, partnerID); summary != nil {
				conv.Partner = *summary
			}
		}
		if msg.ReceiverID == currentUserID && !msg.IsRead {
			conv.UnreadCount++
		}
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage.CreatedAt, conversations[j].LastMessage.CreatedAt
		if a.Equal(b) {
			return conversations[i].Partner.ID < conversations[j].Partner.ID
		}
		return a.After(b)
	})

	return conversations
}

// partnerSummary returns the joined profile of partnerID on msg, if the store
// resolved one.
func partnerSummary(msg model.Message, partnerID string) *model.ProfileSummary {
	var s *model.ProfileSummary
	if msg.SenderID == partnerID {
		s = msg.Sender
	} else {
		s = msg.Receiver
	}
	if s == nil || s.ID != partnerID || s.Username == "" {
		return nil
	}
	return s
}
