package repo

import (
	"Lumen/internal/model"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// clock hands out strictly increasing timestamps at a fixed precision, so
// rows inserted by this process never tie on created_at.
type clock struct {
	mu        sync.Mutex
	last      time.Time
	precision time.Duration
	now       func() time.Time
}

func newClock(precision time.Duration) *clock {
	return &clock{precision: precision, now: time.Now}
}

func (c *clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(c.precision)
	if !t.After(c.last) {
		t = c.last.Add(c.precision)
	}
	c.last = t
	return t
}

// newMessage builds the row the store persists, assigning id and timestamp.
func newMessage(c *clock, senderID, receiverID, content string) (model.Message, error) {
	if senderID == "" || receiverID == "" || senderID == receiverID || strings.TrimSpace(content) == "" {
		return model.Message{}, ErrInvalidMessage
	}
	return model.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  c.Next(),
	}, nil
}
