package realtime

import (
	"Lumen/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBrokerClosed   = errors.New("broker is closed")
	ErrInvalidTopicID = errors.New("invalid user id for a topic")
)

// Subscription is a revocable registration of one callback. Once Unsubscribe
// returns, the callback is not running and will not run again. It must not be
// called from inside the callback it revokes.
type Subscription interface {
	Unsubscribe() error
}

// Broker fans confirmed messages out to live subscribers.
type Broker interface {
	// Publish delivers msg to its pair topic and to both participants' inboxes.
	Publish(ctx context.Context, msg model.Message) error
	// Subscribe receives every message exchanged between the two users.
	Subscribe(userID, otherUserID string, onInsert func(model.Message)) (Subscription, error)
	// SubscribeUser receives every message sent or received by userID.
	SubscribeUser(userID string, onInsert func(model.Message)) (Subscription, error)
	Close() error
}

// pairTopic names the topic shared by both directions of a pair.
func pairTopic(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "dm." + a + "." + b
}

func inboxTopic(userID string) string {
	return "inbox." + userID
}

// topicsFor lists every topic a message is published on.
func topicsFor(msg model.Message) []string {
	return []string{
		pairTopic(msg.SenderID, msg.ReceiverID),
		inboxTopic(msg.SenderID),
		inboxTopic(msg.ReceiverID),
	}
}

// validateTopicID rejects ids that would break a dotted subject.
func validateTopicID(id string) error {
	if id == "" || strings.ContainsAny(id, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidTopicID, id)
	}
	return nil
}

func validatePair(userID, otherUserID string) error {
	if err := validateTopicID(userID); err != nil {
		return err
	}
	if err := validateTopicID(otherUserID); err != nil {
		return err
	}
	if userID == otherUserID {
		return fmt.Errorf("%w: pair needs two distinct users", ErrInvalidTopicID)
	}
	return nil
}
