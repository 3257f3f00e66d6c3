package realtime

import (
	"Lumen/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const defaultSubjectPrefix = "lumen"

// NatsBroker implements Broker over core NATS subjects:
// <prefix>.dm.<a>.<b> for a pair (ids ordered) and <prefix>.inbox.<user>.
type NatsBroker struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNatsBroker connects to NATS at url
func NewNatsBroker(url, prefix string, logger *zap.Logger) (*NatsBroker, error) {
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(url,
		nats.Name("lumen"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsBroker{nc: nc, prefix: prefix, logger: logger}, nil
}

func (b *NatsBroker) subject(topic string) string {
	return b.prefix + "." + topic
}

func (b *NatsBroker) Publish(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, topic := range topicsFor(msg) {
		subject := b.subject(topic)
		if err := b.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish message to subject '%s': %w", subject, err)
		}
	}

	b.logger.Debug("message published", zap.String("message_id", msg.ID))
	return nil
}

func (b *NatsBroker) Subscribe(userID, otherUserID string, onInsert func(model.Message)) (Subscription, error) {
	if err := validatePair(userID, otherUserID); err != nil {
		return nil, err
	}
	return b.subscribe(pairTopic(userID, otherUserID), onInsert)
}

func (b *NatsBroker) SubscribeUser(userID string, onInsert func(model.Message)) (Subscription, error) {
	if err := validateTopicID(userID); err != nil {
		return nil, err
	}
	return b.subscribe(inboxTopic(userID), onInsert)
}

// Close drains the connection so in-flight callbacks finish.
func (b *NatsBroker) Close() error {
	if b.nc == nil || b.nc.IsClosed() {
		return nil
	}
	return b.nc.Drain()
}

func (b *NatsBroker) subscribe(topic string, fn func(model.Message)) (*natsSubscription, error) {
	subject := b.subject(topic)
	ns := &natsSubscription{fn: fn}

	sub, err := b.nc.Subscribe(subject, func(m *nats.Msg) {
		var msg model.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			b.logger.Error("failed to decode pushed message",
				zap.String("subject", m.Subject),
				zap.Error(err),
			)
			return
		}
		ns.deliver(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject '%s': %w", subject, err)
	}
	ns.sub = sub

	b.logger.Debug("subscribed", zap.String("subject", subject))
	return ns, nil
}

// natsSubscription holds mu across each callback so Unsubscribe can wait out
// the one in flight.
type natsSubscription struct {
	sub *nats.Subscription
	fn  func(model.Message)

	mu     sync.Mutex
	closed bool
}

func (s *natsSubscription) deliver(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(msg)
}

func (s *natsSubscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return err
	}
	return nil
}
