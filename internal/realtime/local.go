package realtime

import (
	"Lumen/internal/model"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load

	// DefaultQueueSize is the per-subscription delivery buffer.
	DefaultQueueSize = 256
)

type topicBucket struct {
	sync.RWMutex
	topics map[string]map[string]*localSubscription
}

// LocalBroker is an in-process Broker. Topics are spread over sharded
// buckets; every subscription owns one delivery goroutine, so its callbacks
// never run concurrently and publishers never wait on them.
type LocalBroker struct {
	shards    [shardCount]*topicBucket
	queueSize int
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewLocalBroker(queueSize int, logger *zap.Logger) *LocalBroker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &LocalBroker{
		queueSize: queueSize,
		logger:    logger,
	}
	for i := 0; i < shardCount; i++ {
		b.shards[i] = &topicBucket{
			topics: make(map[string]map[string]*localSubscription),
		}
	}
	return b
}

func getShard(topic string) uint32 {
	if topic == "" {
		return 0
	}

	h := sha1.Sum([]byte(topic))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (b *LocalBroker) Publish(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	for _, topic := range topicsFor(msg) {
		for _, sub := range b.subscribers(topic) {
			if !sub.enqueue(msg) {
				b.logger.Warn("subscriber queue full, dropping message",
					zap.String("topic", topic),
					zap.String("subscription_id", sub.id),
					zap.String("message_id", msg.ID),
				)
			}
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(userID, otherUserID string, onInsert func(model.Message)) (Subscription, error) {
	if err := validatePair(userID, otherUserID); err != nil {
		return nil, err
	}
	return b.add(pairTopic(userID, otherUserID), onInsert)
}

func (b *LocalBroker) SubscribeUser(userID string, onInsert func(model.Message)) (Subscription, error) {
	if err := validateTopicID(userID); err != nil {
		return nil, err
	}
	return b.add(inboxTopic(userID), onInsert)
}

// Close revokes every live subscription.
func (b *LocalBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var subs []*localSubscription
	for _, shard := range b.shards {
		shard.RLock()
		for _, topic := range shard.topics {
			for _, sub := range topic {
				subs = append(subs, sub)
			}
		}
		shard.RUnlock()
	}
	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return nil
}

// Subscriptions returns the number of live subscriptions.
func (b *LocalBroker) Subscriptions() int {
	total := 0
	for _, shard := range b.shards {
		shard.RLock()
		for _, topic := range shard.topics {
			total += len(topic)
		}
		shard.RUnlock()
	}
	return total
}

func (b *LocalBroker) add(topic string, fn func(model.Message)) (*localSubscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &localSubscription{
		id:     uuid.New().String(),
		topic:  topic,
		broker: b,
		fn:     fn,
		queue:  make(chan model.Message, b.queueSize),
		done:   make(chan struct{}),
	}

	shard := b.shards[getShard(topic)]
	shard.Lock()
	subs, ok := shard.topics[topic]
	if !ok {
		subs = make(map[string]*localSubscription)
		shard.topics[topic] = subs
	}
	subs[sub.id] = sub
	shard.Unlock()

	go sub.run()

	b.logger.Debug("subscription added", zap.String("topic", topic), zap.String("subscription_id", sub.id))
	return sub, nil
}

func (b *LocalBroker) remove(sub *localSubscription) {
	shard := b.shards[getShard(sub.topic)]
	shard.Lock()
	defer shard.Unlock()

	if subs, ok := shard.topics[sub.topic]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(shard.topics, sub.topic)
		}
	}
}

func (b *LocalBroker) subscribers(topic string) []*localSubscription {
	shard := b.shards[getShard(topic)]
	shard.RLock()
	defer shard.RUnlock()

	subs := shard.topics[topic]
	out := make([]*localSubscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub)
	}
	return out
}

type localSubscription struct {
	id     string
	topic  string
	broker *LocalBroker
	fn     func(model.Message)
	queue  chan model.Message
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *localSubscription) run() {
	defer close(s.done)
	for msg := range s.queue {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			continue
		}
		s.fn(msg)
	}
}

// enqueue never blocks; it reports false when the queue is full.
func (s *localSubscription) enqueue(msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.queue <- msg:
		return true
	default:
		return false
	}
}

func (s *localSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.broker.remove(s)

		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		<-s.done
	})
	return nil
}
