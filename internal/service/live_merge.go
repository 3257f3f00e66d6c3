package service

import (
	"Lumen/internal/model"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LiveMerge keeps the message list of one open conversation consistent while
// local sends and remote push events interleave.
//
// All state sits behind mu. Store calls and subscription release run without
// holding it, so a push callback blocked on mu can always finish.
type LiveMerge struct {
	store  MessageStore
	userID string
	logger *zap.Logger

	// OnRemoteAppend, when set, is called after a pushed message has been
	// appended to the open conversation. It runs outside the lock.
	OnRemoteAppend func(model.Message)

	mu        sync.Mutex
	epoch     uint64
	partnerID string
	messages  []model.Message
	ids       map[string]struct{}
	sub       Subscription
}

func NewLiveMerge(store MessageStore, userID string, logger *zap.Logger) *LiveMerge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveMerge{
		store:  store,
		userID: userID,
		logger: logger.With(zap.String("user_id", userID)),
		ids:    make(map[string]struct{}),
	}
}

// OpenConversation switches the controller to partnerID. Push events that
// belong to any earlier conversation are ignored from here on.
func (l *LiveMerge) OpenConversation(ctx context.Context, partnerID string) error {
	if partnerID == "" || partnerID == l.userID {
		return ErrInvalidPartner
	}

	l.mu.Lock()
	l.epoch++
	epoch := l.epoch
	previous := l.sub
	l.sub = nil
	l.partnerID = partnerID
	l.resetLocked()
	l.mu.Unlock()

	l.release(previous)

	// Subscribe before loading so nothing inserted in between is lost; the
	// two sources are merged by id.
	sub, err := l.store.Subscribe(l.userID, partnerID, func(msg model.Message) {
		l.deliver(epoch, msg)
	})
	if err != nil {
		l.abandon(epoch)
		return storeErr("subscribe", err)
	}

	history, err := l.store.GetMessages(ctx, l.userID, partnerID)
	if err != nil {
		l.release(sub)
		l.abandon(epoch)
		return storeErr("get messages", err)
	}

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		l.release(sub)
		return ErrConversationSwitched
	}
	l.sub = sub
	for _, msg := range history {
		if msg.BelongsToPair(l.userID, partnerID) {
			l.insertLocked(msg)
		}
	}
	count := len(l.messages)
	l.mu.Unlock()

	l.logger.Debug("conversation opened",
		zap.String("partner_id", partnerID),
		zap.Int("messages", count),
	)
	return nil
}

// SendLocal posts content to the open conversation. The row confirmed by the
// store is appended; nothing is shown before confirmation.
func (l *LiveMerge) SendLocal(ctx context.Context, content string) (model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return model.Message{}, ErrEmptyContent
	}

	l.mu.Lock()
	partnerID, epoch := l.partnerID, l.epoch
	l.mu.Unlock()

	if partnerID == "" {
		return model.Message{}, ErrNoOpenConversation
	}

	msg, err := l.store.SendMessage(ctx, l.userID, partnerID, content)
	if err != nil {
		return model.Message{}, storeErr("send message", err)
	}

	l.mu.Lock()
	if l.epoch == epoch {
		l.insertLocked(msg)
	}
	l.mu.Unlock()

	return msg, nil
}

// OnRemoteInsert merges a pushed message. It reports whether the message was
// appended; messages of other conversations and known ids are ignored.
func (l *LiveMerge) OnRemoteInsert(msg model.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acceptLocked(msg)
}

// MarkRead marks every unread message the current user received in the open
// conversation as read and returns how many were marked.
func (l *LiveMerge) MarkRead(ctx context.Context) (int, error) {
	l.mu.Lock()
	if l.partnerID == "" {
		l.mu.Unlock()
		return 0, ErrNoOpenConversation
	}
	epoch := l.epoch
	var unread []string
	for _, msg := range l.messages {
		if msg.ReceiverID == l.userID && !msg.IsRead {
			unread = append(unread, msg.ID)
		}
	}
	l.mu.Unlock()

	if len(unread) == 0 {
		return 0, nil
	}

	if err := l.store.MarkRead(ctx, l.userID, unread); err != nil {
		return 0, storeErr("mark read", err)
	}

	l.mu.Lock()
	if l.epoch == epoch {
		marked := make(map[string]struct{}, len(unread))
		for _, id := range unread {
			marked[id] = struct{}{}
		}
		for i := range l.messages {
			if _, ok := marked[l.messages[i].ID]; ok {
				l.messages[i].IsRead = true
			}
		}
	}
	l.mu.Unlock()

	return len(unread), nil
}

// Close releases the push subscription and forgets the open conversation.
func (l *LiveMerge) Close() error {
	l.mu.Lock()
	l.epoch++
	sub := l.sub
	l.sub = nil
	l.partnerID = ""
	l.resetLocked()
	l.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

// Messages returns a copy of the open conversation, oldest first.
func (l *LiveMerge) Messages() []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.messages)
}

// OpenPartnerID returns the partner of the open conversation, if any.
func (l *LiveMerge) OpenPartnerID() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.partnerID, l.partnerID != ""
}

func (l *LiveMerge) deliver(epoch uint64, msg model.Message) {
	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		l.logger.Debug("dropping push for a closed conversation", zap.String("message_id", msg.ID))
		return
	}
	appended := l.acceptLocked(msg)
	listener := l.OnRemoteAppend
	l.mu.Unlock()

	if appended && listener != nil {
		listener(msg)
	}
}

func (l *LiveMerge) acceptLocked(msg model.Message) bool {
	if l.partnerID == "" || !msg.BelongsToPair(l.userID, l.partnerID) {
		return false
	}
	return l.insertLocked(msg)
}

// insertLocked places msg after every message with CreatedAt <= its own,
// keeping the list sorted ascending. Known ids are skipped.
func (l *LiveMerge) insertLocked(msg model.Message) bool {
	if msg.ID == "" {
		return false
	}
	if _, dup := l.ids[msg.ID]; dup {
		return false
	}
	idx := sort.Search(len(l.messages), func(i int) bool {
		return l.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	l.messages = slices.Insert(l.messages, idx, msg)
	l.ids[msg.ID] = struct{}{}
	return true
}

func (l *LiveMerge) resetLocked() {
	l.messages = nil
	l.ids = make(map[string]struct{})
}

// abandon clears the open conversation if epoch is still the current one.
func (l *LiveMerge) abandon(epoch uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epoch == epoch {
		l.partnerID = ""
		l.resetLocked()
	}
}

func (l *LiveMerge) release(sub Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		l.logger.Warn("failed to release subscription", zap.Error(err))
	}
}
