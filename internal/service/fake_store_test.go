package service

import (
	"Lumen/internal/model"
	"context"
	"strconv"
	"sync"
	"time"
)

// fakeStore is an in-memory MessageStore whose push channel is driven by the
// test through push.
type fakeStore struct {
	mu       sync.Mutex
	messages []model.Message
	subs     map[*fakeSub]struct{}
	nextID   int
	now      time.Time

	sendCalls      int
	subscribeCalls int
	markReadCalls  [][]string
	markReadUser   string

	subscribeErr   error
	getMessagesErr error
	sendErr        error
	markReadErr    error

	// onGetMessages runs once, before GetMessages returns.
	onGetMessages func()
}

type fakeSub struct {
	store      *fakeStore
	a, b       string
	fn         func(model.Message)
	unsubCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:   make(map[*fakeSub]struct{}),
		nextID: 1,
		now:    epoch,
	}
}

func (f *fakeStore) GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Message
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Involves(userID) {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakeStore) GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error) {
	f.mu.Lock()
	hook := f.onGetMessages
	f.onGetMessages = nil
	err := f.getMessagesErr
	var out []model.Message
	for _, m := range f.messages {
		if m.BelongsToPair(userID, otherUserID) {
			out = append(out, m)
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeStore) SendMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	f.mu.Lock()
	f.sendCalls++
	if f.sendErr != nil {
		f.mu.Unlock()
		return model.Message{}, f.sendErr
	}
	f.now = f.now.Add(time.Second)
	m := model.Message{
		ID:         strconv.Itoa(f.nextID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  f.now,
	}
	f.nextID++
	f.messages = append(f.messages, m)
	f.mu.Unlock()
	return m, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, receiverID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, append([]string(nil), ids...))
	f.markReadUser = receiverID
	if f.markReadErr != nil {
		return f.markReadErr
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range f.messages {
		if set[f.messages[i].ID] && f.messages[i].ReceiverID == receiverID {
			f.messages[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeStore) Subscribe(userID, otherUserID string, onInsert func(model.Message)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	s := &fakeSub{store: f, a: userID, b: otherUserID, fn: onInsert}
	f.subs[s] = struct{}{}
	return s, nil
}

func (s *fakeSub) Unsubscribe() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.unsubCalls++
	delete(s.store.subs, s)
	return nil
}

// push delivers m to every live subscription of its pair.
func (f *fakeStore) push(m model.Message) {
	f.mu.Lock()
	var targets []func(model.Message)
	for s := range f.subs {
		if m.BelongsToPair(s.a, s.b) {
			targets = append(targets, s.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range targets {
		fn(m)
	}
}

// liveSubs returns every subscription not yet released.
func (f *fakeStore) liveSubs() []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeSub, 0, len(f.subs))
	for s := range f.subs {
		out = append(out, s)
	}
	return out
}

func (f *fakeStore) seed(msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
}
