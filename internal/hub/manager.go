package hub

import (
	"Lumen/internal/middleware"
	"Lumen/internal/model"
	"Lumen/internal/realtime"
	"Lumen/internal/service"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load

	presenceTimeout = 5 * time.Second
)

type clientBucket struct {
	sync.RWMutex
	users map[string]map[string]*Client
}

// Hub tracks every live connection by user. The first connection of a user
// marks them online and the last one to leave marks them offline.
type Hub struct {
	shards     [shardCount]*clientBucket
	register   chan *Client
	unregister chan *Client

	conversations service.ConversationService
	profiles      service.ProfileService
	broker        realtime.Broker
	secret        []byte
	upgrader      websocket.Upgrader
	logger        *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

type Options struct {
	Conversations  service.ConversationService
	Profiles       service.ProfileService
	Broker         realtime.Broker
	JwtSecret      []byte
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewHub(opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		register:      make(chan *Client, 1024),
		unregister:    make(chan *Client, 1024),
		conversations: opts.Conversations,
		profiles:      opts.Profiles,
		broker:        opts.Broker,
		secret:        opts.JwtSecret,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			users: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()

	return h
}

func getShard(userID string) uint32 {
	if userID == "" {
		return 0
	}

	h := sha1.Sum([]byte(userID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	// register and unregister are separate queues, so a connection that
	// dropped at once may have been removed before it was added
	if c.IsClosed() {
		h.logger.Debug("skipping closed client", zap.String("client_id", c.ID))
		return
	}

	sh := getShard(c.userID)
	b := h.shards[sh]

	b.Lock()
	conns, ok := b.users[c.userID]
	if !ok {
		conns = make(map[string]*Client)
		b.users[c.userID] = conns
	}
	conns[c.ID] = c
	first := len(conns) == 1
	b.Unlock()

	h.logger.Info("client registered",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.Uint32("shard", sh),
	)
	if first {
		h.setPresence(c.userID, model.StatusOnline)
	}
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.userID)
	b := h.shards[sh]

	b.Lock()
	conns, ok := b.users[c.userID]
	if !ok {
		b.Unlock()
		c.Close()
		return
	}
	_, exists := conns[c.ID]
	delete(conns, c.ID)
	last := exists && len(conns) == 0
	if len(conns) == 0 {
		delete(b.users, c.userID)
	}
	b.Unlock()

	c.Close()
	if !exists {
		return
	}

	h.logger.Info("client removed",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.Uint32("shard", sh),
	)
	if last {
		h.setPresence(c.userID, model.StatusOffline)
	}
}

// requestUnregister hands c to the manager loop, or removes it directly once
// the loop has stopped.
func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
		c.Close()
	case <-time.After(unregisterTimeout):
		h.logger.Warn("failed to unregister client: timeout", zap.String("client_id", c.ID))
		c.Close()
	}
}

func (h *Hub) setPresence(userID string, status model.PresenceStatus) {
	if h.profiles == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	if err := h.profiles.SetPresence(ctx, userID, status); err != nil {
		h.logger.Warn("failed to update presence",
			zap.String("user_id", userID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// clients returns a snapshot of every registered connection.
func (h *Hub) clients() []*Client {
	var all []*Client
	for _, b := range h.shards {
		b.RLock()
		for _, conns := range b.users {
			for _, c := range conns {
				all = append(all, c)
			}
		}
		b.RUnlock()
	}
	return all
}

// Stop closes every connection, marks their users offline and waits for all
// connection goroutines to exit.
func (h *Hub) Stop() {
	h.once.Do(func() {
		h.cancel()

		for _, c := range h.clients() {
			h.removeClient(c)
		}
		h.wg.Wait()
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// ServeWS authenticates the upgrade request with the same token the REST API
// accepts, taken from the Authorization header or the token query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.TokenFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	userID, err := middleware.ParseToken(h.secret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	select {
	case <-h.ctx.Done():
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if _, err := RegisterClient(userID, conn, h); err != nil {
		h.logger.Warn("failed to register client",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
