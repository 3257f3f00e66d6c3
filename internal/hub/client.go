package hub

import (
	"Lumen/internal/event"
	"Lumen/internal/model"
	"Lumen/internal/service"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection. It owns the live merge controller of
// the conversation the connection has open and a subscription to the user's
// inbox, which keeps the conversation list fresh.
type Client struct {
	ID     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.WsEvent
	logger *zap.Logger

	merge *service.LiveMerge
	inbox service.Subscription

	// cancel or stop goroutine
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

var (
	// tuning parameters
	writeWait         = 10 * time.Second    // time allowed to write a message to the peer
	pongWait          = 20 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval      = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize    = 64 * 1024           // max inbound message size (64KB)
	sendBufSize       = 256                 // per-connection outbound buffer size
	sendTimeout       = 2 * time.Second     // timeout for enqueuing outbound messages
	registerTimeout   = 5 * time.Second     // timeout for client registration
	unregisterTimeout = 5 * time.Second     // timeout for client unregistration
)

var errRegisterTimeout = errors.New("client registration timed out")

// RegisterClient wires a new connection for userID into the hub and starts
// its read and write pumps.
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) (*Client, error) {
	ctx, cancel := context.WithCancel(h.ctx)
	clientID := uuid.New().String()

	c := &Client{
		ID:     clientID,
		userID: userID,
		conn:   conn,
		hub:    h,
		egress: make(chan event.WsEvent, sendBufSize),
		logger: h.logger.With(zap.String("client_id", clientID), zap.String("user_id", userID)),
		ctx:    ctx,
		cancel: cancel,
	}

	c.merge = h.conversations.NewLiveMerge(userID)
	c.merge.OnRemoteAppend = func(msg model.Message) {
		c.emit(event.EventMessage, model.MessageEvent{Message: msg}, "")
	}

	if h.broker != nil {
		inbox, err := h.broker.SubscribeUser(userID, func(model.Message) {
			c.refreshConversations()
		})
		if err != nil {
			cancel()
			conn.Close()
			return nil, err
		}
		c.inbox = inbox
	}

	select {
	case h.register <- c:
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.ReadMessages()
		}()
		go func() {
			defer h.wg.Done()
			c.WriteMessages()
		}()
		return c, nil
	case <-time.After(registerTimeout):
		c.Close()
		conn.Close()
		return nil, errRegisterTimeout
	}
}

// ReadMessages handles inbound events one at a time, so the operations of a
// single connection never overlap.
func (c *Client) ReadMessages() {
	defer func() {
		c.hub.requestUnregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	c.refreshConversations()

	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.logReadError(err)
			return
		}

		if c.ctx.Err() != nil {
			return
		}
		c.handleEvent(ev)
	}
}

func (c *Client) logReadError(err error) {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
	) {
		c.logger.Debug("client disconnected")
		return
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		c.logger.Info("client timed out - closing connection")
		return
	}

	if c.ctx.Err() != nil {
		return
	}

	c.logger.Warn("error reading from client", zap.Error(err))
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug("write loop exiting")
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues ev for the write loop. A client whose queue stays full for
// sendTimeout is disconnected.
func (c *Client) Send(ev event.WsEvent) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		return false
	case <-time.After(sendTimeout):
		c.logger.Warn("egress full, disconnecting client")
		// Send can run inside a broker callback, which Close waits for.
		go c.hub.requestUnregister(c)
		return false
	}
}

// Close releases the controller and the inbox subscription. It is safe to
// call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()

		if err := c.merge.Close(); err != nil {
			c.logger.Warn("failed to close conversation", zap.Error(err))
		}
		if c.inbox != nil {
			if err := c.inbox.Unsubscribe(); err != nil {
				c.logger.Warn("failed to release inbox subscription", zap.Error(err))
			}
		}
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	return c.ctx.Err() != nil
}

// OpenPartnerID reports the partner of the conversation open on this
// connection.
func (c *Client) OpenPartnerID() string {
	id, _ := c.merge.OpenPartnerID()
	return id
}

func (c *Client) emit(name string, payload any, requestID string) {
	ev, err := event.New(name, payload)
	if err != nil {
		c.logger.Error("failed to encode event", zap.String("event", name), zap.Error(err))
		return
	}
	ev.RequestId = requestID
	c.Send(ev)
}

func (c *Client) refreshConversations() {
	conversations, err := c.hub.conversations.ListConversations(c.ctx, c.userID)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("failed to refresh conversations", zap.Error(err))
		}
		return
	}
	c.emit(event.EventConversations, model.ConversationsEvent{Conversations: conversations}, "")
}
