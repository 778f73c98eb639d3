package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	// ActionWatch subscribes to one position's work and kill events
	ActionWatch = "watch"
	ActionPing  = "ping"
)

// Error codes sent in MsgError frames
const (
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeInvalidMessage    = "invalid_message"
	ErrCodeUnknownAction     = "unknown_action"
	ErrCodeInvalidChannel    = "invalid_channel"
	ErrCodeSubscriptionLimit = "subscription_limit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is public and read-only
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection following vault, worker and position channels
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id string
	ip string

	limiter *rate.Limiter

	subscriptions map[string]bool
	subMu         sync.Mutex
}

// ClientMessage is a request from a client, e.g.
//
//	{"action":"subscribe","channels":["kills","vault:usd"],"since":42}
//	{"action":"watch","vault":"usd","position":7}
type ClientMessage struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels,omitempty"`
	Vault    string   `json:"vault,omitempty"`
	Position uint64   `json:"position,omitempty"`
	// Since replays retained events with a greater sequence on subscribe
	Since uint64 `json:"since,omitempty"`
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, id, ip string) *Client {
	perSecond := hub.config.MessageRateLimit
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		id:            id,
		ip:            ip,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), perSecond),
		subscriptions: make(map[string]bool),
	}
}

// readPump decodes client requests until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.sendError(ErrCodeRateLimited, "too many messages")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError(ErrCodeInvalidMessage, err.Error())
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	switch msg.Action {
	case ActionSubscribe:
		c.subscribe(msg.Channels, msg.Since)
	case ActionWatch:
		if msg.Vault == "" || msg.Position == 0 {
			c.sendError(ErrCodeInvalidMessage, "watch needs a vault and a position")
			return
		}
		c.subscribe([]string{PositionChannel(msg.Vault, msg.Position)}, msg.Since)
	case ActionUnsubscribe:
		c.unsubscribe(msg.Channels)
	case ActionPing:
		c.Send(encode(&WSMessage{
			Type: MsgPong,
			Data: map[string]interface{}{
				"timestamp": time.Now().UnixMilli(),
				"last_seq":  c.hub.history.LastSeq(),
			},
		}))
	default:
		c.sendError(ErrCodeUnknownAction, msg.Action)
	}
}

func (c *Client) subscribe(channels []string, since uint64) {
	if len(channels) == 0 {
		c.sendError(ErrCodeInvalidChannel, "no channels")
		return
	}
	for _, channel := range channels {
		if !validChannel(channel) {
			c.sendError(ErrCodeInvalidChannel, channel)
			return
		}
	}

	c.subMu.Lock()
	added := 0
	for _, channel := range channels {
		if !c.subscriptions[channel] {
			added++
		}
	}
	if len(c.subscriptions)+added > c.hub.config.MaxSubscriptions {
		c.subMu.Unlock()
		c.sendError(ErrCodeSubscriptionLimit, "too many subscriptions")
		return
	}
	for _, channel := range channels {
		c.subscriptions[channel] = true
	}
	c.subMu.Unlock()

	c.hub.subscribe <- &SubscriptionRequest{Client: c, Channels: channels, Since: since}
}

func (c *Client) unsubscribe(channels []string) {
	c.subMu.Lock()
	for _, channel := range channels {
		delete(c.subscriptions, channel)
	}
	c.subMu.Unlock()

	c.hub.unsubscribe <- &SubscriptionRequest{Client: c, Channels: channels}
}

// validChannel accepts the global channels and topic channels with an id
func validChannel(channel string) bool {
	switch channel {
	case ChannelEvents, ChannelKills:
		return true
	}
	for _, prefix := range []string{ChannelVault, ChannelWorker, ChannelDeltaNeutral, ChannelPosition} {
		if id, ok := strings.CutPrefix(channel, prefix); ok && id != "" {
			return true
		}
	}
	return false
}

func (c *Client) sendError(code, message string) {
	c.Send(encode(&WSMessage{
		Type: MsgError,
		Data: map[string]string{"code": code, "message": message},
	}))
}

// Send queues a frame, dropping it when the client is too slow to drain its buffer
func (c *Client) Send(message []byte) {
	select {
	case c.send <- message:
	default:
	}
}
