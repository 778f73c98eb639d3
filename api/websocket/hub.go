package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/openalpha/levfarm/api/middleware"
	"github.com/openalpha/levfarm/metrics"
)

// MessageType tags every frame sent to a client
type MessageType string

// Frame types
const (
	MsgSubscribed   MessageType = "subscribed"
	MsgUnsubscribed MessageType = "unsubscribed"
	MsgEvent        MessageType = "event"
	// MsgKill carries liquidation events so watchers can alert without parsing types
	MsgKill  MessageType = "kill"
	MsgPong  MessageType = "pong"
	MsgError MessageType = "error"
)

// WSMessage is one frame sent to a client
type WSMessage struct {
	Type    MessageType `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func encode(msg *WSMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

// eventMessage wraps a chain event for the channel it is delivered on
func eventMessage(ev *Event, channel string) *WSMessage {
	typ := MsgEvent
	if strings.HasSuffix(ev.Type, "_kill") {
		typ = MsgKill
	}
	return &WSMessage{Type: typ, Channel: channel, Data: ev}
}

// Hub tracks clients per channel and fans chain events out to them
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	history *History

	mu sync.RWMutex

	config *HubConfig
	logger log.Logger
	stopCh chan struct{}
}

// HubConfig contains hub configuration
type HubConfig struct {
	// Events retained for replay
	HistorySize int

	MaxSubscriptions int

	// Messages per second per client
	MessageRateLimit int
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		HistorySize:      1024,
		MaxSubscriptions: 50,
		MessageRateLimit: 100,
	}
}

// SubscriptionRequest joins or leaves channels for a client
type SubscriptionRequest struct {
	Client   *Client
	Channels []string
	Since    uint64
}

// NewHub creates a new Hub
func NewHub(config *HubConfig, logger log.Logger) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		history:     NewHistory(config.HistorySize),
		config:      config,
		logger:      logger.With("module", "api/websocket"),
		stopCh:      make(chan struct{}),
	}
}

// Run serializes membership changes until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case req := <-h.subscribe:
			h.join(req)
		case req := <-h.unsubscribe:
			h.leave(req)
		case <-h.stopCh:
			return
		}
	}
}

// Stop ends the main loop
func (h *Hub) Stop() {
	close(h.stopCh)
}

// History returns the replay history
func (h *Hub) History() *History {
	return h.history
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	metrics.GetCollector().RecordWSConnection(1)
	h.logger.Debug("client connected", "client_id", client.id, "ip", client.ip)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for channel, members := range h.channels {
		delete(members, client)
		if len(members) == 0 {
			delete(h.channels, channel)
		}
	}
	close(client.send)
	metrics.GetCollector().RecordWSConnection(-1)
	h.logger.Debug("client disconnected", "client_id", client.id)
}

// join adds the client to every requested channel, confirms, then replays retained
// events after req.Since. An event on several of the channels is replayed once.
func (h *Hub) join(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range req.Channels {
		if h.channels[channel] == nil {
			h.channels[channel] = make(map[*Client]bool)
		}
		h.channels[channel][req.Client] = true
	}
	req.Client.Send(encode(&WSMessage{
		Type: MsgSubscribed,
		Data: map[string]interface{}{"channels": req.Channels, "last_seq": h.history.LastSeq()},
	}))

	if req.Since == 0 {
		return
	}
	for _, ev := range h.history.Since(req.Since, "") {
		for _, channel := range req.Channels {
			if ev.On(channel) {
				req.Client.Send(encode(eventMessage(ev, channel)))
				break
			}
		}
	}
}

func (h *Hub) leave(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range req.Channels {
		if members, ok := h.channels[channel]; ok {
			delete(members, req.Client)
			if len(members) == 0 {
				delete(h.channels, channel)
			}
		}
	}
	req.Client.Send(encode(&WSMessage{
		Type: MsgUnsubscribed,
		Data: map[string]interface{}{"channels": req.Channels},
	}))
}

// Publish records the event in the history and pushes it to every channel it
// belongs to. A client subscribed to several of them receives it once.
func (h *Hub) Publish(ev *Event) {
	timer := metrics.NewTimer()
	ev = h.history.Append(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*Client]bool)
	var typ MessageType
	for _, channel := range ev.Channels() {
		for client := range h.channels[channel] {
			if delivered[client] {
				continue
			}
			delivered[client] = true
			msg := eventMessage(ev, channel)
			typ = msg.Type
			client.Send(encode(msg))
		}
	}
	if typ != "" {
		metrics.GetCollector().RecordWSMessage(string(typ), timer.ElapsedMs())
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients on each channel with at least one
func (h *Hub) Subscribers() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.channels))
	for channel, members := range h.channels {
		counts[channel] = len(members)
	}
	return counts
}

// ServeWS upgrades the request and starts the client's pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h, conn, uuid.New().String(), middleware.ClientIP(r))
	h.register <- client

	go client.writePump()
	go client.readPump()
}
