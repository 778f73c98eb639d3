package websocket

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/skiplist"
)

// Channel names. Topic channels are suffixed with an id, e.g. "vault:usd" or
// "position:usd/7".
const (
	ChannelEvents       = "events"
	ChannelKills        = "kills"
	ChannelVault        = "vault:"
	ChannelWorker       = "worker:"
	ChannelDeltaNeutral = "deltaneutral:"
	ChannelPosition     = "position:"
)

// PositionChannel names the channel carrying one position's vault events
func PositionChannel(vaultID string, positionID uint64) string {
	return ChannelPosition + vaultID + "/" + strconv.FormatUint(positionID, 10)
}

// Event is one chain event pushed to subscribers
type Event struct {
	Seq        uint64            `json:"seq"`
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Height     int64             `json:"height"`
	Time       int64             `json:"time"`
	Attributes map[string]string `json:"attributes"`
}

// Channels lists every channel the event is delivered on
func (e *Event) Channels() []string {
	channels := []string{ChannelEvents}
	if id := e.Attributes["vault_id"]; id != "" {
		channels = append(channels, ChannelVault+id)
		if pos := e.Attributes["position_id"]; pos != "" {
			channels = append(channels, ChannelPosition+id+"/"+pos)
		}
	}
	if id := e.Attributes["worker_id"]; id != "" {
		channels = append(channels, ChannelWorker+id)
	}
	if id := e.Attributes["dn_id"]; id != "" {
		channels = append(channels, ChannelDeltaNeutral+id)
	}
	if strings.HasSuffix(e.Type, "_kill") {
		channels = append(channels, ChannelKills)
	}
	return channels
}

// On reports whether the event is delivered on channel
func (e *Event) On(channel string) bool {
	for _, c := range e.Channels() {
		if c == channel {
			return true
		}
	}
	return false
}

// seqKeyAsc orders history entries by sequence number
type seqKeyAsc struct{}

func (k seqKeyAsc) Compare(lhs, rhs interface{}) int {
	l := lhs.(uint64)
	r := rhs.(uint64)
	if l < r {
		return -1
	}
	if l > r {
		return 1
	}
	return 0
}

func (k seqKeyAsc) CalcScore(key interface{}) float64 {
	return float64(key.(uint64))
}

// History keeps the most recent events ordered by sequence so reconnecting
// clients can replay what they missed
type History struct {
	mu       sync.RWMutex
	list     *skiplist.SkipList
	capacity int
	lastSeq  uint64
}

// NewHistory creates a history holding at most capacity events
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		list:     skiplist.New(seqKeyAsc{}),
		capacity: capacity,
	}
}

// Append stamps the event with the next sequence and an id, then stores it,
// evicting the oldest entry once the history is full
func (h *History) Append(ev *Event) *Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSeq++
	ev.Seq = h.lastSeq
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Time == 0 {
		ev.Time = time.Now().Unix()
	}
	h.list.Set(ev.Seq, ev)

	for h.list.Len() > h.capacity {
		front := h.list.Front()
		h.list.Remove(front.Key())
	}
	return ev
}

// Since returns events after seq delivered on channel, oldest first.
// An empty channel matches every event.
func (h *History) Since(seq uint64, channel string) []*Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var events []*Event
	for elem := h.list.Find(seq + 1); elem != nil; elem = elem.Next() {
		ev := elem.Value.(*Event)
		if channel == "" || ev.On(channel) {
			events = append(events, ev)
		}
	}
	return events
}

// LastSeq returns the sequence of the newest event
func (h *History) LastSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSeq
}

// Len returns the number of retained events
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.list.Len()
}
