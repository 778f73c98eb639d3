package websocket

import (
	"encoding/json"
	"testing"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"
)

func testClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, 32), subscriptions: make(map[string]bool)}
}

func frames(t *testing.T, c *Client) []WSMessage {
	t.Helper()
	var out []WSMessage
	for {
		select {
		case raw := <-c.send:
			var msg WSMessage
			require.NoError(t, json.Unmarshal(raw, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func killEvent(vaultID, positionID string) *Event {
	return &Event{Type: "vault_kill", Attributes: map[string]string{
		"vault_id":    vaultID,
		"position_id": positionID,
		"worker_id":   "usd-atom",
	}}
}

// TestJoinReplaysEachEventOnce tests that a multi-channel subscribe replays an event
// matching several of the channels a single time
func TestJoinReplaysEachEventOnce(t *testing.T) {
	h := NewHub(nil, log.NewNopLogger())
	h.Publish(vaultEvent("vault_deposit", "usd"))
	h.Publish(killEvent("usd", "1"))
	h.Publish(vaultEvent("vault_deposit", "atom"))

	c := testClient(h)
	h.join(&SubscriptionRequest{
		Client:   c,
		Channels: []string{ChannelKills, ChannelVault + "usd", PositionChannel("usd", 1)},
		Since:    1,
	})

	got := frames(t, c)
	require.Len(t, got, 2)
	require.Equal(t, MsgSubscribed, got[0].Type)
	require.Equal(t, MsgKill, got[1].Type)
	require.Equal(t, ChannelKills, got[1].Channel)

	require.Equal(t, map[string]int{
		ChannelKills:              1,
		ChannelVault + "usd":      1,
		PositionChannel("usd", 1): 1,
	}, h.Subscribers())
}

// TestPublishRoutesByChannel tests live delivery to position watchers and vault followers
func TestPublishRoutesByChannel(t *testing.T) {
	h := NewHub(nil, log.NewNopLogger())
	watcher, follower, other := testClient(h), testClient(h), testClient(h)
	h.join(&SubscriptionRequest{Client: watcher, Channels: []string{PositionChannel("usd", 2)}})
	h.join(&SubscriptionRequest{Client: follower, Channels: []string{ChannelVault + "usd", ChannelKills}})
	h.join(&SubscriptionRequest{Client: other, Channels: []string{ChannelVault + "atom"}})
	for _, c := range []*Client{watcher, follower, other} {
		frames(t, c)
	}

	h.Publish(killEvent("usd", "2"))
	h.Publish(&Event{Type: "vault_work", Attributes: map[string]string{"vault_id": "usd", "position_id": "3"}})

	got := frames(t, watcher)
	require.Len(t, got, 1)
	require.Equal(t, MsgKill, got[0].Type)

	got = frames(t, follower)
	require.Len(t, got, 2)
	require.Equal(t, MsgKill, got[0].Type)
	require.Equal(t, MsgEvent, got[1].Type)

	require.Empty(t, frames(t, other))

	h.leave(&SubscriptionRequest{Client: follower, Channels: []string{ChannelVault + "usd", ChannelKills}})
	require.Equal(t, MsgUnsubscribed, frames(t, follower)[0].Type)
	h.Publish(killEvent("usd", "2"))
	require.Empty(t, frames(t, follower))
	require.NotContains(t, h.Subscribers(), ChannelKills)
}

// TestClientSubscribeValidation tests channel and limit checks before the hub is asked
func TestClientSubscribeValidation(t *testing.T) {
	h := NewHub(&HubConfig{HistorySize: 8, MaxSubscriptions: 2, MessageRateLimit: 10}, log.NewNopLogger())
	c := testClient(h)

	c.handleMessage(&ClientMessage{Action: ActionSubscribe, Channels: []string{"prices:uatom"}})
	c.handleMessage(&ClientMessage{Action: ActionWatch, Vault: "usd"})
	c.handleMessage(&ClientMessage{Action: ActionSubscribe, Channels: []string{ChannelKills, ChannelEvents, ChannelVault + "usd"}})
	c.handleMessage(&ClientMessage{Action: "trade"})

	got := frames(t, c)
	require.Len(t, got, 4)
	codes := make([]string, 0, len(got))
	for _, msg := range got {
		require.Equal(t, MsgError, msg.Type)
		codes = append(codes, msg.Data.(map[string]interface{})["code"].(string))
	}
	require.Equal(t, []string{ErrCodeInvalidChannel, ErrCodeInvalidMessage, ErrCodeSubscriptionLimit, ErrCodeUnknownAction}, codes)
	require.Empty(t, c.subscriptions)

	c.handleMessage(&ClientMessage{Action: ActionWatch, Vault: "usd", Position: 4})
	req := <-h.subscribe
	require.Equal(t, []string{PositionChannel("usd", 4)}, req.Channels)
	require.True(t, c.subscriptions["position:usd/4"])
}
