package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func vaultEvent(typ, vaultID string) *Event {
	return &Event{Type: typ, Attributes: map[string]string{"vault_id": vaultID}}
}

// TestEventChannels tests channel names derived from chain events
func TestEventChannels(t *testing.T) {
	ev := &Event{
		Type: "vault_kill",
		Attributes: map[string]string{
			"vault_id":  "usd",
			"worker_id": "usd-atom",
		},
	}
	require.ElementsMatch(t, []string{
		ChannelEvents,
		ChannelVault + "usd",
		ChannelWorker + "usd-atom",
		ChannelKills,
	}, ev.Channels())
	require.True(t, ev.On(ChannelKills))
	require.False(t, ev.On(ChannelDeltaNeutral+"dn-atom"))

	// vault events naming a position also reach its watchers
	ev.Attributes["position_id"] = "7"
	require.True(t, ev.On(PositionChannel("usd", 7)))
	require.Equal(t, "position:usd/7", PositionChannel("usd", 7))
	require.False(t, (&Event{Type: "worker_share", Attributes: map[string]string{"worker_id": "usd-atom", "position_id": "7"}}).On(PositionChannel("usd", 7)))

	plain := &Event{Type: "oracle_price", Attributes: map[string]string{"denom": "uatom"}}
	require.Equal(t, []string{ChannelEvents}, plain.Channels())
}

// TestHistoryAppendAssignsSequence tests sequence numbering of stored events
func TestHistoryAppendAssignsSequence(t *testing.T) {
	h := NewHistory(10)
	require.Zero(t, h.LastSeq())

	first := h.Append(vaultEvent("vault_deposit", "usd"))
	second := h.Append(vaultEvent("vault_withdraw", "usd"))

	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, uint64(2), second.Seq)
	require.NotEmpty(t, first.ID)
	require.NotEqual(t, first.ID, second.ID)
	require.NotZero(t, first.Time)
	require.Equal(t, uint64(2), h.LastSeq())
	require.Equal(t, 2, h.Len())
}

// TestHistoryEvictsOldest tests the history capacity bound
func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(vaultEvent("vault_deposit", "usd"))
	}

	require.Equal(t, 3, h.Len())
	require.Equal(t, uint64(5), h.LastSeq())

	events := h.Since(0, "")
	require.Len(t, events, 3)
	require.Equal(t, uint64(3), events[0].Seq)
	require.Equal(t, uint64(5), events[2].Seq)
}

// TestHistorySinceFiltersByChannel tests event replay by sequence and channel
func TestHistorySinceFiltersByChannel(t *testing.T) {
	h := NewHistory(100)
	h.Append(vaultEvent("vault_deposit", "usd"))
	h.Append(vaultEvent("vault_deposit", "atom"))
	h.Append(vaultEvent("vault_kill", "usd"))
	h.Append(&Event{Type: "worker_reinvest", Attributes: map[string]string{"worker_id": "usd-atom"}})

	usd := h.Since(0, ChannelVault+"usd")
	require.Len(t, usd, 2)
	require.Equal(t, "vault_deposit", usd[0].Type)
	require.Equal(t, "vault_kill", usd[1].Type)

	require.Len(t, h.Since(1, ChannelVault+"usd"), 1)
	require.Len(t, h.Since(0, ChannelKills), 1)
	require.Len(t, h.Since(2, ""), 2)
	require.Empty(t, h.Since(4, ""))
}

// TestValidChannel tests channel name validation
func TestValidChannel(t *testing.T) {
	require.True(t, validChannel(ChannelEvents))
	require.True(t, validChannel(ChannelKills))
	require.True(t, validChannel(ChannelVault+"usd"))
	require.True(t, validChannel(ChannelDeltaNeutral+"dn-atom"))
	require.True(t, validChannel(PositionChannel("usd", 3)))
	require.False(t, validChannel(ChannelPosition))
	require.False(t, validChannel(ChannelVault))
	require.False(t, validChannel("prices:uatom"))
}
