package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub")
		return nil, false
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(func() {
		select {
		case <-h.done:
		default:
			h.Stop()
		}
	})
	return h
}

func TestBroadcastReachesProjectSubscribersOnly(t *testing.T) {
	h := startHub(t)
	alpha := NewClient(h, nil, "alpha", "u1")
	beta := NewClient(h, nil, "beta", "u2")
	require.True(t, h.Subscribe(alpha))
	require.True(t, h.Subscribe(beta))

	h.BroadcastTo("alpha", NewActivityMessage(map[string]string{"type": "task.create"}))

	raw, ok := receive(t, alpha)
	require.True(t, ok)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, ActionActivity, msg.Action)

	select {
	case <-beta.Send:
		t.Fatal("beta follows another project")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := NewClient(h, nil, "alpha", "u1")
	require.True(t, h.Subscribe(c))

	h.unregister(c)
	_, ok := receive(t, c)
	assert.False(t, ok)

	// A second unregister is a no-op.
	h.unregister(c)
}

func TestEvictDisconnectsOneMember(t *testing.T) {
	h := startHub(t)
	gone := NewClient(h, nil, "alpha", "u1")
	stays := NewClient(h, nil, "alpha", "u2")
	require.True(t, h.Subscribe(gone))
	require.True(t, h.Subscribe(stays))

	h.Evict("alpha", "u1")
	h.BroadcastTo("alpha", NewPongMessage())

	_, ok := receive(t, gone)
	assert.False(t, ok, "evicted client's send channel is closed")
	_, ok = receive(t, stays)
	assert.True(t, ok, "other members keep the feed")

	// Evicting someone with no open socket is a no-op.
	h.Evict("alpha", "u9")
}

func TestEvictWholeProject(t *testing.T) {
	h := startHub(t)
	a1 := NewClient(h, nil, "alpha", "u1")
	a2 := NewClient(h, nil, "alpha", "u2")
	b1 := NewClient(h, nil, "beta", "u1")
	for _, c := range []*Client{a1, a2, b1} {
		require.True(t, h.Subscribe(c))
	}

	h.Evict("alpha", "")
	h.BroadcastTo("beta", NewPongMessage())

	for _, c := range []*Client{a1, a2} {
		_, ok := receive(t, c)
		assert.False(t, ok)
	}
	_, ok := receive(t, b1)
	assert.True(t, ok, "other projects are untouched")
}

func TestEvictAfterStopReturns(t *testing.T) {
	h := startHub(t)
	h.Stop()
	h.Evict("alpha", "")
}

func TestStopClosesClientsAndRejectsSubscribers(t *testing.T) {
	h := startHub(t)
	c := NewClient(h, nil, "alpha", "u1")
	require.True(t, h.Subscribe(c))

	h.Stop()
	_, ok := receive(t, c)
	assert.False(t, ok)

	assert.False(t, h.Subscribe(NewClient(h, nil, "alpha", "u2")))
	h.BroadcastTo("alpha", NewPongMessage())
}

func TestReplyDoesNotBlock(t *testing.T) {
	c := NewClient(nil, nil, "alpha", "u1")
	for i := 0; i < cap(c.replies); i++ {
		require.True(t, c.Reply(NewPongMessage()))
	}
	assert.False(t, c.Reply(NewPongMessage()))
}

func TestErrorMessageShape(t *testing.T) {
	var msg struct {
		Action  string            `json:"action"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(NewErrorMessage("bad"), &msg))
	assert.Equal(t, ActionError, msg.Action)
	assert.Equal(t, "bad", msg.Payload["error"])
}
