package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snorq/internal/events"
)

func newHubClient(userID string) *Client {
	return &Client{
		ID:       userID + "-client",
		UserID:   userID,
		Send:     make(chan []byte, 8),
		channels: make(map[string]bool),
	}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlySubscribedChannel(t *testing.T) {
	h := NewHub()
	member := newHubClient("user-a")
	outsider := newHubClient("user-b")

	h.addClient(member)
	h.addClient(outsider)
	h.subscribeToChannel(member, "channel:org:1")
	h.subscribeToChannel(outsider, "channel:org:2")

	h.Broadcast("channel:org:1", []byte("payload"))

	require.Len(t, drain(member), 1)
	assert.Empty(t, drain(outsider), "other organizations must not receive the event")
}

func TestBroadcastToMultipleSubscribers(t *testing.T) {
	h := NewHub()
	a := newHubClient("user-a")
	b := newHubClient("user-b")

	h.addClient(a)
	h.addClient(b)
	h.subscribeToChannel(a, "channel:org:1")
	h.subscribeToChannel(b, "channel:org:1")

	h.Broadcast("channel:org:1", []byte("payload"))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	c := newHubClient("user-a")

	h.addClient(c)
	h.subscribeToChannel(c, "channel:org:1")
	h.unsubscribeFromChannel(c, "channel:org:1")

	h.Broadcast("channel:org:1", []byte("payload"))
	assert.Empty(t, drain(c))
	assert.False(t, c.IsSubscribed("channel:org:1"))
}

func TestRemoveClientCleansSubscriptions(t *testing.T) {
	h := NewHub()
	c := newHubClient("user-a")

	h.addClient(c)
	h.subscribeToChannel(c, "channel:org:1")
	h.removeClient(c)

	assert.Equal(t, 0, h.GetClientCount())
	assert.Equal(t, 0, h.GetChannelSubscriberCount("channel:org:1"))

	// Send channel is closed; Broadcast must not reach it.
	h.Broadcast("channel:org:1", []byte("payload"))
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	c := newHubClient("user-a")
	c.Send = make(chan []byte, 1)

	h.addClient(c)
	h.subscribeToChannel(c, "channel:org:1")

	done := make(chan struct{})
	go func() {
		h.Broadcast("channel:org:1", []byte("one"))
		h.Broadcast("channel:org:1", []byte("two"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
	assert.Len(t, drain(c), 1)
}

func TestHubRunProcessesControlChannels(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := newHubClient("user-a")
	h.Register(c)
	h.Subscribe(c, "channel:org:1")

	require.Eventually(t, func() bool {
		return h.GetChannelSubscriberCount("channel:org:1") == 1
	}, time.Second, 5*time.Millisecond)

	h.Unregister(c)
	require.Eventually(t, func() bool {
		return h.GetClientCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestAuthorizerChannelParsing(t *testing.T) {
	// Membership lookups are covered by the repository tests; here we pin
	// down the parsing rules, which deny before any lookup happens.
	a := NewChannelAuthorizer(nil)

	ok, err := a.CanSubscribe(context.Background(), "not-a-uuid", events.ChannelPrefixOrganization+"4a1c0f9e-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.False(t, ok, "malformed user id is a deny, not an error")

	ok, err = a.CanSubscribe(context.Background(), "4a1c0f9e-0000-0000-0000-000000000001", "channel:system:internal")
	require.NoError(t, err)
	assert.False(t, ok, "unknown channel prefixes default to deny")

	ok, err = a.CanSubscribe(context.Background(), "4a1c0f9e-0000-0000-0000-000000000001", events.ChannelPrefixOrganization+"not-a-uuid")
	require.NoError(t, err)
	assert.False(t, ok, "malformed organization id is a deny")
}
