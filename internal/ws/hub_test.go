package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(NewPresence(), zap.NewNop())
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := newTestHub()

	client := hub.Register(1, nil, ConnInfo{ConnID: "a", UserID: 1})
	require.Equal(t, 1, hub.ConnectionCount(1))
	assert.True(t, hub.presence.Online(1))

	hub.Unregister(1, client)
	assert.Equal(t, 0, hub.ConnectionCount(1))
	assert.False(t, hub.presence.Online(1))
}

func TestHubMultiTabStaysOnline(t *testing.T) {
	hub := newTestHub()

	first := hub.Register(1, nil, ConnInfo{ConnID: "a", UserID: 1})
	second := hub.Register(1, nil, ConnInfo{ConnID: "b", UserID: 1})
	require.Equal(t, 2, hub.ConnectionCount(1))

	hub.Unregister(1, first)
	assert.True(t, hub.presence.Online(1), "user stays online while one tab remains")

	hub.Unregister(1, second)
	assert.False(t, hub.presence.Online(1))
}

func TestHubDoubleUnregisterKeepsOtherTabOnline(t *testing.T) {
	hub := newTestHub()

	tabA := hub.Register(1, nil, ConnInfo{ConnID: "a", UserID: 1})
	tabB := hub.Register(1, nil, ConnInfo{ConnID: "b", UserID: 1})

	// A failed write and the read loop's cleanup both unregister the
	// same client.
	hub.Unregister(1, tabA)
	hub.Unregister(1, tabA)

	require.True(t, hub.presence.Online(1), "user stays online while the other tab is connected")
	require.Equal(t, 1, hub.ConnectionCount(1))

	hub.Unregister(1, tabB)
	assert.False(t, hub.presence.Online(1))
}

func TestHubUnregisterUnknownClientIsSafe(t *testing.T) {
	hub := newTestHub()
	client := hub.Register(1, nil, ConnInfo{ConnID: "a", UserID: 1})

	hub.Unregister(2, &Client{})
	assert.Equal(t, 1, hub.ConnectionCount(1))

	hub.Unregister(1, client)
}
