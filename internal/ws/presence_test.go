package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceReferenceCounting(t *testing.T) {
	p := NewPresence()

	require.True(t, p.Connect(7), "first connection should transition to online")
	require.False(t, p.Connect(7), "second connection should not re-transition")
	assert.True(t, p.Online(7))

	require.False(t, p.Disconnect(7), "closing one of two connections keeps user online")
	assert.True(t, p.Online(7))

	require.True(t, p.Disconnect(7), "closing the last connection transitions to offline")
	assert.False(t, p.Online(7))
}

func TestPresenceDisconnectUnknownUser(t *testing.T) {
	p := NewPresence()
	require.False(t, p.Disconnect(99))
	assert.Equal(t, 0, p.Size())
}

func TestPresenceSnapshotSorted(t *testing.T) {
	p := NewPresence()
	p.Connect(3)
	p.Connect(1)
	p.Connect(2)
	p.Connect(2)

	assert.Equal(t, []int{1, 2, 3}, p.Snapshot())
	assert.Equal(t, 3, p.Size())
}
