package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenCacheAdd(t *testing.T) {
	cache := newSeenCache(4)

	require.True(t, cache.Add("a"))
	require.False(t, cache.Add("a"))
	require.True(t, cache.Add("b"))
	assert.Equal(t, 2, cache.Len())
}

func TestSeenCacheEvictsOldest(t *testing.T) {
	cache := newSeenCache(2)

	require.True(t, cache.Add("a"))
	require.True(t, cache.Add("b"))
	require.True(t, cache.Add("c"), "third key evicts the oldest")

	assert.True(t, cache.Add("a"), "evicted key counts as fresh again")
	assert.Equal(t, 2, cache.Len())
}

func TestSeenCacheBounded(t *testing.T) {
	cache := newSeenCache(8)
	for i := 0; i < 100; i++ {
		cache.Add(fmt.Sprintf("key-%d", i))
	}
	assert.Equal(t, 8, cache.Len())
}

func TestSeenCacheDefaultCapacity(t *testing.T) {
	cache := newSeenCache(0)
	require.True(t, cache.Add("a"))
	assert.Equal(t, 1, cache.Len())
}
