package ws

import (
	"sort"
	"sync"
)

// Presence tracks which users currently hold at least one live
// connection. Connections per user are reference counted so a user
// with several tabs stays online until the last one closes. Nothing
// is persisted; a process restart resets everyone to offline.
type Presence struct {
	mu    sync.Mutex
	conns map[int]int
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{conns: make(map[int]int)}
}

// Connect records a connection for the user and reports whether this
// was the offline-to-online transition.
func (p *Presence) Connect(userID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID]++
	return p.conns[userID] == 1
}

// Disconnect removes one connection for the user and reports whether
// this was the online-to-offline transition. The count never drops
// below zero.
func (p *Presence) Disconnect(userID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	count, ok := p.conns[userID]
	if !ok {
		return false
	}
	if count <= 1 {
		delete(p.conns, userID)
		return true
	}
	p.conns[userID] = count - 1
	return false
}

// Online reports whether the user has at least one live connection.
func (p *Presence) Online(userID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[userID] > 0
}

// Snapshot returns the sorted set of online user ids.
func (p *Presence) Snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := make([]int, 0, len(p.conns))
	for userID := range p.conns {
		users = append(users, userID)
	}
	sort.Ints(users)
	return users
}

// Size returns the number of online users.
func (p *Presence) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
