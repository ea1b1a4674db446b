package session

// seenCache is a fixed-capacity set of dedup keys. When full, adding a
// new key evicts the oldest one, bounding memory for long-lived
// sessions. Replayed events only need suppression within a short
// window (reconnects, duplicate listener registration), so eviction of
// old keys is safe.
type seenCache struct {
	capacity int
	order    []string
	set      map[string]struct{}
	next     int
}

func newSeenCache(capacity int) *seenCache {
	if capacity <= 0 {
		capacity = 512
	}
	return &seenCache{
		capacity: capacity,
		order:    make([]string, capacity),
		set:      make(map[string]struct{}, capacity),
	}
}

// Add inserts the key and reports whether it was absent. Returns false
// for keys already present.
func (s *seenCache) Add(key string) bool {
	if _, ok := s.set[key]; ok {
		return false
	}
	if evicted := s.order[s.next]; evicted != "" {
		delete(s.set, evicted)
	}
	s.order[s.next] = key
	s.set[key] = struct{}{}
	s.next = (s.next + 1) % s.capacity
	return true
}

// Len returns the number of keys currently held.
func (s *seenCache) Len() int {
	return len(s.set)
}
