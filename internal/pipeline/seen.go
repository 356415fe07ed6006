package pipeline

// DefaultSeenCapacity bounds the dedup window. The broker redelivers the
// same packet hash from multiple observers within a short span; a hundred
// hashes comfortably covers that window.
const DefaultSeenCapacity = 100

// SeenSet is a fixed-capacity FIFO set of message hashes: O(1) membership
// and O(1) eviction of the oldest entry once full. It is not safe for
// concurrent use; the pipeline processes messages strictly sequentially.
type SeenSet struct {
	members map[string]struct{}
	order   []string
	head    int
	count   int
}

func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}

	return &SeenSet{
		members: make(map[string]struct{}, capacity),
		order:   make([]string, capacity),
	}
}

// Has reports whether hash is in the set.
func (s *SeenSet) Has(hash string) bool {
	_, ok := s.members[hash]

	return ok
}

// Add inserts hash, evicting the oldest entry when the set is full. Adding
// a hash already present is a no-op and does not disturb eviction order.
func (s *SeenSet) Add(hash string) {
	if s.Has(hash) {
		return
	}

	if s.count == len(s.order) {
		delete(s.members, s.order[s.head])
	} else {
		s.count++
	}
	s.order[s.head] = hash
	s.head = (s.head + 1) % len(s.order)
	s.members[hash] = struct{}{}
}

// Len returns the number of hashes currently held.
func (s *SeenSet) Len() int {
	return s.count
}
