package dedup

// SeenSet holds the identifiers already relayed during this process lifetime.
// It grows without bound and is not safe for concurrent use; the relay loop
// is its only owner.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Contains reports whether id has been recorded.
func (s *SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records id and reports whether it was new. Empty ids are never recorded.
func (s *SeenSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of recorded ids.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
