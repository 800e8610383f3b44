package insight

import (
	"sync/atomic"
	"time"
)

// ResultSet is one refresh's worth of advanced insights together with its
// refresh timestamp, served immutably to readers.
type ResultSet struct {
	Insights    []AdvancedInsight
	RefreshedAt time.Time
}

// Store holds the current advanced-insight result set behind an atomic
// pointer.  Readers always observe a complete pre- or post-refresh set, never
// a mix; a failed refresh simply never swaps, leaving the last good set
// serving reads.
type Store struct {
	current atomic.Pointer[ResultSet]
}

// NewStore returns an empty Store.  Snapshot returns nil until the first
// successful refresh.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current result set, or nil when no refresh has
// completed yet.  The returned set must be treated as read-only.
func (s *Store) Snapshot() *ResultSet {
	return s.current.Load()
}

// Swap publishes a freshly computed result set.
func (s *Store) Swap(rs *ResultSet) {
	if rs == nil {
		return
	}
	s.current.Store(rs)
}

// ByLevelLabel returns the insight for a (level, label) from the current set,
// and whether it exists.
func (s *Store) ByLevelLabel(level, label string) (AdvancedInsight, bool) {
	rs := s.Snapshot()
	if rs == nil {
		return AdvancedInsight{}, false
	}
	for _, ai := range rs.Insights {
		if string(ai.Level) == level && ai.Label == label {
			return ai, true
		}
	}
	return AdvancedInsight{}, false
}
