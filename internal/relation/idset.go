// Package relation stages edits to many-to-many associations (automation
// sectors, user automation grants) before they are written back.
package relation

import "slices"

// IDSet is an insertion-ordered set of ids.
type IDSet struct {
	ids []int64
}

// NewIDSet returns a set seeded with ids. Repeated ids are kept once.
func NewIDSet(ids ...int64) *IDSet {
	s := &IDSet{ids: make([]int64, 0, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id unless it is already present. It reports whether the set
// changed.
func (s *IDSet) Add(id int64) bool {
	if s.Has(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id. Removing an absent id is a no-op.
func (s *IDSet) Remove(id int64) bool {
	if s == nil {
		return false
	}
	i := slices.Index(s.ids, id)
	if i < 0 {
		return false
	}
	s.ids = slices.Delete(s.ids, i, i+1)
	return true
}

// Toggle adds id when absent and removes it when present.
func (s *IDSet) Toggle(id int64) {
	if !s.Remove(id) {
		s.Add(id)
	}
}

// Has reports whether id is in the set. A nil set is empty.
func (s *IDSet) Has(id int64) bool {
	return s != nil && slices.Contains(s.ids, id)
}

// Len returns the number of ids.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order. It is never nil, so an
// empty set encodes as [].
func (s *IDSet) IDs() []int64 {
	if s == nil {
		return []int64{}
	}
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

// Equal reports whether both sets hold the same ids, in any order.
func (s *IDSet) Equal(other *IDSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.IDs() {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
