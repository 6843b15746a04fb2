// Package selection holds the set of selected tile addresses and the
// operations that mutate it.
//
// A Set is not safe for concurrent use. Callers serialize mutations, and
// read-only methods (Contains, Len, All) never modify the set.
package selection

import (
	"iter"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilemark/tile"
)

// Set is an unordered set of tile addresses. The zero value is an empty set
// ready to use.
type Set struct {
	ids map[tile.ID]struct{}
}

// New creates a set holding the given addresses.
func New(ids ...tile.ID) *Set {
	s := &Set{ids: make(map[tile.ID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Set) Len() int {
	return len(s.ids)
}

func (s *Set) Contains(id tile.ID) bool {
	_, ok := s.ids[id]
	return ok
}

// Toggle removes id if it is present and adds it otherwise.
// It reports whether id is selected after the call.
func (s *Set) Toggle(id tile.ID) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.init()
	s.ids[id] = struct{}{}
	return true
}

func (s *Set) init() {
	if s.ids == nil {
		s.ids = make(map[tile.ID]struct{})
	}
}

// Add inserts ids and returns how many of them were not present before.
func (s *Set) Add(ids ...tile.ID) int {
	s.init()
	added := 0
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			s.ids[id] = struct{}{}
			added++
		}
	}
	return added
}

// RemoveFunc deletes every address for which del returns true and returns
// the number of deleted addresses.
func (s *Set) RemoveFunc(del func(tile.ID) bool) int {
	removed := 0
	for id := range s.ids {
		if del(id) {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}

func (s *Set) Clear() {
	clear(s.ids)
}

// ClearLevel deletes every address at the given level.
func (s *Set) ClearLevel(level uint32) int {
	return s.RemoveFunc(func(id tile.ID) bool {
		return id.Z == level
	})
}

// All returns an iterator over the addresses in unspecified order.
// The set must not be modified during iteration.
func (s *Set) All() iter.Seq[tile.ID] {
	return maps.Keys(s.ids)
}

// Sorted returns the addresses ordered by tile.Compare.
func (s *Set) Sorted() []tile.ID {
	return slices.SortedFunc(s.All(), tile.Compare)
}

// Levels returns the distinct levels present in the set, ascending.
func (s *Set) Levels() []uint32 {
	levels := make(map[uint32]struct{})
	for id := range s.ids {
		levels[id.Z] = struct{}{}
	}
	return slices.Sorted(maps.Keys(levels))
}

// CountLevel returns the number of addresses at the given level.
func (s *Set) CountLevel(level uint32) int {
	count := 0
	for id := range s.ids {
		if id.Z == level {
			count++
		}
	}
	return count
}

func (s *Set) Clone() *Set {
	return &Set{ids: maps.Clone(s.ids)}
}
