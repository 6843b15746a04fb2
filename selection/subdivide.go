package selection

import (
	"github.com/eak1mov/go-tilemark/tile"
)

// CopyUp adds the four children of every selected address at sourceLevel.
// Addresses at sourceLevel stay selected, and children that are already
// selected are left alone, so calling CopyUp again without other changes
// is a no-op. It returns the number of added children.
func (s *Set) CopyUp(sourceLevel uint32) int {
	if sourceLevel >= tile.MaxZoom {
		return 0
	}

	// collect first: children land in the same map being ranged over
	parents := make([]tile.ID, 0)
	for id := range s.ids {
		if id.Z == sourceLevel {
			parents = append(parents, id)
		}
	}

	added := 0
	for _, parent := range parents {
		children := parent.Children()
		added += s.Add(children[:]...)
	}
	return added
}

// CopyUpTo repeats CopyUp from sourceLevel until targetLevel is filled.
func (s *Set) CopyUpTo(sourceLevel, targetLevel uint32) int {
	added := 0
	for level := sourceLevel; level < targetLevel; level++ {
		added += s.CopyUp(level)
	}
	return added
}
