package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration panics on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// IterIDs adapts a slice of IDs into an iterator, as accepted by download.Run.
func IterIDs(ids []ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}
