// Package versesync maps narration playback position to the verse being
// spoken.
package versesync

import (
	"sort"
	"strconv"
	"time"

	"github.com/kinyabible/audiobible/player"
)

// Resolver answers "which verse contains this position" over a chapter's
// timing table. Intervals are half-open [start, end); they are expected but
// not guaranteed to be non-overlapping, and gaps between verses are normal,
// so lookup never assumes adjacency. Should two intervals ever overlap, the
// first verse in number order wins.
//
// Chapters hold at most a few dozen verses, so a linear scan over the
// ordered table is the whole algorithm.
type Resolver struct {
	verses []player.Verse
}

// NewResolver builds a resolver over the chapter's verses. Verses without a
// valid interval stay in the table (they still render) but never match a
// position. The table is ordered by numeric verse number ascending;
// non-numeric numbers sort after numeric ones.
func NewResolver(verses []player.Verse) *Resolver {
	ordered := make([]player.Verse, len(verses))
	copy(ordered, verses)
	sort.SliceStable(ordered, func(i, j int) bool {
		return verseLess(ordered[i].Number, ordered[j].Number)
	})
	return &Resolver{verses: ordered}
}

// Resolve returns the number of the verse whose interval contains pos, or
// ok=false when no interval matches.
func (r *Resolver) Resolve(pos time.Duration) (string, bool) {
	for _, v := range r.verses {
		if !v.Timed {
			continue
		}
		if pos >= v.Start && pos < v.End {
			return v.Number, true
		}
	}
	return "", false
}

// Verses returns the ordered verse table.
func (r *Resolver) Verses() []player.Verse {
	return r.verses
}

// Index returns the position of a verse number in the ordered table, or -1.
func (r *Resolver) Index(number string) int {
	for i, v := range r.verses {
		if v.Number == number {
			return i
		}
	}
	return -1
}

// At returns the verse at index i.
func (r *Resolver) At(i int) (player.Verse, bool) {
	if i < 0 || i >= len(r.verses) {
		return player.Verse{}, false
	}
	return r.verses[i], true
}

// Len returns the number of verses.
func (r *Resolver) Len() int {
	return len(r.verses)
}

func verseLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
