package replacement

import "github.com/sarchlab/vmsim/mem/vm"

// LRUVictimFinder evicts the frame whose page was least recently stamped,
// after first using up frames that no page occupies.
//
// Ages come from the page table's wrapping recency clock, so after the clock
// wraps past an old stamp the order is approximate.
type LRUVictimFinder struct {
	numFrames uint64
}

// NewLRUVictimFinder returns a newly constructed LRU victim finder.
func NewLRUVictimFinder(numFrames uint64) *LRUVictimFinder {
	if numFrames == 0 {
		panic("number of frames must be positive")
	}

	return &LRUVictimFinder{numFrames: numFrames}
}

// FindVictim returns the lowest unoccupied frame if there is one. Otherwise
// it returns the frame with the oldest recency stamp, the lowest page winning
// ties.
func (f *LRUVictimFinder) FindVictim(table *vm.PageTable) uint64 {
	occupied := make([]bool, f.numFrames)
	table.ForEachValid(func(_ uint64, entry vm.PTE) {
		if entry.Frame < f.numFrames {
			occupied[entry.Frame] = true
		}
	})

	for frame, used := range occupied {
		if !used {
			return uint64(frame)
		}
	}

	clock := table.Clock()
	victim := uint64(0)
	oldestAge := uint64(0)
	found := false

	table.ForEachValid(func(_ uint64, entry vm.PTE) {
		age := clock.Age(entry.Recency)
		if !found || age > oldestAge {
			victim = entry.Frame
			oldestAge = age
			found = true
		}
	})

	return victim
}
