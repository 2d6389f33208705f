package replacement

import "github.com/sarchlab/vmsim/mem/vm"

// RoundRobinVictimFinder reclaims frames in a fixed cyclic order, ignoring
// occupancy and use.
type RoundRobinVictimFinder struct {
	numFrames uint64
	next      uint64
}

// NewRoundRobinVictimFinder returns a round-robin victim finder that starts
// from frame 0.
func NewRoundRobinVictimFinder(numFrames uint64) *RoundRobinVictimFinder {
	if numFrames == 0 {
		panic("number of frames must be positive")
	}

	return &RoundRobinVictimFinder{numFrames: numFrames}
}

// FindVictim returns the frame under the cursor and advances the cursor.
func (f *RoundRobinVictimFinder) FindVictim(_ *vm.PageTable) uint64 {
	frame := f.next
	f.next = (f.next + 1) % f.numFrames

	return frame
}
