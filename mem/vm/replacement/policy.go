// Package replacement provides the policies that decide which physical frame
// a page fault reclaims.
package replacement

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/vm"
)

// Policy names a frame replacement policy.
type Policy string

// Supported policies.
const (
	// RoundRobin reclaims frames 0, 1, ..., N-1, 0, ... regardless of use.
	RoundRobin Policy = "round-robin"

	// LRU fills empty frames first, then reclaims the frame whose page was
	// stamped least recently.
	LRU Policy = "lru"
)

// Policies lists all supported policies.
var Policies = []Policy{LRU, RoundRobin}

// ParsePolicy converts a policy name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == name {
			return p, nil
		}
	}

	return "", fmt.Errorf("unknown replacement policy %q, want one of %v",
		name, Policies)
}

// NewVictimFinder creates the victim finder of a policy for numFrames frames.
func NewVictimFinder(p Policy, numFrames uint64) vm.VictimFinder {
	switch p {
	case RoundRobin:
		return NewRoundRobinVictimFinder(numFrames)
	case LRU:
		return NewLRUVictimFinder(numFrames)
	default:
		panic(fmt.Sprintf("unknown replacement policy %q", p))
	}
}
