package vm

// DefaultRecencyBound is the value at which the recency clock wraps to zero.
const DefaultRecencyBound = 65000

// A RecencyClock is a counter stamped into page table entries on every
// access. It wraps to zero when it reaches its bound, so ages computed from
// it are approximate on long traces.
type RecencyClock struct {
	now   uint64
	bound uint64
}

// NewRecencyClock creates a clock that counts from 0 to bound-1.
func NewRecencyClock(bound uint64) *RecencyClock {
	if bound == 0 {
		panic("recency bound must be positive")
	}

	return &RecencyClock{bound: bound}
}

// Now returns the current value.
func (c *RecencyClock) Now() uint64 {
	return c.now
}

// Bound returns the wraparound bound.
func (c *RecencyClock) Bound() uint64 {
	return c.bound
}

// Advance moves the clock forward by one, wrapping at the bound.
func (c *RecencyClock) Advance() {
	c.now++
	if c.now == c.bound {
		c.now = 0
	}
}

// Age returns the forward distance from stamp to the current value. A stamp
// larger than the current value is taken to be from before the last wrap. A
// stamp equal to the current value has age 0, even if it is a full wrap old.
func (c *RecencyClock) Age(stamp uint64) uint64 {
	if stamp > c.now {
		return c.now + (c.bound - stamp)
	}

	return c.now - stamp
}
