package hooking

import "sync"

// PosCounter is a hook that counts how many times each hook position fires.
type PosCounter struct {
	lock     sync.Mutex
	posNames []string
	count    map[string]uint64
}

// NewPosCounter creates a new PosCounter.
func NewPosCounter() *PosCounter {
	return &PosCounter{
		count: make(map[string]uint64),
	}
}

// Func counts the position of the hook context.
func (c *PosCounter) Func(ctx HookCtx) {
	if ctx.Pos == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	_, ok := c.count[ctx.Pos.Name]
	if !ok {
		c.posNames = append(c.posNames, ctx.Pos.Name)
	}

	c.count[ctx.Pos.Name]++
}

// PosNames returns the names of the positions seen so far, in the order they
// first fired.
func (c *PosCounter) PosNames() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	names := make([]string, len(c.posNames))
	copy(names, c.posNames)

	return names
}

// Count returns the number of times the named position fired.
func (c *PosCounter) Count(posName string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.count[posName]
}
