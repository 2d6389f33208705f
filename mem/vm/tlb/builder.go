package tlb

import "github.com/sarchlab/vmsim/mem/vm"

// A Builder can build TLBs
type Builder struct {
	numEntries int
	writer     vm.PageWriter
}

// MakeBuilder returns a Builder for a 16-entry TLB.
func MakeBuilder() Builder {
	return Builder{
		numEntries: 16,
	}
}

// WithNumEntries sets the number of entries. Zero builds a TLB that never
// hits.
func (b Builder) WithNumEntries(n int) Builder {
	b.numEntries = n
	return b
}

// WithPageWriter sets where dirty entries are written back to when their slot
// is reused.
func (b Builder) WithPageWriter(w vm.PageWriter) Builder {
	b.writer = w
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.numEntries < 0 {
		panic("number of TLB entries cannot be negative")
	}

	if b.numEntries > 0 && b.writer == nil {
		panic("TLB requires a page writer")
	}
}

// Build creates a new TLB with every entry invalid.
func (b Builder) Build() *TLB {
	b.parametersMustBeValid()

	return &TLB{
		entries: make([]Entry, b.numEntries),
		writer:  b.writer,
	}
}
