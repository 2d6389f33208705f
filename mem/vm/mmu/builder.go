package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
	"github.com/sarchlab/vmsim/memory"
)

// DefaultConfig returns the configuration of an MMU with 256-byte pages, 256
// pages, 256 frames, a 16-entry TLB, and LRU replacement.
func DefaultConfig() Config {
	return Config{
		Log2PageSize:  8,
		NumPageBits:   8,
		NumFrames:     256,
		NumTLBEntries: 16,
		RecencyBound:  vm.DefaultRecencyBound,
		Policy:        replacement.LRU,
	}
}

// A Builder can build MMUs.
type Builder struct {
	config Config
	store  backingstore.Store
}

// MakeBuilder creates a builder that starts from DefaultConfig.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithLog2PageSize sets the page size as a power of 2.
func (b Builder) WithLog2PageSize(n uint64) Builder {
	b.config.Log2PageSize = n
	return b
}

// WithNumPageBits sets the number of address bits that select a page.
func (b Builder) WithNumPageBits(n uint64) Builder {
	b.config.NumPageBits = n
	return b
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n uint64) Builder {
	b.config.NumFrames = n
	return b
}

// WithNumTLBEntries sets the number of TLB entries. Zero disables the TLB.
func (b Builder) WithNumTLBEntries(n int) Builder {
	b.config.NumTLBEntries = n
	return b
}

// WithRecencyBound sets the value at which the recency clock wraps.
func (b Builder) WithRecencyBound(n uint64) Builder {
	b.config.RecencyBound = n
	return b
}

// WithPolicy sets the frame replacement policy.
func (b Builder) WithPolicy(p replacement.Policy) Builder {
	b.config.Policy = p
	return b
}

// WithBackingStore sets the store that pages are loaded from and written back
// to.
func (b Builder) WithBackingStore(s backingstore.Store) Builder {
	b.store = s
	return b
}

func (b Builder) parametersMustBeValid() {
	b.config.Layout().MustBeValid()

	if b.config.NumFrames == 0 {
		panic("MMU requires at least one frame")
	}

	if b.config.NumTLBEntries < 0 {
		panic("number of TLB entries cannot be negative")
	}

	if b.config.RecencyBound == 0 {
		panic("recency bound must be positive")
	}

	if _, err := replacement.ParsePolicy(string(b.config.Policy)); err != nil {
		panic(err)
	}

	b.storeMustFit()
}

func (b Builder) storeMustFit() {
	if b.store == nil {
		panic("MMU requires a backing store")
	}

	layout := b.config.Layout()

	if b.store.PageSize() != layout.PageSize() {
		panic(fmt.Sprintf("backing store page size %d does not match %d",
			b.store.PageSize(), layout.PageSize()))
	}

	if b.store.NumPages() < layout.NumPages() {
		panic(fmt.Sprintf("backing store holds %d pages, need %d",
			b.store.NumPages(), layout.NumPages()))
	}
}

// Build creates a new MMU with an empty TLB, an empty page table, and zeroed
// physical memory.
func (b Builder) Build(name string) *MMU {
	b.parametersMustBeValid()

	c := b.config
	layout := c.Layout()

	m := &MMU{
		name:   name,
		config: c,
		layout: layout,
		store:  b.store,
	}

	m.memory = memory.NewPhysicalMemory(c.NumFrames, layout.PageSize())

	m.tlb = tlb.MakeBuilder().
		WithNumEntries(c.NumTLBEntries).
		WithPageWriter(tlbWriter{mmu: m}).
		Build()

	m.pageTable = vm.MakePageTableBuilder().
		WithNumPages(layout.NumPages()).
		WithNumFrames(c.NumFrames).
		WithClock(vm.NewRecencyClock(c.RecencyBound)).
		WithVictimFinder(replacement.NewVictimFinder(c.Policy, c.NumFrames)).
		WithPager(pager{mmu: m}).
		WithTranslationCache(m.tlb).
		Build()

	return m
}
