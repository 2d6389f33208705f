package vm

import "fmt"

// A PTE is an entry in the page table, maintaining the information about how
// to translate a page to a physical frame.
type PTE struct {
	Valid   bool
	Dirty   bool
	Recency uint64
	Frame   uint64
}

// A VictimFinder decides which physical frame to reclaim on a page fault.
type VictimFinder interface {
	FindVictim(table *PageTable) (frame uint64)
}

// A PageWriter writes the content of a frame back to the backing store as the
// content of a page.
type PageWriter interface {
	PageOut(frame, page uint64) error
}

// A Pager moves page contents between physical frames and the backing store.
type Pager interface {
	PageWriter

	// PageIn loads the page from the backing store into the frame.
	PageIn(frame, page uint64) error
}

// A TranslationCache is the fast-path cache that the page table fills on a
// fault and shoots down on an eviction.
type TranslationCache interface {
	Install(page, frame uint64) error
	Invalidate(page uint64)
}

// A Resolution is the outcome of resolving a page through the page table.
type Resolution struct {
	Page         uint64
	Frame        uint64
	Faulted      bool
	Evicted      bool
	EvictedPage  uint64
	EvictedDirty bool
}

// Fault returns the page fault described by the resolution. It is only
// meaningful if Faulted is true.
func (r Resolution) Fault() PageFault {
	return PageFault{
		Page:         r.Page,
		Frame:        r.Frame,
		Evicted:      r.Evicted,
		EvictedPage:  r.EvictedPage,
		EvictedDirty: r.EvictedDirty,
	}
}

// A PageTable holds one entry per page of a single address space. It is the
// authoritative record of which page occupies which frame.
//
// A PageTable is not safe for concurrent use. The owner must serialize calls.
type PageTable struct {
	entries      []PTE
	numFrames    uint64
	clock        *RecencyClock
	victimFinder VictimFinder
	pager        Pager
	tlb          TranslationCache
}

// NumPages returns the number of entries.
func (pt *PageTable) NumPages() uint64 {
	return uint64(len(pt.entries))
}

// NumFrames returns the number of physical frames the table maps onto.
func (pt *PageTable) NumFrames() uint64 {
	return pt.numFrames
}

// Clock returns the recency clock stamped into the entries.
func (pt *PageTable) Clock() *RecencyClock {
	return pt.clock
}

// Entry returns a copy of the entry of a page.
func (pt *PageTable) Entry(page uint64) PTE {
	pt.pageMustBeInRange(page)
	return pt.entries[page]
}

// ForEachValid calls fn for every valid entry in page order.
func (pt *PageTable) ForEachValid(fn func(page uint64, entry PTE)) {
	for page, entry := range pt.entries {
		if entry.Valid {
			fn(uint64(page), entry)
		}
	}
}

// FrameOwner returns the page whose valid entry maps the frame.
func (pt *PageTable) FrameOwner(frame uint64) (page uint64, found bool) {
	for p, entry := range pt.entries {
		if entry.Valid && entry.Frame == frame {
			return uint64(p), true
		}
	}

	return 0, false
}

// Resolve returns the frame that holds the page, faulting the page in from
// the backing store if it is not resident. A write marks the entry dirty.
// Every call stamps the entry with the recency clock.
func (pt *PageTable) Resolve(page uint64, isWrite bool) (Resolution, error) {
	pt.pageMustBeInRange(page)

	res := Resolution{Page: page}

	if !pt.entries[page].Valid {
		err := pt.fault(&res)
		if err != nil {
			return res, err
		}
	}

	entry := &pt.entries[page]
	res.Frame = entry.Frame

	if isWrite {
		entry.Dirty = true
	}

	pt.Touch(page)

	return res, nil
}

// MarkDirty marks a resident page as modified.
func (pt *PageTable) MarkDirty(page uint64) {
	pt.pageMustBeValid(page)
	pt.entries[page].Dirty = true
}

// Touch stamps a resident page with the current recency value and advances
// the clock.
func (pt *PageTable) Touch(page uint64) {
	pt.pageMustBeValid(page)
	pt.entries[page].Recency = pt.clock.Now()
	pt.clock.Advance()
}

func (pt *PageTable) fault(res *Resolution) error {
	res.Faulted = true

	frame := pt.victimFinder.FindVictim(pt)
	if frame >= pt.numFrames {
		panic(fmt.Sprintf("victim frame %d out of range [0, %d)",
			frame, pt.numFrames))
	}

	err := pt.evictFrame(frame, res)
	if err != nil {
		return err
	}

	pt.frameMustBeUnclaimed(frame)

	err = pt.pager.PageIn(frame, res.Page)
	if err != nil {
		return err
	}

	pt.entries[res.Page] = PTE{Valid: true, Frame: frame}

	if pt.tlb != nil {
		return pt.tlb.Install(res.Page, frame)
	}

	return nil
}

func (pt *PageTable) evictFrame(frame uint64, res *Resolution) error {
	owner, found := pt.FrameOwner(frame)
	if !found {
		return nil
	}

	entry := pt.entries[owner]
	if entry.Dirty {
		err := pt.pager.PageOut(frame, owner)
		if err != nil {
			return err
		}
	}

	if pt.tlb != nil {
		pt.tlb.Invalidate(owner)
	}

	pt.entries[owner] = PTE{}

	res.Evicted = true
	res.EvictedPage = owner
	res.EvictedDirty = entry.Dirty

	return nil
}

func (pt *PageTable) pageMustBeInRange(page uint64) {
	if page >= uint64(len(pt.entries)) {
		panic(fmt.Sprintf("page %d out of range [0, %d)",
			page, len(pt.entries)))
	}
}

func (pt *PageTable) pageMustBeValid(page uint64) {
	pt.pageMustBeInRange(page)

	if !pt.entries[page].Valid {
		panic(fmt.Sprintf("page %d is not resident", page))
	}
}

func (pt *PageTable) frameMustBeUnclaimed(frame uint64) {
	owner, found := pt.FrameOwner(frame)
	if found {
		panic(fmt.Sprintf(
			"frame %d is still mapped by page %d after eviction",
			frame, owner))
	}
}

// A PageTableBuilder can build page tables.
type PageTableBuilder struct {
	numPages     uint64
	numFrames    uint64
	clock        *RecencyClock
	victimFinder VictimFinder
	pager        Pager
	tlb          TranslationCache
}

// MakePageTableBuilder returns a PageTableBuilder with 256 pages mapped onto
// 256 frames.
func MakePageTableBuilder() PageTableBuilder {
	return PageTableBuilder{
		numPages:  256,
		numFrames: 256,
	}
}

// WithNumPages sets the number of entries in the page table.
func (b PageTableBuilder) WithNumPages(n uint64) PageTableBuilder {
	b.numPages = n
	return b
}

// WithNumFrames sets the number of physical frames.
func (b PageTableBuilder) WithNumFrames(n uint64) PageTableBuilder {
	b.numFrames = n
	return b
}

// WithClock sets the recency clock. If not set, a clock bounded by
// DefaultRecencyBound is created.
func (b PageTableBuilder) WithClock(c *RecencyClock) PageTableBuilder {
	b.clock = c
	return b
}

// WithVictimFinder sets the policy that selects frames to reclaim.
func (b PageTableBuilder) WithVictimFinder(f VictimFinder) PageTableBuilder {
	b.victimFinder = f
	return b
}

// WithPager sets the component that moves pages in and out of frames.
func (b PageTableBuilder) WithPager(p Pager) PageTableBuilder {
	b.pager = p
	return b
}

// WithTranslationCache sets the cache that is filled on faults and shot down
// on evictions. It is optional.
func (b PageTableBuilder) WithTranslationCache(
	c TranslationCache,
) PageTableBuilder {
	b.tlb = c
	return b
}

func (b PageTableBuilder) parametersMustBeValid() {
	if b.numPages == 0 {
		panic("page table must have at least one page")
	}

	if b.numFrames == 0 {
		panic("page table must map onto at least one frame")
	}

	if b.victimFinder == nil {
		panic("page table requires a victim finder")
	}

	if b.pager == nil {
		panic("page table requires a pager")
	}
}

// Build creates a new PageTable with every entry invalid.
func (b PageTableBuilder) Build() *PageTable {
	b.parametersMustBeValid()

	clock := b.clock
	if clock == nil {
		clock = NewRecencyClock(DefaultRecencyBound)
	}

	return &PageTable{
		entries:      make([]PTE, b.numPages),
		numFrames:    b.numFrames,
		clock:        clock,
		victimFinder: b.victimFinder,
		pager:        b.pager,
		tlb:          b.tlb,
	}
}
