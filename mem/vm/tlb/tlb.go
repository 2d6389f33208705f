// Package tlb provides a translation lookaside buffer that caches page to
// frame translations in a flat, FIFO-replaced set of entries.
package tlb

import "github.com/sarchlab/vmsim/mem/vm"

// An Entry is one slot of the TLB.
type Entry struct {
	Valid bool
	Dirty bool
	Page  uint64
	Frame uint64
}

// TLB is a fully associative translation cache with FIFO replacement. A
// dirty entry is written back lazily, when its slot is reused.
//
// A TLB is not safe for concurrent use.
type TLB struct {
	entries  []Entry
	nextSlot int
	writer   vm.PageWriter
	hits     uint64
}

// NumEntries returns the capacity of the TLB.
func (t *TLB) NumEntries() int {
	return len(t.entries)
}

// Hits returns the number of lookups that found their page.
func (t *TLB) Hits() uint64 {
	return t.hits
}

// Entries returns a copy of all the slots, in slot order.
func (t *TLB) Entries() []Entry {
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// Reset invalidates every entry without writing anything back and rewinds
// the FIFO cursor.
func (t *TLB) Reset() {
	clear(t.entries)
	t.nextSlot = 0
	t.hits = 0
}

// Lookup returns the frame cached for the page. A write marks the entry
// dirty. A miss leaves the entries untouched.
func (t *TLB) Lookup(page uint64, isWrite bool) (frame uint64, found bool) {
	slot, found := t.find(page)
	if !found {
		return 0, false
	}

	if isWrite {
		t.entries[slot].Dirty = true
	}

	t.hits++

	return t.entries[slot].Frame, true
}

// Install caches a translation. An existing entry for the page is replaced in
// place. Otherwise the slot under the FIFO cursor is taken, after its old
// content is written back if dirty.
func (t *TLB) Install(page, frame uint64) error {
	if len(t.entries) == 0 {
		return nil
	}

	newEntry := Entry{Valid: true, Page: page, Frame: frame}

	slot, found := t.find(page)
	if found {
		t.entries[slot] = newEntry
		return nil
	}

	old := t.entries[t.nextSlot]
	if old.Valid && old.Dirty {
		err := t.writer.PageOut(old.Frame, old.Page)
		if err != nil {
			return err
		}
	}

	t.entries[t.nextSlot] = newEntry
	t.nextSlot = (t.nextSlot + 1) % len(t.entries)

	return nil
}

// Invalidate drops the entry of the page, if any, without writing it back.
// The FIFO cursor does not move.
func (t *TLB) Invalidate(page uint64) {
	slot, found := t.find(page)
	if !found {
		return
	}

	t.entries[slot] = Entry{}
}

func (t *TLB) find(page uint64) (slot int, found bool) {
	for i, e := range t.entries {
		if e.Valid && e.Page == page {
			return i, true
		}
	}

	return 0, false
}
