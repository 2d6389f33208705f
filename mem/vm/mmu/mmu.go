// Package mmu provides the memory management unit that drives address
// translation: it consults the TLB, falls back to the page table, and services
// page faults from the backing store.
package mmu

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
	"github.com/sarchlab/vmsim/memory"
	"github.com/sarchlab/vmsim/sim/hooking"
)

var (
	// HookPosAccess marks the completion of an access. The item is a
	// vm.AccessResult.
	HookPosAccess = &hooking.HookPos{Name: "MMU Access"}

	// HookPosPageFault marks a page fault being serviced. The item is a
	// vm.PageFault.
	HookPosPageFault = &hooking.HookPos{Name: "MMU Page Fault"}

	// HookPosWriteBack marks a dirty page being written to the backing
	// store. The item is a vm.WriteBack.
	HookPosWriteBack = &hooking.HookPos{Name: "MMU Write Back"}
)

// Config is the fixed geometry and policy of an MMU.
type Config struct {
	Log2PageSize  uint64             `json:"log2_page_size"`
	NumPageBits   uint64             `json:"num_page_bits"`
	NumFrames     uint64             `json:"num_frames"`
	NumTLBEntries int                `json:"num_tlb_entries"`
	RecencyBound  uint64             `json:"recency_bound"`
	Policy        replacement.Policy `json:"policy"`
}

// Layout returns how logical addresses split into pages and offsets.
func (c Config) Layout() vm.AddressLayout {
	return vm.AddressLayout{
		Log2PageSize: c.Log2PageSize,
		NumPageBits:  c.NumPageBits,
	}
}

// PageSize returns the number of bytes in a page.
func (c Config) PageSize() uint64 {
	return c.Layout().PageSize()
}

// NumPages returns the number of pages in the address space.
func (c Config) NumPages() uint64 {
	return c.Layout().NumPages()
}

// Stats counts what happened during translation.
type Stats struct {
	Accesses        uint64 `json:"accesses"`
	Reads           uint64 `json:"reads"`
	Writes          uint64 `json:"writes"`
	PageFaults      uint64 `json:"page_faults"`
	TLBHits         uint64 `json:"tlb_hits"`
	TLBMisses       uint64 `json:"tlb_misses"`
	DirtyWriteBacks uint64 `json:"dirty_write_backs"`
}

// PageFaultRate returns the fraction of accesses that faulted.
func (s Stats) PageFaultRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.PageFaults) / float64(s.Accesses)
}

// TLBHitRate returns the fraction of accesses that hit in the TLB.
func (s Stats) TLBHitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.TLBHits) / float64(s.Accesses)
}

// MMU translates the accesses of a single address space. It owns the TLB, the
// page table, and the physical memory.
//
// Translate and Snapshot serialize on the embedded mutex, so observers may
// read the state from other goroutines while a trace runs. Hooks are invoked
// with the mutex held and must not call back into the MMU.
type MMU struct {
	hooking.HookableBase
	sync.Mutex

	name      string
	config    Config
	layout    vm.AddressLayout
	memory    *memory.PhysicalMemory
	store     backingstore.Store
	tlb       *tlb.TLB
	pageTable *vm.PageTable
	stats     Stats
}

// Name returns the name of the MMU.
func (m *MMU) Name() string {
	return m.name
}

// Config returns the configuration that the MMU was built with.
func (m *MMU) Config() Config {
	return m.config
}

// Stats returns a copy of the counters.
func (m *MMU) Stats() Stats {
	m.Lock()
	defer m.Unlock()

	return m.stats
}

// Translate resolves the logical address of the access to a physical address
// and returns the byte stored there.
func (m *MMU) Translate(access vm.Access) (vm.AccessResult, error) {
	m.Lock()
	defer m.Unlock()

	err := m.layout.Check(access.Address)
	if err != nil {
		return vm.AccessResult{}, err
	}

	page := m.layout.PageNumber(access.Address)
	result := vm.AccessResult{
		LogicalAddress: access.Address,
		IsWrite:        access.IsWrite,
		Page:           page,
		Offset:         m.layout.Offset(access.Address),
	}

	m.countAccessKind(access)

	frame, hit := m.tlb.Lookup(page, access.IsWrite)
	if hit {
		m.stats.TLBHits++

		if access.IsWrite {
			m.pageTable.MarkDirty(page)
		}

		m.pageTable.Touch(page)
	} else {
		m.stats.TLBMisses++

		frame, err = m.resolve(page, access.IsWrite, &result)
		if err != nil {
			return result, err
		}
	}

	result.TLBHit = hit
	result.Frame = frame
	result.PhysicalAddress = m.layout.PhysicalAddress(frame, result.Offset)

	result.Value, err = m.memory.ByteAt(result.PhysicalAddress)
	if err != nil {
		return result, err
	}

	m.stats.Accesses++

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosAccess,
		Item:   result,
	})

	return result, nil
}

func (m *MMU) countAccessKind(access vm.Access) {
	if access.IsWrite {
		m.stats.Writes++
	} else {
		m.stats.Reads++
	}
}

func (m *MMU) resolve(
	page uint64,
	isWrite bool,
	result *vm.AccessResult,
) (uint64, error) {
	res, err := m.pageTable.Resolve(page, isWrite)
	if err != nil {
		return 0, fmt.Errorf("resolving page %d: %w", page, err)
	}

	if res.Faulted {
		m.stats.PageFaults++
		result.PageFault = true

		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosPageFault,
			Item:   res.Fault(),
		})
	}

	return res.Frame, nil
}

// Run translates every access that the reader produces, until the reader
// returns io.EOF or an error occurs.
func (m *MMU) Run(reader vm.AccessReader) (Stats, error) {
	for {
		access, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return m.Stats(), nil
		}

		if err != nil {
			return m.Stats(), err
		}

		_, err = m.Translate(access)
		if err != nil {
			return m.Stats(), err
		}
	}
}

func (m *MMU) pageIn(frame, page uint64) error {
	err := m.store.ReadPage(page, m.memory.Frame(frame))
	if err != nil {
		return fmt.Errorf("reading page %d into frame %d: %w", page, frame, err)
	}

	return nil
}

func (m *MMU) writeBack(frame, page uint64, src vm.WriteBackSource) error {
	err := m.store.WritePage(page, m.memory.Frame(frame))
	if err != nil {
		return fmt.Errorf("writing frame %d back to page %d: %w",
			frame, page, err)
	}

	m.stats.DirtyWriteBacks++

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    HookPosWriteBack,
		Item:   vm.WriteBack{Page: page, Frame: frame, Source: src},
	})

	return nil
}

// pager moves pages for the page table.
type pager struct {
	mmu *MMU
}

func (p pager) PageIn(frame, page uint64) error {
	return p.mmu.pageIn(frame, page)
}

func (p pager) PageOut(frame, page uint64) error {
	return p.mmu.writeBack(frame, page, vm.WriteBackFromPageTable)
}

// tlbWriter flushes the dirty entries that the TLB replaces.
type tlbWriter struct {
	mmu *MMU
}

func (w tlbWriter) PageOut(frame, page uint64) error {
	return w.mmu.writeBack(frame, page, vm.WriteBackFromTLB)
}
