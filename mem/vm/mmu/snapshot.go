package mmu

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
)

// A ResidentPage is a valid page table entry together with its page number.
type ResidentPage struct {
	Page    uint64 `json:"page"`
	Frame   uint64 `json:"frame"`
	Dirty   bool   `json:"dirty"`
	Recency uint64 `json:"recency"`
	Age     uint64 `json:"age"`
}

// A TLBEntry is one slot of the TLB.
type TLBEntry struct {
	Slot  int    `json:"slot"`
	Valid bool   `json:"valid"`
	Dirty bool   `json:"dirty"`
	Page  uint64 `json:"page"`
	Frame uint64 `json:"frame"`
}

// A Snapshot is a consistent copy of the state of an MMU.
type Snapshot struct {
	Name          string         `json:"name"`
	Config        Config         `json:"config"`
	Stats         Stats          `json:"stats"`
	Clock         uint64         `json:"clock"`
	ResidentPages []ResidentPage `json:"resident_pages"`
	TLB           []TLBEntry     `json:"tlb"`
}

// Snapshot copies the counters, the resident pages, and the TLB slots.
func (m *MMU) Snapshot() Snapshot {
	m.Lock()
	defer m.Unlock()

	clock := m.pageTable.Clock()
	s := Snapshot{
		Name:          m.name,
		Config:        m.config,
		Stats:         m.stats,
		Clock:         clock.Now(),
		ResidentPages: []ResidentPage{},
		TLB:           convertTLBEntries(m.tlb.Entries()),
	}

	m.pageTable.ForEachValid(func(page uint64, e vm.PTE) {
		s.ResidentPages = append(s.ResidentPages, ResidentPage{
			Page:    page,
			Frame:   e.Frame,
			Dirty:   e.Dirty,
			Recency: e.Recency,
			Age:     clock.Age(e.Recency),
		})
	})

	return s
}

func convertTLBEntries(entries []tlb.Entry) []TLBEntry {
	converted := make([]TLBEntry, len(entries))
	for i, e := range entries {
		converted[i] = TLBEntry{
			Slot:  i,
			Valid: e.Valid,
			Dirty: e.Dirty,
			Page:  e.Page,
			Frame: e.Frame,
		}
	}

	return converted
}
