// Package vm provides the models for address translation in a demand-paged
// virtual memory: the address layout, the page table, and the records that
// flow through the translation path.
package vm

// An Access is one record of a memory trace: a logical address and whether
// the access writes to it.
type Access struct {
	Address uint64
	IsWrite bool
}

// An AccessReader produces accesses one at a time. Next returns io.EOF when
// the trace is exhausted.
type AccessReader interface {
	Next() (Access, error)
}

// An AccessResult is the outcome of translating one access.
type AccessResult struct {
	LogicalAddress  uint64
	PhysicalAddress uint64
	Value           byte
	IsWrite         bool
	Page            uint64
	Offset          uint64
	Frame           uint64
	TLBHit          bool
	PageFault       bool
}

// A PageFault describes the servicing of an access to a non-resident page.
type PageFault struct {
	Page         uint64
	Frame        uint64
	Evicted      bool
	EvictedPage  uint64
	EvictedDirty bool
}

// WriteBackSource names the structure that flushed a dirty page.
type WriteBackSource string

// The structures that can write a page back to the backing store.
const (
	WriteBackFromTLB       WriteBackSource = "tlb"
	WriteBackFromPageTable WriteBackSource = "page-table"
)

// A WriteBack records one dirty page being written to the backing store.
type WriteBack struct {
	Page   uint64
	Frame  uint64
	Source WriteBackSource
}
