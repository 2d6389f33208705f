package trace

import (
	"log"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// Tables written by the database tracer.
const (
	AccessTable    = "vm_accesses"
	FaultTable     = "vm_faults"
	WriteBackTable = "vm_writebacks"
)

// AccessEntry is a row of the access table.
type AccessEntry struct {
	Seq       uint64
	Logical   uint64
	Physical  uint64
	Page      uint64
	Offset    uint64
	Frame     uint64
	Value     int8
	IsWrite   bool
	TLBHit    bool
	PageFault bool
}

// FaultEntry is a row of the fault table.
type FaultEntry struct {
	Seq          uint64
	Page         uint64
	Frame        uint64
	Evicted      bool
	EvictedPage  uint64
	EvictedDirty bool
}

// WriteBackEntry is a row of the write-back table.
type WriteBackEntry struct {
	Seq    uint64
	Page   uint64
	Frame  uint64
	Source string
}

// seqCounter numbers the accesses. Faults and write-backs happen while an
// access is in flight, so they carry the number of the access that is about
// to complete.
type seqCounter struct {
	seq uint64
}

func (c *seqCounter) current() uint64 {
	return c.seq
}

func (c *seqCounter) complete() {
	c.seq++
}

// A tracer is a hook that writes the actions of an MMU to a logger.
type tracer struct {
	seqCounter

	logger *log.Logger
}

// NewTracer creates a hook that writes one line per access, page fault, and
// write-back.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

func (t *tracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosAccess:
		r := ctx.Item.(vm.AccessResult)
		t.logger.Printf("access, %d, %s, %s, 0x%x, 0x%x, %d, %s\n",
			t.current(), domainName(ctx), kind(r.IsWrite),
			r.LogicalAddress, r.PhysicalAddress, int8(r.Value),
			outcome(r))
		t.complete()
	case mmu.HookPosPageFault:
		f := ctx.Item.(vm.PageFault)
		if f.Evicted {
			t.logger.Printf("fault, %d, %s, %d, %d, evict %d, dirty %t\n",
				t.current(), domainName(ctx), f.Page, f.Frame,
				f.EvictedPage, f.EvictedDirty)
		} else {
			t.logger.Printf("fault, %d, %s, %d, %d\n",
				t.current(), domainName(ctx), f.Page, f.Frame)
		}
	case mmu.HookPosWriteBack:
		w := ctx.Item.(vm.WriteBack)
		t.logger.Printf("writeback, %d, %s, %d, %d, %s\n",
			t.current(), domainName(ctx), w.Page, w.Frame, w.Source)
	}
}

func domainName(ctx hooking.HookCtx) string {
	named, ok := ctx.Domain.(interface{ Name() string })
	if !ok {
		return "-"
	}

	return named.Name()
}

func kind(isWrite bool) string {
	if isWrite {
		return "W"
	}

	return "R"
}

func outcome(r vm.AccessResult) string {
	switch {
	case r.TLBHit:
		return "tlb-hit"
	case r.PageFault:
		return "page-fault"
	default:
		return "page-table-hit"
	}
}

// A dbTracer is a hook that records the actions of an MMU into a database
// using the data recorder.
type dbTracer struct {
	seqCounter

	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a hook that inserts accesses, page faults, and
// write-backs into separate tables of the data recorder.
func NewDBTracer(dataRecorder datarecording.DataRecorder) hooking.Hook {
	t := &dbTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTable, AccessEntry{})
	t.dataRecorder.CreateTable(FaultTable, FaultEntry{})
	t.dataRecorder.CreateTable(WriteBackTable, WriteBackEntry{})

	return t
}

func (t *dbTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case mmu.HookPosAccess:
		r := ctx.Item.(vm.AccessResult)
		t.dataRecorder.InsertData(AccessTable, AccessEntry{
			Seq:       t.current(),
			Logical:   r.LogicalAddress,
			Physical:  r.PhysicalAddress,
			Page:      r.Page,
			Offset:    r.Offset,
			Frame:     r.Frame,
			Value:     int8(r.Value),
			IsWrite:   r.IsWrite,
			TLBHit:    r.TLBHit,
			PageFault: r.PageFault,
		})
		t.complete()
	case mmu.HookPosPageFault:
		f := ctx.Item.(vm.PageFault)
		t.dataRecorder.InsertData(FaultTable, FaultEntry{
			Seq:          t.current(),
			Page:         f.Page,
			Frame:        f.Frame,
			Evicted:      f.Evicted,
			EvictedPage:  f.EvictedPage,
			EvictedDirty: f.EvictedDirty,
		})
	case mmu.HookPosWriteBack:
		w := ctx.Item.(vm.WriteBack)
		t.dataRecorder.InsertData(WriteBackTable, WriteBackEntry{
			Seq:    t.current(),
			Page:   w.Page,
			Frame:  w.Frame,
			Source: string(w.Source),
		})
	}
}
