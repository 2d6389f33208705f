// Package report prints the results of a translation run.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// Printer is a hook that writes one line per completed access.
type Printer struct {
	w   *bufio.Writer
	err error
}

// NewPrinter creates a Printer that writes to w. Output is buffered until
// Flush is called.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: bufio.NewWriter(w)}
}

// Func prints the access result carried by the hook context.
func (p *Printer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != mmu.HookPosAccess || p.err != nil {
		return
	}

	r := ctx.Item.(vm.AccessResult)

	_, p.err = fmt.Fprintf(p.w,
		"Virtual address: %d Physical address: %d Value: %d\n",
		r.LogicalAddress, r.PhysicalAddress, int8(r.Value))
}

// Flush writes out the buffered lines and returns the first write error.
func (p *Printer) Flush() error {
	if p.err != nil {
		return p.err
	}

	return p.w.Flush()
}

// WriteStatistics writes the configuration and the counters of a run as a
// human-readable block.
func WriteStatistics(w io.Writer, c mmu.Config, s mmu.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	lines := []string{
		"",
		"====================================",
		"",
		"Statistics:",
		"",
		fmt.Sprintf("Page Table Size (# Pages):\t%d", c.NumPages()),
		fmt.Sprintf("Physical Memory Size (# Frames):\t%d", c.NumFrames),
		fmt.Sprintf("Page Size (Bytes):\t%d", c.PageSize()),
		fmt.Sprintf("TLB Size (# Entries):\t%d", c.NumTLBEntries),
		fmt.Sprintf("Replacement Policy:\t%s", c.Policy),
		"",
		"-------------------------------------",
		"",
		fmt.Sprintf("Total Accesses:\t%d", s.Accesses),
		fmt.Sprintf("Total Page Faults:\t%d", s.PageFaults),
		fmt.Sprintf("Total TLB Hits:\t%d", s.TLBHits),
		fmt.Sprintf("Page Fault Rate:\t%f", s.PageFaultRate()),
		fmt.Sprintf("TLB Hit Rate:\t%f", s.TLBHitRate()),
		"",
		"-------------------------------------",
		"",
		fmt.Sprintf("Total Reads:\t%d", s.Reads),
		fmt.Sprintf("Total Writes:\t%d", s.Writes),
		fmt.Sprintf("Total Dirty Write-Backs:\t%d", s.DirtyWriteBacks),
	}

	for _, l := range lines {
		_, err := fmt.Fprintln(tw, l)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}

// WriteStatisticsCSV writes the counters and rates of a run as name, value
// rows.
func WriteStatisticsCSV(w io.Writer, c mmu.Config, s mmu.Stats) error {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	rows := [][]string{
		{"Name", "Value"},
		{"NumPages", u(c.NumPages())},
		{"NumFrames", u(c.NumFrames)},
		{"PageSize", u(c.PageSize())},
		{"NumTLBEntries", strconv.Itoa(c.NumTLBEntries)},
		{"Policy", string(c.Policy)},
		{"Accesses", u(s.Accesses)},
		{"Reads", u(s.Reads)},
		{"Writes", u(s.Writes)},
		{"PageFaults", u(s.PageFaults)},
		{"TLBHits", u(s.TLBHits)},
		{"TLBMisses", u(s.TLBMisses)},
		{"DirtyWriteBacks", u(s.DirtyWriteBacks)},
		{"PageFaultRate", f(s.PageFaultRate())},
		{"TLBHitRate", f(s.TLBHitRate())},
	}

	csvWriter := csv.NewWriter(w)

	err := csvWriter.WriteAll(rows)
	if err != nil {
		return err
	}

	return csvWriter.Error()
}
